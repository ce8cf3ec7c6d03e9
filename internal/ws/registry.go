package ws

import (
	"context"
	"log/slog"
	"sync"
)

// PresenceTracker receives online/offline transitions for users. Implemented
// by the Redis presence service; failures are logged and never propagate to
// the connection path.
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Registry owns the mapping from user ID to that user's live connections.
// Users with several devices hold several connections under one entry.
//
// A user has an entry iff its connection set is non-empty: the entry is
// removed, not left empty, when the last connection detaches, and that
// removal cascades into Rooms via EvictUser.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Client]struct{} // user ID -> set of connections

	rooms    *Rooms
	presence PresenceTracker
}

func NewRegistry(rooms *Rooms, presence PresenceTracker) *Registry {
	return &Registry{
		conns:    make(map[string]map[*Client]struct{}),
		rooms:    rooms,
		presence: presence,
	}
}

// Attach records c under userID. Idempotent for the same pair.
func (r *Registry) Attach(userID string, c *Client) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[userID] = set
	}
	first := len(set) == 0
	set[c] = struct{}{}
	r.mu.Unlock()

	slog.Info("connection attached", "userID", userID, "clientID", c.ID())

	if first && r.presence != nil {
		if err := r.presence.SetUserOnline(context.Background(), userID); err != nil {
			slog.Error("failed to mark user online", "userID", userID, "error", err)
		}
	}
}

// Detach removes c from userID's set. Detaching an already-absent connection
// is a no-op. When the last connection goes, the user entry is deleted and
// the user is evicted from every room.
func (r *Registry) Detach(userID string, c *Client) {
	r.mu.Lock()
	last := false
	if set, ok := r.conns[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.conns, userID)
			last = true
		}
	}
	r.mu.Unlock()

	if !last {
		return
	}

	r.rooms.EvictUser(userID)
	slog.Info("last connection detached, user evicted from all rooms", "userID", userID)

	if r.presence != nil {
		if err := r.presence.SetUserOffline(context.Background(), userID); err != nil {
			slog.Error("failed to mark user offline", "userID", userID, "error", err)
		}
	}
}

// SendToUser delivers payload to every connection currently attached to
// userID. Delivery is best effort: a connection whose send fails is treated
// as dead, detached, and skipped; per-connection failures never surface to
// the caller.
func (r *Registry) SendToUser(userID string, payload []byte) {
	r.mu.RLock()
	set := r.conns[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.Deliver(payload); err != nil {
			slog.Warn("dropping dead connection", "userID", userID, "clientID", c.ID(), "error", err)
			c.Close()
			r.Detach(userID, c)
		}
	}
}

// BroadcastToRoom fans payload out to every user currently subscribed to
// room, except excludeUser if non-empty. Membership is snapshotted first so
// no lock is held while sends are in flight; a join racing the broadcast may
// or may not receive this particular payload.
func (r *Registry) BroadcastToRoom(room string, payload []byte, excludeUser string) {
	for _, userID := range r.rooms.Members(room) {
		if excludeUser != "" && userID == excludeUser {
			continue
		}
		r.SendToUser(userID, payload)
	}
}

// Connections returns the number of live connections for userID.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[userID])
}

// HasUser reports whether userID has at least one live connection.
func (r *Registry) HasUser(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[userID]
	return ok
}
