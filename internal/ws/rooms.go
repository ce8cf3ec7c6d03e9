package ws

import (
	"sync"
)

// Room key namespaces. Channel rooms and direct-message rooms never collide
// and are never interchangeable for authorization purposes.
const (
	roomPrefixChannel = "channel:"
	roomPrefixDM      = "dm:"
)

// ChannelRoom returns the room key for a channel.
func ChannelRoom(channelID string) string {
	return roomPrefixChannel + channelID
}

// DMRoom returns the room key for a direct-message conversation.
func DMRoom(conversationID string) string {
	return roomPrefixDM + conversationID
}

// Rooms tracks which users are currently subscribed to each room's live
// fan-out. Subscription is an ephemeral "currently listening" fact, distinct
// from the durable server membership held in Postgres: it is populated only
// by an explicit join event and cleared on leave or full disconnect.
//
// A room has an entry iff its member set is non-empty; empty rooms are
// deleted so transient rooms never accumulate.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> set of user IDs
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
	}
}

// Join subscribes user to room. Idempotent.
func (r *Rooms) Join(room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[string]struct{})
		r.members[room] = set
	}
	set[userID] = struct{}{}
}

// Leave removes user from room, deleting the room entry when it empties.
// Leaving a room the user never joined is a no-op.
func (r *Rooms) Leave(room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(room, userID)
}

func (r *Rooms) leaveLocked(room, userID string) {
	set, ok := r.members[room]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(r.members, room)
	}
}

// IsMember reports whether user is currently subscribed to room. This is the
// authorization gate for sending into the room.
func (r *Rooms) IsMember(room, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[room][userID]
	return ok
}

// Members returns a snapshot of the room's current subscribers. Callers that
// perform network sends iterate the snapshot, never the live set, so a slow
// receiver cannot block joins and leaves on other rooms.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for userID := range set {
		out = append(out, userID)
	}
	return out
}

// EvictUser removes user from every room, with the same empty-room cleanup
// as Leave. Called by the connection registry when a user's last connection
// detaches.
func (r *Rooms) EvictUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.members {
		r.leaveLocked(room, userID)
	}
}

// RoomCount returns the number of rooms with at least one subscriber.
func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}
