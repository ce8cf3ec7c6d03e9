package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// MessageRecord is what the persistence collaborator reports back for a
// durably stored message.
type MessageRecord struct {
	ID        string
	CreatedAt time.Time
}

// MessageStore durably persists messages. Writes are atomic: either the
// record exists with a generated id and timestamp, or it does not exist at
// all.
type MessageStore interface {
	SaveChannelMessage(ctx context.Context, channelID, senderID, content string) (*MessageRecord, error)
	SaveDirectMessage(ctx context.Context, conversationID, senderID, content string) (*MessageRecord, error)
}

// UserDirectory resolves a user's display name.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// ChannelGate answers whether a user may join a channel's room, by checking
// current membership of the channel's owning server.
type ChannelGate interface {
	CanJoinChannel(ctx context.Context, userID, channelID string) (bool, error)
}

// Handler dispatches inbound frames for one authenticated connection. It
// owns no state of its own: it authorizes against Rooms, persists through
// the store, and drives the registry for fan-out. It must leave Rooms and
// the registry consistent even when persistence fails mid-frame.
type Handler struct {
	registry *Registry
	rooms    *Rooms
	store    MessageStore
	users    UserDirectory
	gate     ChannelGate
}

func NewHandler(registry *Registry, rooms *Rooms, store MessageStore, users UserDirectory, gate ChannelGate) *Handler {
	return &Handler{
		registry: registry,
		rooms:    rooms,
		store:    store,
		users:    users,
		gate:     gate,
	}
}

// HandleFrame decodes and dispatches one frame from c. Syntactically
// malformed frames get an error reply and the connection stays open.
// Unknown tags, missing fields, and failed authorization are dropped
// silently. A returned error means this frame's persistence or lookup
// failed; nothing was broadcast, and the caller may terminate this
// connection's processing.
func (h *Handler) HandleFrame(ctx context.Context, c *Client, raw []byte) error {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		// Reply, keep the connection open.
		if derr := c.Deliver(marshalErrorFrame("Invalid JSON")); derr != nil {
			slog.Debug("could not deliver error frame", "clientID", c.ID(), "error", derr)
		}
		return nil
	}

	switch ev.Type {
	case EventJoinChannel:
		return h.joinChannel(ctx, c, ev.ChannelID)
	case EventLeaveChannel:
		if ev.ChannelID != "" {
			h.rooms.Leave(ChannelRoom(ev.ChannelID), c.UserID())
		}
		return nil
	case EventMessage:
		return h.channelMessage(ctx, c, ev.ChannelID, ev.Content)
	case EventJoinDM:
		h.joinDM(c, ev.ConversationID)
		return nil
	case EventLeaveDM:
		if ev.ConversationID != "" {
			h.rooms.Leave(DMRoom(ev.ConversationID), c.UserID())
		}
		return nil
	case EventDMMessage:
		return h.dmMessage(ctx, c, ev.ConversationID, ev.Content)
	default:
		slog.Debug("dropping frame with unknown type", "clientID", c.ID(), "type", ev.Type)
		return nil
	}
}

func (h *Handler) joinChannel(ctx context.Context, c *Client, channelID string) error {
	if channelID == "" {
		return nil
	}

	ok, err := h.gate.CanJoinChannel(ctx, c.UserID(), channelID)
	if err != nil {
		return fmt.Errorf("channel join authorization: %w", err)
	}
	if !ok {
		slog.Debug("channel join denied", "userID", c.UserID(), "channelID", channelID)
		return nil
	}

	h.rooms.Join(ChannelRoom(channelID), c.UserID())

	ack, err := json.Marshal(joinedFrame{Type: frameJoined, ChannelID: channelID})
	if err != nil {
		return err
	}
	if err := c.Deliver(ack); err != nil {
		slog.Debug("could not deliver join ack", "clientID", c.ID(), "error", err)
	}
	return nil
}

// joinDM subscribes without any participant check. Whether a joining user
// must be validated against the conversation's participants is an open
// product decision; until it is made, join mirrors the channel path minus
// the gate.
func (h *Handler) joinDM(c *Client, conversationID string) {
	if conversationID == "" {
		return
	}

	h.rooms.Join(DMRoom(conversationID), c.UserID())

	ack, err := json.Marshal(joinedDMFrame{Type: frameJoinedDM, ConversationID: conversationID})
	if err != nil {
		return
	}
	if err := c.Deliver(ack); err != nil {
		slog.Debug("could not deliver join ack", "clientID", c.ID(), "error", err)
	}
}

func (h *Handler) channelMessage(ctx context.Context, c *Client, channelID, content string) error {
	if channelID == "" || content == "" {
		return nil
	}

	room := ChannelRoom(channelID)
	if !h.rooms.IsMember(room, c.UserID()) {
		slog.Debug("message to unjoined channel dropped", "userID", c.UserID(), "channelID", channelID)
		return nil
	}

	username, err := h.users.DisplayName(ctx, c.UserID())
	if err != nil {
		return fmt.Errorf("resolve sender name: %w", err)
	}

	// The message becomes visible to subscribers only after the write has
	// completed; an unpersisted message is never fanned out.
	rec, err := h.store.SaveChannelMessage(ctx, channelID, c.UserID(), content)
	if err != nil {
		return fmt.Errorf("persist channel message: %w", err)
	}

	payload, err := json.Marshal(MessageFrame{
		Type:           frameMessage,
		ID:             rec.ID,
		ChannelID:      channelID,
		SenderID:       c.UserID(),
		SenderUsername: username,
		Content:        content,
		CreatedAt:      formatTimestamp(rec.CreatedAt),
	})
	if err != nil {
		return err
	}

	// Echo to the sender through the same fan-out path as everyone else.
	h.registry.BroadcastToRoom(room, payload, "")
	return nil
}

func (h *Handler) dmMessage(ctx context.Context, c *Client, conversationID, content string) error {
	if conversationID == "" || content == "" {
		return nil
	}

	room := DMRoom(conversationID)
	if !h.rooms.IsMember(room, c.UserID()) {
		slog.Debug("message to unjoined conversation dropped", "userID", c.UserID(), "conversationID", conversationID)
		return nil
	}

	username, err := h.users.DisplayName(ctx, c.UserID())
	if err != nil {
		return fmt.Errorf("resolve sender name: %w", err)
	}

	rec, err := h.store.SaveDirectMessage(ctx, conversationID, c.UserID(), content)
	if err != nil {
		return fmt.Errorf("persist direct message: %w", err)
	}

	payload, err := json.Marshal(MessageFrame{
		Type:           frameDMMessage,
		ID:             rec.ID,
		ConversationID: conversationID,
		SenderID:       c.UserID(),
		SenderUsername: username,
		Content:        content,
		CreatedAt:      formatTimestamp(rec.CreatedAt),
	})
	if err != nil {
		return err
	}

	h.registry.BroadcastToRoom(room, payload, "")
	return nil
}
