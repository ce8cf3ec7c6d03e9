package ws

import (
	"encoding/json"
	"time"
)

// EventType tags each inbound client frame. The vocabulary is closed: an
// unrecognized tag is dropped without reply.
type EventType string

const (
	EventJoinChannel  EventType = "join_channel"
	EventLeaveChannel EventType = "leave_channel"
	EventMessage      EventType = "message"
	EventJoinDM       EventType = "join_dm"
	EventLeaveDM      EventType = "leave_dm"
	EventDMMessage    EventType = "dm_message"
)

// Event is the decoded form of one inbound frame. Which fields are required
// depends on the tag; missing required fields drop the event.
type Event struct {
	Type           EventType `json:"type"`
	ChannelID      string    `json:"channel_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Content        string    `json:"content,omitempty"`
}

// Outbound frame types.
const (
	frameJoined    = "joined"
	frameJoinedDM  = "joined_dm"
	frameMessage   = "message"
	frameDMMessage = "dm_message"
	frameError     = "error"
)

type joinedFrame struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
}

type joinedDMFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// MessageFrame is the fan-out form of a persisted message. The content is an
// opaque ciphertext blob; it is broadcast exactly as received, alongside the
// identity the persistence layer assigned.
type MessageFrame struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	ChannelID      string `json:"channel_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

type errorFrame struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// formatTimestamp renders creation times in a fixed, lexically sortable form.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func marshalErrorFrame(detail string) []byte {
	data, _ := json.Marshal(errorFrame{Type: frameError, Detail: detail})
	return data
}
