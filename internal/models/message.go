package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** -------------------- ENTITIES -------------------- */

// Message is a durable chat message. Exactly one of ChannelID and
// ConversationID is set, scoping it to a channel or a direct-message
// conversation. Ciphertext is opaque to the server; it is stored and fanned
// out without inspection and never mutated after creation.
type Message struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelID      *string   `gorm:"type:uuid;index" json:"channel_id,omitempty"`
	ConversationID *string   `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	SenderID       string    `gorm:"type:uuid;not null" json:"sender_id"`
	Ciphertext     string    `gorm:"not null" json:"content"`
	Nonce          string    `json:"nonce,omitempty"`
	SenderDeviceID string    `json:"sender_device_id,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

// MessageResponse is one history entry, with the sender's username joined
// in. CreatedAt uses the same fixed sortable rendering as the realtime
// frames.
type MessageResponse struct {
	ID             string `json:"id"`
	ChannelID      string `json:"channel_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}
