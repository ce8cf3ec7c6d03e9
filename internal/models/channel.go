package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** -------------------- ENTITIES -------------------- */

type ChannelType string

const (
	ChannelText  ChannelType = "text"
	ChannelVoice ChannelType = "voice"
)

func (t ChannelType) IsValid() bool {
	return t == ChannelText || t == ChannelVoice
}

// Channel belongs to exactly one server.
type Channel struct {
	ID        string      `gorm:"type:uuid;primaryKey" json:"id"`
	ServerID  string      `gorm:"type:uuid;not null;index" json:"server_id"`
	Name      string      `gorm:"size:64;not null" json:"name"`
	Type      ChannelType `gorm:"size:16;not null;default:text" json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type CreateChannelRequest struct {
	ServerID string      `json:"server_id" binding:"required"`
	Name     string      `json:"name" binding:"required,min=1,max=64"`
	Type     ChannelType `json:"type"`
}

type ChannelResponse struct {
	ID       string `json:"id"`
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}
