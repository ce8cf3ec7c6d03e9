package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** -------------------- ENTITIES -------------------- */

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Server is a named community joined by invite code.
type Server struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	OwnerID    string    `gorm:"type:uuid;not null" json:"owner_id"`
	InviteCode string    `gorm:"uniqueIndex;size:16;not null" json:"invite_code"`
	IconURL    string    `gorm:"size:512" json:"icon_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ServerMember is the durable access-control fact that a user belongs to a
// server. Distinct from the ephemeral room subscriptions tracked in memory
// by the realtime layer.
type ServerMember struct {
	ID       string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_server_members_user_server" json:"user_id"`
	ServerID string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_server_members_user_server" json:"server_id"`
	Role     MemberRole `gorm:"size:16;not null;default:member" json:"role"`
}

func (m *ServerMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type CreateServerRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

type JoinServerRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type ServerResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	InviteCode string `json:"invite_code"`
	IconURL    string `json:"icon_url,omitempty"`
}

type MemberResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
