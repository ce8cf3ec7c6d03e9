package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/** -------------------- ENTITIES -------------------- */

// User represents an account. The prekey fields hold the client-published
// key material for end-to-end encryption; the server stores them opaquely
// and never interprets them.
type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	IdentityKeyPublic     string `json:"identity_key_public,omitempty"`
	SignedPrekeyPublic    string `json:"signed_prekey_public,omitempty"`
	SignedPrekeySignature string `json:"signed_prekey_signature,omitempty"`
	// OneTimePrekeys holds a JSON array of client-published prekeys; the
	// repository is the only reader and writer.
	OneTimePrekeys string `gorm:"type:jsonb;default:'[]'" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

/** -------------------- DTOs -------------------- */

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`

	IdentityKeyPublic     string `json:"identity_key_public,omitempty"`
	SignedPrekeyPublic    string `json:"signed_prekey_public,omitempty"`
	SignedPrekeySignature string `json:"signed_prekey_signature,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// PublishPrekeysRequest replaces the caller's stored key bundle.
type PublishPrekeysRequest struct {
	IdentityKeyPublic     string   `json:"identity_key_public" binding:"required"`
	SignedPrekeyPublic    string   `json:"signed_prekey_public" binding:"required"`
	SignedPrekeySignature string   `json:"signed_prekey_signature" binding:"required"`
	OneTimePrekeys        []string `json:"one_time_prekeys"`
}

// PrekeyBundleResponse is what a peer fetches to start a session. The
// one-time prekey is consumed by the fetch and may be empty when the user
// has none left.
type PrekeyBundleResponse struct {
	UserID                string `json:"user_id"`
	IdentityKeyPublic     string `json:"identity_key_public"`
	SignedPrekeyPublic    string `json:"signed_prekey_public"`
	SignedPrekeySignature string `json:"signed_prekey_signature"`
	OneTimePrekey         string `json:"one_time_prekey,omitempty"`
}
