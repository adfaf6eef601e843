package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthNonce is a single-use nonce handed to the client before a federated
// sign-in; only its hash is stored.
type OAuthNonce struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Provider  string     `gorm:"not null;column:provider" json:"provider"`
	NonceHash string     `gorm:"not null;uniqueIndex;column:nonce_hash" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

func (OAuthNonce) TableName() string { return "oauth_nonce" }

func (n *OAuthNonce) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
