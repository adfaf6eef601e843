package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName     string     `gorm:"not null;column:display_name" json:"display_name"`
	PasswordHash    string     `gorm:"column:password_hash" json:"-"`
	Role            string     `gorm:"not null;default:user;index;column:role" json:"role"`
	AuthProvider    string     `gorm:"not null;default:password;column:auth_provider" json:"auth_provider"`
	AvatarBucketKey string     `gorm:"column:avatar_bucket_key" json:"-"`
	AvatarURL       string     `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	AvatarColor     string     `gorm:"column:avatar_color" json:"avatar_color,omitempty"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at" json:"email_verified_at,omitempty"`
	LastLogin       *time.Time `gorm:"column:last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.AuthProvider == "" {
		u.AuthProvider = ProviderPassword
	}
	return nil
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
