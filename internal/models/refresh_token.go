package models

import (
	"time"
)

// RefreshToken is one issued login session. Rotation revokes the previous
// token before a new one is stored.
type RefreshToken struct {
	BaseModel
	UserID    string     `gorm:"size:36;index" json:"userId"`
	Token     string     `gorm:"size:512;index;not null" json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsRevoked bool       `json:"isRevoked"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}
