package domain

import "time"

// RefreshToken is one link of a user's rotation chain. IsUsed and IsRevoked
// only ever go from false to true.
type RefreshToken struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	UserID          string     `json:"user_id" gorm:"size:36;not null;index"`
	Token           string     `json:"-" gorm:"size:255;not null;uniqueIndex"`
	JwtID           string     `json:"jwt_id" gorm:"size:255;not null"`
	IsUsed          bool       `json:"is_used" gorm:"not null"`
	IsRevoked       bool       `json:"is_revoked" gorm:"not null;index"`
	ExpiresAt       time.Time  `json:"expires_at" gorm:"not null;index"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP     *string    `json:"revoked_by_ip,omitempty" gorm:"size:45"`
	ReplacedByToken *string    `json:"-" gorm:"size:255"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Usable reports whether the token could still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsUsed && !t.IsRevoked && !t.IsExpired(now)
}
