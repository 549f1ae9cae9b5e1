package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash. RefreshToken is the single currently valid
// refresh token for this user; nil means no live session.
type User struct {
	ID           string
	Email        string
	Username     string
	Password     string
	Confirmed    bool
	RefreshToken *string
	AvatarURL    string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
