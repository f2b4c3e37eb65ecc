package models

import (
	"time"

	"gorm.io/gorm"
)

// Tip is owned by the tipping subsystem. Moderation only ever rewrites Message.
type Tip struct {
	ID string `gorm:"primaryKey" json:"id"`
	// user id of the receiving artist
	ArtistID  string    `gorm:"index" json:"artist_id"`
	Message   *string   `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Artist struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"uniqueIndex;not null" json:"user_id"`
	ArtistName string    `json:"artist_name"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Caller identity, as asserted by whatever authenticated the request. Not persisted.
type User struct {
	ID       string
	Role     string
	IsArtist bool
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&KeywordRule{},
		&ModerationLog{},
		&Tip{},
		&Artist{},
	)
}
