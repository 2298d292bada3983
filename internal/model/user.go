package model

import "time"

// User stores Telegram profile data of a chat that talked to the bot.
// ChatID is the same value tasks carry in UserID.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	ChatID     int64  `gorm:"uniqueIndex;not null"`
	FirstName  string
	Username   string
	CreatedAt  time.Time
	LastSeenAt time.Time
}
