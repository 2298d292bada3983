package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-reminder/internal/model"
)

// UserRepository keeps the profiles of chats that used the bot.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram creates the user on first contact and refreshes the profile afterwards.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, chatID int64, firstName, username string) error {
	user := model.User{
		ChatID:     chatID,
		FirstName:  firstName,
		Username:   username,
		LastSeenAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "username", "last_seen_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
