package database

import (
	"gorm.io/gorm"

	"postsync/internal/core/account"
	"postsync/internal/core/notification"
	"postsync/internal/core/post"
)

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.Account{},
		&post.Post{},
		&notification.Notification{},
	)
}
