package database

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"postsync/internal/core/notification"
)

// NotificationRepositoryDatabase stores notifications and doubles as the
// delivery queue: rows with delivered_at NULL are still to be mirrored.
type NotificationRepositoryDatabase struct {
	db *gorm.DB
}

func NewNotificationRepositoryDatabase(db *gorm.DB) *NotificationRepositoryDatabase {
	return &NotificationRepositoryDatabase{db: db}
}

func (repo *NotificationRepositoryDatabase) ListForOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*notification.Notification, error) {
	var items []*notification.Notification
	if err := repo.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, storeErr("list notifications", err)
	}
	return items, nil
}

func (repo *NotificationRepositoryDatabase) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*notification.Notification, error) {
	var n notification.Notification
	if err := repo.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&n).Error; err != nil {
		return nil, storeErr("find notification", err)
	}
	return &n, nil
}

func (repo *NotificationRepositoryDatabase) MarkRead(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error) {
	res := repo.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id = ? AND owner_id = ? AND read_at IS NULL", id, ownerID).
		Update("read_at", at.UTC())
	if res.Error != nil {
		return false, storeErr("mark notification read", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (repo *NotificationRepositoryDatabase) FindUndelivered(ctx context.Context, limit int) ([]*notification.Notification, error) {
	var items []*notification.Notification
	if err := repo.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, storeErr("find undelivered notifications", err)
	}
	return items, nil
}

func (repo *NotificationRepositoryDatabase) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := repo.db.WithContext(ctx).
		Model(&notification.Notification{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", at.UTC()).Error; err != nil {
		return storeErr("mark notification delivered", err)
	}
	return nil
}

