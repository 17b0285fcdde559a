package database

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"postsync/internal/core/account"
	"postsync/internal/core/post"
	postPort "postsync/internal/ports/post"
)

// PostRepositoryDatabase implements postPort.PostRepository with gorm.
type PostRepositoryDatabase struct {
	db *gorm.DB
}

func NewPostRepositoryDatabase(db *gorm.DB) *PostRepositoryDatabase {
	return &PostRepositoryDatabase{db: db}
}

var nonTerminal = []post.Status{post.StatusPending, post.StatusPosting}

func (repo *PostRepositoryDatabase) Create(ctx context.Context, p *post.Post) error {
	if err := repo.db.WithContext(ctx).Create(p).Error; err != nil {
		return storeErr("create post", err)
	}
	return nil
}

func (repo *PostRepositoryDatabase) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	var p post.Post
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, storeErr("find post", err)
	}
	return &p, nil
}

func (repo *PostRepositoryDatabase) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*post.Post, error) {
	var p post.Post
	if err := repo.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&p).Error; err != nil {
		return nil, storeErr("find post", err)
	}
	return &p, nil
}

func (repo *PostRepositoryDatabase) FindByTrackingID(ctx context.Context, trackingID string, ownerID *uuid.UUID) ([]*post.Post, error) {
	q := repo.db.WithContext(ctx).Where("tracking_id = ?", trackingID)
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	var posts []*post.Post
	if err := q.Order("created_at DESC").Limit(2).Find(&posts).Error; err != nil {
		return nil, storeErr("find post by tracking id", err)
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) ListForOwner(ctx context.Context, ownerID uuid.UUID, filter postPort.ListFilter) ([]*post.Post, error) {
	q := repo.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var posts []*post.Post
	if err := q.
		Order("CASE WHEN schedule_time IS NULL THEN 1 ELSE 0 END").
		Order("schedule_time ASC").
		Order("created_at ASC").
		Find(&posts).Error; err != nil {
		return nil, storeErr("list posts", err)
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) UpdatePending(ctx context.Context, ownerID, id uuid.UUID, patch postPort.PendingPatch, stamp time.Time) (bool, error) {
	updates := map[string]any{"updated_at": stamp}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	switch {
	case patch.ClearImage:
		updates["image_url"] = nil
	case patch.ImageURL != nil:
		updates["image_url"] = *patch.ImageURL
	}
	switch {
	case patch.ClearTime:
		updates["schedule_time"] = nil
	case patch.ScheduleTime != nil:
		updates["schedule_time"] = patch.ScheduleTime.UTC()
	}

	res := repo.db.WithContext(ctx).
		Model(&post.Post{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, post.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, storeErr("update post", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (repo *PostRepositoryDatabase) DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID, from []post.Status) (bool, error) {
	res := repo.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND status IN ?", id, ownerID, from).
		Delete(&post.Post{})
	if res.Error != nil {
		return false, storeErr("delete post", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Transition runs the status compare-and-set and its side effects in one
// transaction. Nothing but the status row is touched when the CAS misses.
func (repo *PostRepositoryDatabase) Transition(ctx context.Context, t postPort.Transition) (bool, error) {
	applied := false
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     t.To,
			"updated_at": t.Stamp,
		}
		if t.ExternalPostID != nil {
			updates["external_post_id"] = *t.ExternalPostID
		}
		if t.ExternalPostURL != nil {
			updates["external_post_url"] = *t.ExternalPostURL
		}
		if t.PostedAt != nil {
			updates["posted_at"] = t.PostedAt.UTC()
		}
		if t.LastError != nil {
			updates["last_error"] = *t.LastError
		}
		if t.BumpRetry {
			updates["retry_count"] = gorm.Expr("retry_count + ?", 1)
		}

		res := tx.Model(&post.Post{}).
			Where("id = ? AND cycle = ? AND status IN ?", t.PostID, t.Cycle, t.From).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if t.IncrementPublished {
			if err := tx.Model(&account.Account{}).
				Where("id = ?", t.OwnerID).
				UpdateColumn("published_count", gorm.Expr("published_count + ?", 1)).Error; err != nil {
				return err
			}
		}
		if t.Notification != nil {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t.Notification).Error; err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, storeErr("transition post", err)
	}
	return applied, nil
}

// Reset starts a fresh cycle for a failed post.
func (repo *PostRepositoryDatabase) Reset(ctx context.Context, ownerID, id uuid.UUID, schedule, stamp time.Time) (bool, error) {
	res := repo.db.WithContext(ctx).
		Model(&post.Post{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, post.StatusFailed).
		Updates(map[string]any{
			"status":            post.StatusPending,
			"retry_count":       0,
			"cycle":             gorm.Expr("cycle + ?", 1),
			"last_error":        nil,
			"external_post_id":  nil,
			"external_post_url": nil,
			"posted_at":         nil,
			"schedule_time":     schedule.UTC(),
			"updated_at":        stamp,
		})
	if res.Error != nil {
		return false, storeErr("reset post", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (repo *PostRepositoryDatabase) FindFalsePending(ctx context.Context, now time.Time, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).
		Where("status IN ?", nonTerminal).
		Where("schedule_time IS NOT NULL AND schedule_time < ?", now.UTC()).
		Where("external_post_url IS NOT NULL").
		Order("schedule_time ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, storeErr("find false pending posts", err)
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) FindStuck(ctx context.Context, cutoff time.Time, limit int) ([]*post.Post, error) {
	var posts []*post.Post
	if err := repo.db.WithContext(ctx).
		Where("status IN ?", nonTerminal).
		Where("external_post_url IS NULL").
		Where("schedule_time IS NOT NULL AND schedule_time < ?", cutoff.UTC()).
		Order("schedule_time ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, storeErr("find stuck posts", err)
	}
	return posts, nil
}

func (repo *PostRepositoryDatabase) CountPosted(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	if err := repo.db.WithContext(ctx).
		Model(&post.Post{}).
		Where("owner_id = ? AND status = ?", ownerID, post.StatusPosted).
		Count(&n).Error; err != nil {
		return 0, storeErr("count posted", err)
	}
	return n, nil
}
