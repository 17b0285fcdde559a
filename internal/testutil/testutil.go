// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbadapter "postsync/internal/adapters/database"
	"postsync/internal/config"
	"postsync/internal/core/account"
	"postsync/internal/core/post"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.Must(uuid.NewV4()))
	db, err := config.OpenDB("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, dbadapter.AutoMigrate(db))
	return db
}

func NewAccount(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	require.NoError(t, db.Create(&account.Account{
		ID:       id,
		Email:    id.String() + "@example.com",
		Password: "x",
	}).Error)
	return id
}

// SeedPost inserts a pending post for owner; mutate may adjust any field
// before the insert.
func SeedPost(t *testing.T, db *gorm.DB, owner uuid.UUID, mutate func(p *post.Post)) *post.Post {
	t.Helper()
	now := time.Now().UTC()
	tracking := post.NewTrackingID()
	p := &post.Post{
		ID:         uuid.Must(uuid.NewV4()),
		OwnerID:    owner,
		Content:    "A post long enough to pass validation",
		TrackingID: &tracking,
		Status:     post.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func ReloadPost(t *testing.T, db *gorm.DB, id uuid.UUID) *post.Post {
	t.Helper()
	var p post.Post
	require.NoError(t, db.Where("id = ?", id).First(&p).Error)
	return &p
}

func PublishedCount(t *testing.T, db *gorm.DB, owner uuid.UUID) int64 {
	t.Helper()
	var a account.Account
	require.NoError(t, db.Where("id = ?", owner).First(&a).Error)
	return a.PublishedCount
}

func NotificationCount(t *testing.T, db *gorm.DB, postID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("notifications").Where("post_id = ?", postID).Count(&n).Error)
	return n
}

func Ptr[T any](v T) *T { return &v }
