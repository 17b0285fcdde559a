package database

import (
	"context"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"postsync/internal/core/account"
)

// AccountRepositoryDatabase implements the account port with gorm.
type AccountRepositoryDatabase struct {
	db *gorm.DB
}

func NewAccountRepositoryDatabase(db *gorm.DB) *AccountRepositoryDatabase {
	return &AccountRepositoryDatabase{db: db}
}

func (repo *AccountRepositoryDatabase) Create(ctx context.Context, a *account.Account) error {
	if err := repo.db.WithContext(ctx).Create(a).Error; err != nil {
		return storeErr("create account", err)
	}
	return nil
}

func (repo *AccountRepositoryDatabase) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	var a account.Account
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, storeErr("find account", err)
	}
	return &a, nil
}

func (repo *AccountRepositoryDatabase) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var a account.Account
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, storeErr("find account", err)
	}
	return &a, nil
}

func (repo *AccountRepositoryDatabase) SetLinkedInProfile(ctx context.Context, id uuid.UUID, profile string) error {
	res := repo.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("id = ?", id).
		Update("linked_in_profile", profile)
	if res.Error != nil {
		return storeErr("update account", res.Error)
	}
	if res.RowsAffected == 0 {
		return storeErr("update account", gorm.ErrRecordNotFound)
	}
	return nil
}

func (repo *AccountRepositoryDatabase) SetPublishedCount(ctx context.Context, id uuid.UUID, count int64) error {
	if err := repo.db.WithContext(ctx).
		Model(&account.Account{}).
		Where("id = ?", id).
		UpdateColumn("published_count", count).Error; err != nil {
		return storeErr("update account", err)
	}
	return nil
}
