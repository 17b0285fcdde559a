package account

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

// Account is the owner of posts. PublishedCount only moves inside the same
// transaction that flips one of its posts to posted.
type Account struct {
	ID              uuid.UUID `gorm:"primaryKey;type:char(36)"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password        string    `gorm:"not null"`
	LinkedInProfile *string   `gorm:"type:varchar(512)"`
	PublishedCount  int64     `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)
