package account

import (
	"context"

	"postsync/internal/core/account"

	"github.com/gofrs/uuid"
)

// AccountRepository is the port to the accounts table.
type AccountRepository interface {
	Create(ctx context.Context, a *account.Account) error
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	SetLinkedInProfile(ctx context.Context, id uuid.UUID, profile string) error
	SetPublishedCount(ctx context.Context, id uuid.UUID, count int64) error
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

type AccountDTO struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	LinkedInProfile *string `json:"linkedinProfile,omitempty"`
	PublishedCount  int64   `json:"publishedCount"`
}

func ToDTO(a *account.Account) *AccountDTO {
	return &AccountDTO{
		ID:              a.ID.String(),
		Email:           a.Email,
		LinkedInProfile: a.LinkedInProfile,
		PublishedCount:  a.PublishedCount,
	}
}
