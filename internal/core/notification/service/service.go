package notificationapp

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	postEntity "postsync/internal/core/post"
	notificationPort "postsync/internal/ports/notification"
)

const listLimit = 50

type NotificationService struct {
	NotificationRepository notificationPort.NotificationRepository
}

func NewNotificationService(repo notificationPort.NotificationRepository) *NotificationService {
	return &NotificationService{NotificationRepository: repo}
}

func (s *NotificationService) ListForOwner(ctx context.Context, ownerID string) ([]*notificationPort.NotificationDTO, error) {
	owner, err := uuid.FromString(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid owner id", postEntity.ErrValidation)
	}
	items, err := s.NotificationRepository.ListForOwner(ctx, owner, listLimit)
	if err != nil {
		return nil, err
	}
	return notificationPort.ToDTOs(items), nil
}

// MarkRead is idempotent for the owner; another owner's notification is
// reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, ownerID, notificationID string) error {
	owner, err := uuid.FromString(ownerID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id", postEntity.ErrValidation)
	}
	id, err := uuid.FromString(notificationID)
	if err != nil {
		return fmt.Errorf("%w: no notification with id %q", postEntity.ErrNotFound, notificationID)
	}
	ok, err := s.NotificationRepository.MarkRead(ctx, owner, id, time.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// already read, or not this owner's
	_, err = s.NotificationRepository.FindForOwner(ctx, owner, id)
	return err
}
