package postapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	postEntity "postsync/internal/core/post"
	contentPort "postsync/internal/ports/content"
	feedPort "postsync/internal/ports/feed"
	postPort "postsync/internal/ports/post"
)

// PostService is the client-side path into the post store: create, edit,
// delete and retry. It never moves a post out of pending.
type PostService struct {
	PostRepository postPort.PostRepository
	Feed           feedPort.Publisher
	Generator      contentPort.Generator
	Logger         *zap.Logger

	minContentLength int
	retryDelay       time.Duration
	now              func() time.Time
	validate         *validator.Validate
}

type Options struct {
	MinContentLength int
	RetryDelay       time.Duration
	Now              func() time.Time
}

func NewPostService(
	postRepo postPort.PostRepository,
	feed feedPort.Publisher,
	generator contentPort.Generator,
	logger *zap.Logger,
	opts Options,
) *PostService {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Minute
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if feed == nil {
		feed = feedPort.Nop{}
	}
	return &PostService{
		PostRepository:   postRepo,
		Feed:             feed,
		Generator:        generator,
		Logger:           logger,
		minContentLength: opts.MinContentLength,
		retryDelay:       opts.RetryDelay,
		now:              opts.Now,
		validate:         validator.New(),
	}
}

type CreateInput struct {
	Content      string     `json:"content"`
	ImageURL     *string    `json:"imageUrl" validate:"omitempty,url"`
	ScheduleTime *time.Time `json:"scheduleTime"`
	TrackingID   *string    `json:"trackingId" validate:"omitempty,max=64,printascii"`
	Status       *string    `json:"status"`
}

type UpdateInput struct {
	Content      *string    `json:"content"`
	ImageURL     *string    `json:"imageUrl" validate:"omitempty,url"`
	ScheduleTime *time.Time `json:"scheduleTime"`
	ClearImage   bool       `json:"clearImage"`
	ClearTime    bool       `json:"clearScheduleTime"`
	Status       *string    `json:"status"`
}

// CreatePending inserts a post for ownerID. The stored status is always
// pending; asking for anything else is rejected.
func (s *PostService) CreatePending(ctx context.Context, ownerID string, in CreateInput) (*postPort.PostDTO, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStatus(in.Status); err != nil {
		return nil, err
	}
	if err := s.checkContent(in.Content); err != nil {
		return nil, err
	}
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}

	tracking := postEntity.NewTrackingID()
	if in.TrackingID != nil && strings.TrimSpace(*in.TrackingID) != "" {
		tracking = strings.TrimSpace(*in.TrackingID)
	}
	var schedule *time.Time
	if in.ScheduleTime != nil {
		t := in.ScheduleTime.UTC()
		schedule = &t
	}

	now := s.now()
	p := &postEntity.Post{
		ID:           uuid.Must(uuid.NewV4()),
		OwnerID:      owner,
		Content:      in.Content,
		TrackingID:   &tracking,
		ImageURL:     in.ImageURL,
		ScheduleTime: schedule,
		Status:       postEntity.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.PostRepository.Create(ctx, p); err != nil {
		s.Logger.Error("❌ Failed to create post", zap.String("ownerID", ownerID), zap.Error(err))
		return nil, err
	}

	s.Logger.Info("📝 Created post", zap.String("postID", p.ID.String()), zap.String("ownerID", ownerID))
	s.publish(ctx, feedPort.EventCreated, p)
	return postPort.ToDTO(p), nil
}

func (s *PostService) ListForOwner(ctx context.Context, ownerID, status string) ([]*postPort.PostDTO, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return nil, err
	}
	var filter postPort.ListFilter
	if status != "" {
		st, err := postEntity.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &st
	}
	posts, err := s.PostRepository.ListForOwner(ctx, owner, filter)
	if err != nil {
		return nil, err
	}
	return postPort.ToDTOs(posts), nil
}

func (s *PostService) GetForOwner(ctx context.Context, ownerID, postID string) (*postPort.PostDTO, error) {
	owner, id, err := parseIDs(ownerID, postID)
	if err != nil {
		return nil, err
	}
	p, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return postPort.ToDTO(p), nil
}

// UpdatePending edits a post that is still pending. Status is not editable
// from here beyond restating pending.
func (s *PostService) UpdatePending(ctx context.Context, ownerID, postID string, in UpdateInput) (*postPort.PostDTO, error) {
	owner, id, err := parseIDs(ownerID, postID)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && *in.Status != string(postEntity.StatusPending) {
		return nil, fmt.Errorf("%w: status can only be changed by the publishing extension", postEntity.ErrForbidden)
	}
	if in.Content != nil {
		if err := s.checkContent(*in.Content); err != nil {
			return nil, err
		}
	}
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}

	current, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	patch := postPort.PendingPatch{
		Content:      in.Content,
		ImageURL:     in.ImageURL,
		ScheduleTime: in.ScheduleTime,
		ClearImage:   in.ClearImage,
		ClearTime:    in.ClearTime,
	}
	ok, err := s.PostRepository.UpdatePending(ctx, owner, id, patch, postEntity.NextStamp(s.now(), current.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.explainMiss(ctx, owner, id, "edit")
	}

	updated, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, feedPort.EventUpdated, updated)
	return postPort.ToDTO(updated), nil
}

// DeleteIfDeletable removes a pending or failed post. Posting and posted
// posts are kept.
func (s *PostService) DeleteIfDeletable(ctx context.Context, ownerID, postID string) error {
	owner, id, err := parseIDs(ownerID, postID)
	if err != nil {
		return err
	}
	deleted, err := s.PostRepository.DeleteForOwner(ctx, owner, id, []postEntity.Status{postEntity.StatusPending, postEntity.StatusFailed})
	if err != nil {
		return err
	}
	if !deleted {
		return s.explainMiss(ctx, owner, id, "delete")
	}

	s.Logger.Info("🗑️ Deleted post", zap.String("postID", postID), zap.String("ownerID", ownerID))
	s.publish(ctx, feedPort.EventDeleted, &postEntity.Post{ID: id, OwnerID: owner})
	return nil
}

// Retry starts a fresh cycle for a failed post, scheduled a short delay
// from now.
func (s *PostService) Retry(ctx context.Context, ownerID, postID string) (*postPort.PostDTO, error) {
	owner, id, err := parseIDs(ownerID, postID)
	if err != nil {
		return nil, err
	}
	current, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if _, err := postEntity.Decide(postEntity.ActorClient, current.Status, postEntity.StatusPending); err != nil {
		return nil, err
	}

	now := s.now()
	schedule := now.Add(s.retryDelay)
	ok, err := s.PostRepository.Reset(ctx, owner, id, schedule, postEntity.NextStamp(now, current.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.explainMiss(ctx, owner, id, "retry")
	}

	fresh, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("🔁 Post queued for retry", zap.String("postID", postID), zap.Time("scheduleTime", schedule))
	s.publish(ctx, feedPort.EventUpdated, fresh)
	return postPort.ToDTO(fresh), nil
}

// DraftContent asks the content generator for post text.
func (s *PostService) DraftContent(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", postEntity.ErrValidation)
	}
	if s.Generator == nil {
		return "", fmt.Errorf("%w: content generation is not configured", postEntity.ErrPrecondition)
	}
	return s.Generator.DraftText(ctx, topic)
}

// explainMiss turns a conditional write that matched no row into NotFound
// or PreconditionFailed.
func (s *PostService) explainMiss(ctx context.Context, owner, id uuid.UUID, op string) error {
	p, err := s.PostRepository.FindForOwner(ctx, owner, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot %s a post in status %s", postEntity.ErrPrecondition, op, p.Status)
}

func (s *PostService) checkStatus(status *string) error {
	if status == nil || *status == "" || *status == string(postEntity.StatusPending) {
		return nil
	}
	return fmt.Errorf("%w: new posts are always created as pending", postEntity.ErrValidation)
}

func (s *PostService) checkContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: content is required", postEntity.ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) < s.minContentLength {
		return fmt.Errorf("%w: content must be at least %d characters", postEntity.ErrValidation, s.minContentLength)
	}
	return nil
}

func (s *PostService) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %s", postEntity.ErrValidation, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", postEntity.ErrValidation, err)
}

func (s *PostService) publish(ctx context.Context, t feedPort.EventType, p *postEntity.Post) {
	ev := feedPort.Event{
		Type:    t,
		OwnerID: p.OwnerID.String(),
		PostID:  p.ID.String(),
		Status:  string(p.Status),
		At:      s.now(),
	}
	if err := s.Feed.Publish(ctx, ev); err != nil {
		s.Logger.Warn("⚠️ Could not publish change event", zap.String("postID", ev.PostID), zap.Error(err))
	}
}

func parseOwner(ownerID string) (uuid.UUID, error) {
	owner, err := uuid.FromString(ownerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid owner id", postEntity.ErrValidation)
	}
	return owner, nil
}

func parseIDs(ownerID, postID string) (uuid.UUID, uuid.UUID, error) {
	owner, err := parseOwner(ownerID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.FromString(postID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: no post with id %q", postEntity.ErrNotFound, postID)
	}
	return owner, id, nil
}
