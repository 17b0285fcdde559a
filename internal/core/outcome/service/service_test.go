package outcomeapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"postsync/internal/adapters/database"
	"postsync/internal/core/outcome"
	postEntity "postsync/internal/core/post"
	"postsync/internal/testutil"
)

var receivedAt = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*OutcomeService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewOutcomeService(database.NewPostRepositoryDatabase(db), nil, zap.NewNop(), func() time.Time { return receivedAt })
	return svc, db
}

func decode(t *testing.T, p outcome.Payload) outcome.Request {
	t.Helper()
	req, err := p.Decode(receivedAt)
	require.NoError(t, err)
	return req
}

func TestReportPostingThenPosted(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.UpdatedAt = receivedAt.Add(-time.Hour) })
	ctx := context.Background()

	res, err := svc.ReportOutcome(ctx, decode(t, outcome.Payload{
		PostID: testutil.Ptr(p.ID.String()),
		Status: "posting",
	}))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "posting", res.Post.Status)

	res, err = svc.ReportOutcome(ctx, decode(t, outcome.Payload{
		PostID:      testutil.Ptr(p.ID.String()),
		Status:      "posted",
		LinkedinURL: testutil.Ptr("https://www.linkedin.com/feed/update/urn:li:activity:1"),
	}))
	require.NoError(t, err)
	assert.True(t, res.Applied)

	row := testutil.ReloadPost(t, db, p.ID)
	assert.Equal(t, postEntity.StatusPosted, row.Status)
	require.NotNil(t, row.PostedAt)
	assert.True(t, receivedAt.Equal(*row.PostedAt))
	require.NotNil(t, row.ExternalPostURL)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:1", *row.ExternalPostURL)
	assert.Equal(t, int64(1), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(1), testutil.NotificationCount(t, db, p.ID))
}

func TestReportPostedOnPendingPost(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, nil)

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID:      testutil.Ptr(p.ID.String()),
		Status:      "posted",
		LinkedinURL: testutil.Ptr("https://linkedin.com/feed/update/123"),
	}))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "posted", res.Post.Status)

	row := testutil.ReloadPost(t, db, p.ID)
	assert.Equal(t, postEntity.StatusPosted, row.Status)
	require.NotNil(t, row.ExternalPostURL)
	assert.Equal(t, "https://linkedin.com/feed/update/123", *row.ExternalPostURL)
	require.NotNil(t, row.PostedAt)
	assert.True(t, receivedAt.Equal(*row.PostedAt))
	assert.Equal(t, int64(1), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(1), testutil.NotificationCount(t, db, p.ID))
}

func TestPostingReportStoresURL(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, nil)

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID:         testutil.Ptr(p.ID.String()),
		Status:         "posting",
		LinkedinURL:    testutil.Ptr("https://www.linkedin.com/feed/update/urn:li:activity:11"),
		LinkedinPostID: testutil.Ptr("urn:li:activity:11"),
	}))
	require.NoError(t, err)
	assert.True(t, res.Applied)

	row := testutil.ReloadPost(t, db, p.ID)
	assert.Equal(t, postEntity.StatusPosting, row.Status)
	require.NotNil(t, row.ExternalPostURL)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:11", *row.ExternalPostURL)
	require.NotNil(t, row.ExternalPostID)
	assert.Equal(t, "urn:li:activity:11", *row.ExternalPostID)
	assert.Nil(t, row.PostedAt)
	assert.Equal(t, int64(0), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(0), testutil.NotificationCount(t, db, p.ID))
}

func TestRepeatedPostingReportAddsMissingURL(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) {
		p.Status = postEntity.StatusPosting
		p.UpdatedAt = receivedAt.Add(-time.Minute)
	})
	withURL := decode(t, outcome.Payload{
		PostID:      testutil.Ptr(p.ID.String()),
		Status:      "posting",
		LinkedinURL: testutil.Ptr("https://www.linkedin.com/feed/update/urn:li:activity:12"),
	})

	res, err := svc.ReportOutcome(context.Background(), withURL)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.NotNil(t, testutil.ReloadPost(t, db, p.ID).ExternalPostURL)

	res, err = svc.ReportOutcome(context.Background(), withURL)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID: testutil.Ptr(p.ID.String()),
		Status: "posting",
	}))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	row := testutil.ReloadPost(t, db, p.ID)
	require.NotNil(t, row.ExternalPostURL)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:12", *row.ExternalPostURL)
}

func TestRepeatedPostedIsNoop(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = postEntity.StatusPosting })
	req := decode(t, outcome.Payload{PostID: testutil.Ptr(p.ID.String()), Status: "posted"})

	first, err := svc.ReportOutcome(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := svc.ReportOutcome(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, "posted", second.Post.Status)

	assert.Equal(t, int64(1), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(1), testutil.NotificationCount(t, db, p.ID))
}

func TestConcurrentPostedReportsIncrementOnce(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = postEntity.StatusPosting })
	req := decode(t, outcome.Payload{PostID: testutil.Ptr(p.ID.String()), Status: "posted"})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ReportOutcome(context.Background(), req)
			if !assert.NoError(t, err) {
				return
			}
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(1), testutil.PublishedCount(t, db, owner))
}

func TestForeignOwnerCannotReport(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	intruder := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, nil)

	_, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID: testutil.Ptr(p.ID.String()),
		UserID: testutil.Ptr(intruder.String()),
		Status: "posted",
	}))
	assert.ErrorIs(t, err, postEntity.ErrForbidden)

	row := testutil.ReloadPost(t, db, p.ID)
	assert.Equal(t, postEntity.StatusPending, row.Status)
	assert.Equal(t, int64(0), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(0), testutil.NotificationCount(t, db, p.ID))
}

func TestTerminalPostsRejectFurtherReports(t *testing.T) {
	tests := []struct {
		from   postEntity.Status
		report string
	}{
		{postEntity.StatusPosted, "posting"},
		{postEntity.StatusPosted, "failed"},
		{postEntity.StatusFailed, "posted"},
		{postEntity.StatusFailed, "posting"},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.report, func(t *testing.T) {
			svc, db := newService(t)
			owner := testutil.NewAccount(t, db)
			p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = tt.from })

			_, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
				PostID: testutil.Ptr(p.ID.String()),
				Status: tt.report,
			}))
			assert.ErrorIs(t, err, postEntity.ErrPrecondition)
			assert.Equal(t, tt.from, testutil.ReloadPost(t, db, p.ID).Status)
		})
	}
}

func TestFailedWithoutReasonUsesDefault(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = postEntity.StatusPosting })

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID:    testutil.Ptr(p.ID.String()),
		Status:    "failed",
		LastError: testutil.Ptr("   "),
	}))
	require.NoError(t, err)
	assert.True(t, res.Applied)

	row := testutil.ReloadPost(t, db, p.ID)
	assert.Equal(t, postEntity.StatusFailed, row.Status)
	require.NotNil(t, row.LastError)
	assert.Equal(t, outcome.DefaultFailureReason, *row.LastError)
	assert.Equal(t, 1, row.RetryCount)
	assert.Equal(t, int64(0), testutil.PublishedCount(t, db, owner))
	assert.Equal(t, int64(1), testutil.NotificationCount(t, db, p.ID))
}

func TestLocateByTrackingID(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.TrackingID = testutil.Ptr("ps-track001") })

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		TrackingID: testutil.Ptr("ps-track001"),
		Status:     "posting",
	}))
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), res.Post.ID)
	assert.Equal(t, postEntity.StatusPosting, testutil.ReloadPost(t, db, p.ID).Status)
}

func TestUnknownPostIDFallsBackToTrackingID(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	p := testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.TrackingID = testutil.Ptr("ps-track002") })

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID:     testutil.Ptr(uuid.Must(uuid.NewV4()).String()),
		TrackingID: testutil.Ptr("ps-track002"),
		Status:     "posting",
	}))
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), res.Post.ID)
}

func TestSharedTrackingIDNeedsOwner(t *testing.T) {
	svc, db := newService(t)
	alice := testutil.NewAccount(t, db)
	bob := testutil.NewAccount(t, db)
	testutil.SeedPost(t, db, alice, func(p *postEntity.Post) { p.TrackingID = testutil.Ptr("ps-shared99") })
	bobs := testutil.SeedPost(t, db, bob, func(p *postEntity.Post) { p.TrackingID = testutil.Ptr("ps-shared99") })

	_, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		TrackingID: testutil.Ptr("ps-shared99"),
		Status:     "posting",
	}))
	assert.ErrorIs(t, err, postEntity.ErrValidation)

	res, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		TrackingID: testutil.Ptr("ps-shared99"),
		UserID:     testutil.Ptr(bob.String()),
		Status:     "posting",
	}))
	require.NoError(t, err)
	assert.Equal(t, bobs.ID.String(), res.Post.ID)
}

func TestUnknownPostIsNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		PostID: testutil.Ptr(uuid.Must(uuid.NewV4()).String()),
		Status: "posted",
	}))
	assert.ErrorIs(t, err, postEntity.ErrNotFound)

	_, err = svc.ReportOutcome(context.Background(), decode(t, outcome.Payload{
		TrackingID: testutil.Ptr("ps-missing0"),
		Status:     "posted",
	}))
	assert.ErrorIs(t, err, postEntity.ErrNotFound)
}
