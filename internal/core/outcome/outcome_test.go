package outcome

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postsync/internal/core/post"
)

func str(s string) *string { return &s }

func TestDecodePostedDefaultsPublishTime(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	received := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	req, err := Payload{
		PostID:      str(id.String()),
		Status:      "posted",
		LinkedinURL: str("https://linkedin.com/feed/update/123"),
	}.Decode(received)
	require.NoError(t, err)

	posted, ok := req.Report.(Posted)
	require.True(t, ok)
	assert.Equal(t, received, posted.PostedAt)
	assert.Equal(t, "https://linkedin.com/feed/update/123", *posted.URL)
	assert.Nil(t, posted.ExternalID)
	assert.Equal(t, id, *req.Target.PostID)
	assert.Nil(t, req.Target.ClaimedOwner)
}

func TestDecodePostedKeepsSuppliedTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("x", 3600))
	req, err := Payload{TrackingID: str("ps-1234abcd"), Status: "posted", PostedAt: &at}.Decode(time.Now())
	require.NoError(t, err)

	posted := req.Report.(Posted)
	assert.True(t, at.Equal(posted.PostedAt))
	assert.Equal(t, time.UTC, posted.PostedAt.Location())
	assert.Nil(t, posted.URL)
}

func TestDecodeFailedDefaultsReason(t *testing.T) {
	req, err := Payload{TrackingID: str("ps-1234abcd"), Status: "failed", LastError: str("   ")}.Decode(time.Now())
	require.NoError(t, err)
	assert.Equal(t, Failed{Reason: DefaultFailureReason}, req.Report)
	assert.Equal(t, post.StatusFailed, req.Report.Status())
}

func TestDecodeRejects(t *testing.T) {
	valid := uuid.Must(uuid.NewV4()).String()
	tests := []struct {
		name    string
		payload Payload
	}{
		{"no identifier", Payload{Status: "posted"}},
		{"blank identifiers", Payload{PostID: str(" "), TrackingID: str(""), Status: "posted"}},
		{"bad post id", Payload{PostID: str("nope"), Status: "posted"}},
		{"bad user id", Payload{PostID: str(valid), UserID: str("nope"), Status: "posted"}},
		{"pending", Payload{PostID: str(valid), Status: "pending"}},
		{"unknown status", Payload{PostID: str(valid), Status: "archived"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.payload.Decode(time.Now())
			assert.ErrorIs(t, err, post.ErrValidation)
		})
	}
}

func TestDecodeClaimedOwner(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())
	req, err := Payload{TrackingID: str("ps-1234abcd"), UserID: str(owner.String()), Status: "posting"}.Decode(time.Now())
	require.NoError(t, err)
	assert.Equal(t, owner, *req.Target.ClaimedOwner)
	assert.Equal(t, "ps-1234abcd", req.Target.TrackingID)
	assert.Equal(t, Posting{}, req.Report)
}

func TestDecodePostingKeepsURL(t *testing.T) {
	req, err := Payload{
		TrackingID:     str("ps-1234abcd"),
		Status:         "posting",
		LinkedinURL:    str(" https://www.linkedin.com/feed/update/urn:li:activity:3 "),
		LinkedinPostID: str("urn:li:activity:3"),
	}.Decode(time.Now())
	require.NoError(t, err)

	posting, ok := req.Report.(Posting)
	require.True(t, ok)
	require.NotNil(t, posting.URL)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:3", *posting.URL)
	require.NotNil(t, posting.ExternalID)
	assert.Equal(t, "urn:li:activity:3", *posting.ExternalID)
}
