package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"postsync/internal/core/notification"
)

func TestDeliverPostsWebhook(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := notification.Failed(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), 0, "Session expired")
	require.NoError(t, NewNotifier(srv.URL, zap.NewNop()).Deliver(context.Background(), n))

	assert.Contains(t, got["text"], ":x:")
	assert.Contains(t, got["text"], "Session expired")
	assert.NotEmpty(t, got["blocks"])
}

func TestDeliverReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := notification.Published(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), 0, nil)
	assert.Error(t, NewNotifier(srv.URL, zap.NewNop()).Deliver(context.Background(), n))
}
