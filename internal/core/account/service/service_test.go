package accountapp

import (
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"postsync/internal/adapters/database"
	accountEntity "postsync/internal/core/account"
	postEntity "postsync/internal/core/post"
	"postsync/internal/testutil"
)

var testKey = []byte("test-secret")

func newService(t *testing.T) (*AccountService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewAccountService(
		database.NewAccountRepositoryDatabase(db),
		database.NewPostRepositoryDatabase(db),
		zap.NewNop(),
		testKey,
	), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "  Writer@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", a.Email)
	assert.Zero(t, a.PublishedCount)

	res, err := svc.Login(ctx, "writer@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Greater(t, res.ExpiresAt, time.Now().Unix())

	userID, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, userID)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dup@example.com", "long enough")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "DUP@example.com", "long enough")
	assert.ErrorIs(t, err, accountEntity.ErrEmailTaken)

	_, err = svc.Register(ctx, "not-an-email", "long enough")
	assert.ErrorIs(t, err, postEntity.ErrValidation)

	_, err = svc.Register(ctx, "short@example.com", "short")
	assert.ErrorIs(t, err, postEntity.ErrValidation)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "me@example.com", "right password")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "me@example.com", "wrong password")
	assert.ErrorIs(t, err, accountEntity.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "right password")
	assert.ErrorIs(t, err, accountEntity.ErrInvalidCredentials)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _ := newService(t)

	sign := func(key []byte, claims jwt.StandardClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.StandardClaims{Subject: uuid.Must(uuid.NewV4()).String(), ExpiresAt: time.Now().Add(time.Hour).Unix()}

	tests := map[string]string{
		"garbage":     "not.a.token",
		"wrong key":   sign([]byte("other"), valid),
		"expired":     sign(testKey, jwt.StandardClaims{Subject: valid.Subject, ExpiresAt: time.Now().Add(-time.Hour).Unix()}),
		"bad subject": sign(testKey, jwt.StandardClaims{Subject: "admin", ExpiresAt: valid.ExpiresAt}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(token)
			assert.ErrorIs(t, err, accountEntity.ErrInvalidCredentials)
		})
	}

	id, err := svc.Authenticate(sign(testKey, valid))
	require.NoError(t, err)
	assert.Equal(t, valid.Subject, id)
}

func TestConnectLinkedIn(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)

	a, err := svc.ConnectLinkedIn(context.Background(), owner.String(), " https://www.linkedin.com/in/someone ")
	require.NoError(t, err)
	require.NotNil(t, a.LinkedInProfile)
	assert.Equal(t, "https://www.linkedin.com/in/someone", *a.LinkedInProfile)

	_, err = svc.ConnectLinkedIn(context.Background(), owner.String(), "nope")
	assert.ErrorIs(t, err, postEntity.ErrValidation)
}

func TestRecountPublished(t *testing.T) {
	svc, db := newService(t)
	owner := testutil.NewAccount(t, db)
	testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = postEntity.StatusPosted })
	testutil.SeedPost(t, db, owner, func(p *postEntity.Post) { p.Status = postEntity.StatusPosted })
	testutil.SeedPost(t, db, owner, nil)

	a, err := svc.RecountPublished(context.Background(), owner.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.PublishedCount)
	assert.Equal(t, int64(2), testutil.PublishedCount(t, db, owner))
}

func TestGetUnknownAccount(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), uuid.Must(uuid.NewV4()).String())
	assert.ErrorIs(t, err, postEntity.ErrNotFound)

	_, err = svc.Get(context.Background(), "x")
	assert.ErrorIs(t, err, postEntity.ErrValidation)
}
