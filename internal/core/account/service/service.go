package accountapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	accountEntity "postsync/internal/core/account"
	postEntity "postsync/internal/core/post"
	accountPort "postsync/internal/ports/account"
	postPort "postsync/internal/ports/post"
)

const (
	tokenIssuer = "postsync"
	tokenTTL    = 24 * time.Hour
)

// AccountService handles registration, login and the per-account publish
// counter.
type AccountService struct {
	AccountRepository accountPort.AccountRepository
	PostRepository    postPort.PostRepository
	Logger            *zap.Logger
	jwtKey            []byte
	validate          *validator.Validate
}

func NewAccountService(repo accountPort.AccountRepository, posts postPort.PostRepository, logger *zap.Logger, jwtKey []byte) *AccountService {
	return &AccountService{
		AccountRepository: repo,
		PostRepository:    posts,
		Logger:            logger,
		jwtKey:            jwtKey,
		validate:          validator.New(),
	}
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Login checks the password and issues a signed bearer token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*accountPort.LoginResponse, error) {
	a, err := s.AccountRepository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, postEntity.ErrNotFound) {
			return nil, accountEntity.ErrInvalidCredentials
		}
		s.Logger.Error("❌ Error finding account", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)); err != nil {
		s.Logger.Info("🔒 Invalid password", zap.String("accountID", a.ID.String()))
		return nil, accountEntity.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(tokenTTL)
	token, err := s.generateJWT(a, expiresAt)
	if err != nil {
		s.Logger.Error("❌ Error generating JWT", zap.Error(err))
		return nil, errors.New("could not generate token")
	}
	return &accountPort.LoginResponse{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}

func (s *AccountService) generateJWT(a *accountEntity.Account, expiresAt time.Time) (string, error) {
	claims := &jwt.StandardClaims{
		Subject:   a.ID.String(),
		Issuer:    tokenIssuer,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtKey)
}

// Authenticate returns the account id carried by a valid bearer token.
func (s *AccountService) Authenticate(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return "", accountEntity.ErrInvalidCredentials
	}
	if _, err := uuid.FromString(claims.Subject); err != nil {
		return "", accountEntity.ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, email, password string) (*accountPort.AccountDTO, error) {
	email = normalizeEmail(email)
	if err := s.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s failed %s", postEntity.ErrValidation, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", postEntity.ErrValidation, err)
	}

	if existing, err := s.AccountRepository.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, accountEntity.ErrEmailTaken
	} else if err != nil && !errors.Is(err, postEntity.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a := &accountEntity.Account{
		ID:       uuid.Must(uuid.NewV4()),
		Email:    email,
		Password: string(hashed),
	}
	if err := s.AccountRepository.Create(ctx, a); err != nil {
		if errors.Is(err, postEntity.ErrValidation) {
			return nil, accountEntity.ErrEmailTaken
		}
		return nil, err
	}

	s.Logger.Info("👤 Registered account", zap.String("accountID", a.ID.String()))
	return accountPort.ToDTO(a), nil
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*accountPort.AccountDTO, error) {
	id, err := uuid.FromString(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account id", postEntity.ErrValidation)
	}
	a, err := s.AccountRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return accountPort.ToDTO(a), nil
}

// ConnectLinkedIn stores the profile URL the extension publishes as. Token
// handling stays with the credential store.
func (s *AccountService) ConnectLinkedIn(ctx context.Context, accountID, profileURL string) (*accountPort.AccountDTO, error) {
	id, err := uuid.FromString(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account id", postEntity.ErrValidation)
	}
	profileURL = strings.TrimSpace(profileURL)
	if err := s.validate.Var(profileURL, "required,url"); err != nil {
		return nil, fmt.Errorf("%w: profileUrl must be a URL", postEntity.ErrValidation)
	}
	if err := s.AccountRepository.SetLinkedInProfile(ctx, id, profileURL); err != nil {
		return nil, err
	}
	return s.Get(ctx, accountID)
}

// RecountPublished recomputes the counter from the posted rows. The counter
// normally only moves with a posted transition; this is for repair.
func (s *AccountService) RecountPublished(ctx context.Context, accountID string) (*accountPort.AccountDTO, error) {
	id, err := uuid.FromString(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account id", postEntity.ErrValidation)
	}
	n, err := s.PostRepository.CountPosted(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.AccountRepository.SetPublishedCount(ctx, id, n); err != nil {
		return nil, err
	}
	s.Logger.Info("🔢 Recounted published posts", zap.String("accountID", accountID), zap.Int64("count", n))
	return s.Get(ctx, accountID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
