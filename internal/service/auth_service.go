package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
	"github.com/roomyhq/roomy-server/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidGoogleToken = errors.New("invalid google id token")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("not allowed")
	ErrSessionInvalid     = errors.New("session is expired or revoked")
)

type AuthConfig struct {
	SessionTTL time.Duration
	GoogleAud  string
}

type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	tokens   *util.JWTManager

	sessionTTL time.Duration
	googleAud  string
	now        func() time.Time

	validateIDToken func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, tokens *util.JWTManager, cfg AuthConfig) *AuthService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:           users,
		sessions:        sessions,
		tokens:          tokens,
		sessionTTL:      ttl,
		googleAud:       cfg.GoogleAud,
		now:             time.Now,
		validateIDToken: idtoken.Validate,
	}
}

func (s *AuthService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCredentials)
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Plan:         domain.PlanFree,
		AICredits:    domain.LimitsFor(domain.PlanFree).MonthlyAICredits,
	}
	if name := strings.TrimSpace(displayName); name != "" {
		user.DisplayName = &name
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.issue(ctx, created)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (*AuthResult, error) {
	payload, err := s.validateIDToken(ctx, idTok, s.googleAud)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if normalizeEmail(email) == "" {
		return nil, ErrInvalidGoogleToken
	}

	user, err := s.users.UpsertByEmail(ctx, normalizeEmail(email), strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

// Authenticate resolves a bearer token to its user. Both the JWT signature
// and the backing session row must still be valid.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	session, err := s.sessions.FindActiveSession(ctx, token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if !session.IsActive || s.now().After(session.ExpiresAt) {
		return nil, ErrSessionInvalid
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Email, user.Plan)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
