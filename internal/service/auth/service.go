package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
	"github.com/Sami2905/nexflow-backend/pkg/config"
	"github.com/Sami2905/nexflow-backend/pkg/crypto"
	jwtpkg "github.com/Sami2905/nexflow-backend/pkg/jwt"
)

// Service handles account workflows.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

var (
	errNameRequired       = errors.New("name is required")
	errEmailInvalid       = errors.New("a valid email is required")
	errPasswordTooShort   = errors.New("password must be at least 6 characters")
	errEmailTaken         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid email or password")
	errTokenRequired      = errors.New("token required")
)

// Register creates an account and returns it with a signed access token.
func (s Service) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", errNameRequired
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", errEmailInvalid
	}
	if len(password) < 6 {
		return nil, "", errPasswordTooShort
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleMember,
		Settings:     domain.DefaultSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", errEmailTaken
		}
		return nil, "", err
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user. Missing accounts and wrong passwords return
// the same error so probing cannot tell them apart.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", errInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errTokenRequired
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Me returns the account behind an authenticated request.
func (s Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// ListUsers returns the member directory used for assignee pickers.
func (s Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

// UpdateSettings replaces a user's preference fields.
func (s Service) UpdateSettings(ctx context.Context, userID string, settings domain.UserSettings) (*domain.User, error) {
	if strings.TrimSpace(settings.Language) == "" {
		settings.Language = "en"
	}
	return s.users.UpdateUserSettings(ctx, userID, settings)
}

// ChangePassword verifies the current password before storing a new hash.
func (s Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := crypto.ComparePassword(user.PasswordHash, current); err != nil {
		return errors.New("current password is incorrect")
	}
	if len(next) < 6 {
		return errPasswordTooShort
	}
	hash, err := crypto.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// DeleteAccount removes the account after a password check.
func (s Service) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return errors.New("password is incorrect")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}
