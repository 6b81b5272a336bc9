package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
	"github.com/Sami2905/nexflow-backend/pkg/config"
)

type stubUserRepository struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
	created []*domain.User
	deleted []string
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrConflict
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	s.created = append(s.created, user)
	return nil
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, *u)
	}
	return users, nil
}

func (s *stubUserRepository) GetUsersByNames(ctx context.Context, names []string) ([]domain.User, error) {
	return nil, nil
}

func (s *stubUserRepository) UpdateUserSettings(ctx context.Context, id string, settings domain.UserSettings) (*domain.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Settings = settings
	return u, nil
}

func (s *stubUserRepository) UpdateUserPassword(ctx context.Context, id string, hash []byte) error {
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *stubUserRepository) DeleteUser(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}

func testService(repo *stubUserRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
	return New(repo, log, cfg)
}

func TestRegisterCreatesMemberAccount(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)

	user, token, err := svc.Register(context.Background(), "Alice", "Alice@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleMember {
		t.Fatalf("expected member role, got %q", user.Role)
	}
	if len(user.PasswordHash) == 0 || strings.Contains(string(user.PasswordHash), "secret1") {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := testService(newStubUserRepository())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, " ", "a@b.com", "secret1"); !errors.Is(err, errNameRequired) {
		t.Fatalf("expected errNameRequired, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "Alice", "not-an-email", "secret1"); !errors.Is(err, errEmailInvalid) {
		t.Fatalf("expected errEmailInvalid, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "Alice", "a@b.com", "short"); !errors.Is(err, errPasswordTooShort) {
		t.Fatalf("expected errPasswordTooShort, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, "Other", "a@b.com", "secret2"); !errors.Is(err, errEmailTaken) {
		t.Fatalf("expected errEmailTaken, got %v", err)
	}
}

func TestLoginRoundTrip(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, token, err := svc.Login(ctx, "A@B.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != registered.ID || token == "" {
		t.Fatalf("unexpected login result: user=%s token=%q", user.ID, token)
	}

	authed, claims, err := svc.Authorize(ctx, token)
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if authed.ID != registered.ID || claims.UserID != registered.ID {
		t.Fatal("token must resolve back to the registered user")
	}
}

func TestLoginHidesWhichFieldWasWrong(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, missingErr := svc.Login(ctx, "nobody@b.com", "secret1")
	_, _, wrongErr := svc.Login(ctx, "a@b.com", "wrong-password")
	if !errors.Is(missingErr, errInvalidCredentials) || !errors.Is(wrongErr, errInvalidCredentials) {
		t.Fatalf("expected identical credential errors, got %v and %v", missingErr, wrongErr)
	}
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "newsecret"); err == nil {
		t.Fatal("expected wrong current password to be rejected")
	}
	if err := svc.ChangePassword(ctx, user.ID, "secret1", "short"); !errors.Is(err, errPasswordTooShort) {
		t.Fatalf("expected errPasswordTooShort, got %v", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@b.com", "newsecret"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestDeleteAccountRequiresPassword(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.DeleteAccount(ctx, user.ID, "wrong"); err == nil {
		t.Fatal("expected wrong password to block deletion")
	}
	if err := svc.DeleteAccount(ctx, user.ID, "secret1"); err != nil {
		t.Fatalf("DeleteAccount returned error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != user.ID {
		t.Fatalf("expected user to be removed, deleted=%v", repo.deleted)
	}
}

func TestUpdateSettingsDefaultsLanguage(t *testing.T) {
	repo := newStubUserRepository()
	svc := testService(repo)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "Alice", "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	updated, err := svc.UpdateSettings(ctx, user.ID, domain.UserSettings{Language: " "})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if updated.Settings.Language != "en" {
		t.Fatalf("expected language fallback to en, got %q", updated.Settings.Language)
	}
}
