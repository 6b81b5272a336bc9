package search

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

type stubSearchRepository struct {
	searches map[string]*domain.SavedSearch
	defaults []string
}

func newStubSearchRepository() *stubSearchRepository {
	return &stubSearchRepository{searches: make(map[string]*domain.SavedSearch)}
}

func (s *stubSearchRepository) CreateSavedSearch(ctx context.Context, search *domain.SavedSearch) error {
	for _, existing := range s.searches {
		if existing.UserID == search.UserID && existing.Name == search.Name {
			return repository.ErrConflict
		}
	}
	copied := *search
	s.searches[search.ID] = &copied
	return nil
}

func (s *stubSearchRepository) GetSavedSearchByID(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error) {
	search, ok := s.searches[searchID]
	if !ok || search.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copied := *search
	return &copied, nil
}

func (s *stubSearchRepository) ListSavedSearchesByUser(ctx context.Context, userID string) ([]domain.SavedSearch, error) {
	var out []domain.SavedSearch
	for _, search := range s.searches {
		if search.UserID == userID {
			out = append(out, *search)
		}
	}
	return out, nil
}

func (s *stubSearchRepository) UpdateSavedSearch(ctx context.Context, search *domain.SavedSearch) error {
	stored, ok := s.searches[search.ID]
	if !ok || stored.UserID != search.UserID {
		return repository.ErrNotFound
	}
	for _, existing := range s.searches {
		if existing.ID != search.ID && existing.UserID == search.UserID && existing.Name == search.Name {
			return repository.ErrConflict
		}
	}
	copied := *search
	s.searches[search.ID] = &copied
	return nil
}

func (s *stubSearchRepository) DeleteSavedSearch(ctx context.Context, searchID, userID string) error {
	search, ok := s.searches[searchID]
	if !ok || search.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.searches, searchID)
	return nil
}

func (s *stubSearchRepository) SetDefaultSavedSearch(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error) {
	search, ok := s.searches[searchID]
	if !ok || search.UserID != userID {
		return nil, repository.ErrNotFound
	}
	s.defaults = append(s.defaults, searchID)
	for _, other := range s.searches {
		if other.UserID == userID {
			other.IsDefault = other.ID == searchID
		}
	}
	copied := *search
	copied.IsDefault = true
	return &copied, nil
}

func testService(repo *stubSearchRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateTrimsAndStores(t *testing.T) {
	repo := newStubSearchRepository()
	svc := testService(repo)

	search, err := svc.Create(context.Background(), "user-1", "  my highs  ", "  login  ", domain.SearchFilters{Priority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if search.Name != "my highs" || search.SearchTerm != "login" {
		t.Fatalf("stored name=%q term=%q, want trimmed values", search.Name, search.SearchTerm)
	}
	if search.ID == "" {
		t.Fatal("search ID not assigned")
	}
	if search.Filters.Priority != domain.PriorityHigh {
		t.Fatalf("filters = %+v", search.Filters)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := testService(newStubSearchRepository())
	if _, err := svc.Create(context.Background(), "user-1", "   ", "", domain.SearchFilters{}); !errors.Is(err, errNameRequired) {
		t.Fatalf("err = %v, want errNameRequired", err)
	}
}

func TestCreateRejectsDuplicateNamePerUser(t *testing.T) {
	repo := newStubSearchRepository()
	svc := testService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "my highs", "", domain.SearchFilters{}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "my highs", "", domain.SearchFilters{}); !errors.Is(err, errNameTaken) {
		t.Fatalf("err = %v, want errNameTaken", err)
	}
	// Another user may reuse the name.
	if _, err := svc.Create(ctx, "user-2", "my highs", "", domain.SearchFilters{}); err != nil {
		t.Fatalf("other user's Create: %v", err)
	}
}

func TestUpdateChecksOwnershipAndConflicts(t *testing.T) {
	repo := newStubSearchRepository()
	svc := testService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1", "alpha", "", domain.SearchFilters{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "beta", "", domain.SearchFilters{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(ctx, "user-2", first.ID, "renamed", "", domain.SearchFilters{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign update err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "user-1", first.ID, "beta", "", domain.SearchFilters{}); !errors.Is(err, errNameTaken) {
		t.Fatalf("rename onto taken name err = %v, want errNameTaken", err)
	}

	updated, err := svc.Update(ctx, "user-1", first.ID, "gamma", "crash", domain.SearchFilters{Status: domain.StatusOpen})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "gamma" || updated.SearchTerm != "crash" || updated.Filters.Status != domain.StatusOpen {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestSetDefaultClearsPrevious(t *testing.T) {
	repo := newStubSearchRepository()
	svc := testService(repo)
	ctx := context.Background()

	first, _ := svc.Create(ctx, "user-1", "alpha", "", domain.SearchFilters{})
	second, _ := svc.Create(ctx, "user-1", "beta", "", domain.SearchFilters{})

	if _, err := svc.SetDefault(ctx, "user-1", first.ID); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	marked, err := svc.SetDefault(ctx, "user-1", second.ID)
	if err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if !marked.IsDefault {
		t.Fatal("second search not marked default")
	}
	if repo.searches[first.ID].IsDefault {
		t.Fatal("previous default not cleared")
	}

	if _, err := svc.SetDefault(ctx, "user-2", second.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign SetDefault err = %v, want ErrNotFound", err)
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	repo := newStubSearchRepository()
	svc := testService(repo)
	ctx := context.Background()

	search, _ := svc.Create(ctx, "user-1", "alpha", "", domain.SearchFilters{})
	if err := svc.Delete(ctx, "user-2", search.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "user-1", search.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.searches) != 0 {
		t.Fatalf("search not removed: %+v", repo.searches)
	}
}
