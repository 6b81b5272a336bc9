package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Service manages per-user saved bug searches.
type Service struct {
	searches repository.SavedSearchRepository
	logger   *slog.Logger
}

// New returns a saved-search service.
func New(searches repository.SavedSearchRepository, logger *slog.Logger) Service {
	return Service{searches: searches, logger: logger}
}

var (
	errNameRequired = errors.New("search name is required")
	errNameTaken    = errors.New("a saved search with this name already exists")
)

// Create stores a named search for the actor. Names are unique per user.
func (s Service) Create(ctx context.Context, userID, name, term string, filters domain.SearchFilters) (*domain.SavedSearch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameRequired
	}
	search := &domain.SavedSearch{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		SearchTerm: strings.TrimSpace(term),
		Filters:    filters,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.searches.CreateSavedSearch(ctx, search); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errNameTaken
		}
		return nil, err
	}
	return search, nil
}

// List returns the actor's saved searches, default first.
func (s Service) List(ctx context.Context, userID string) ([]domain.SavedSearch, error) {
	return s.searches.ListSavedSearchesByUser(ctx, userID)
}

// Update rewrites a saved search the actor owns.
func (s Service) Update(ctx context.Context, userID, searchID, name, term string, filters domain.SearchFilters) (*domain.SavedSearch, error) {
	search, err := s.searches.GetSavedSearchByID(ctx, searchID, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameRequired
	}
	search.Name = name
	search.SearchTerm = strings.TrimSpace(term)
	search.Filters = filters
	if err := s.searches.UpdateSavedSearch(ctx, search); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errNameTaken
		}
		return nil, err
	}
	return search, nil
}

// Delete removes a saved search the actor owns.
func (s Service) Delete(ctx context.Context, userID, searchID string) error {
	return s.searches.DeleteSavedSearch(ctx, searchID, userID)
}

// SetDefault marks one search as the actor's default, clearing any other.
func (s Service) SetDefault(ctx context.Context, userID, searchID string) (*domain.SavedSearch, error) {
	return s.searches.SetDefaultSavedSearch(ctx, searchID, userID)
}
