package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

const (
	trendDays          = 30
	topContributorsMax = 10
)

// Service serves activity feeds and aggregate views.
type Service struct {
	activities repository.ActivityRepository
	projects   repository.ProjectRepository
	engine     policy.Engine
	logger     *slog.Logger
}

// New returns an activity service.
func New(activities repository.ActivityRepository, projects repository.ProjectRepository, engine policy.Engine, logger *slog.Logger) Service {
	return Service{activities: activities, projects: projects, engine: engine, logger: logger}
}

var (
	errTypeRequired    = errors.New("activity type is required")
	errMessageRequired = errors.New("activity message is required")
)

// Feed returns a readable project's activity log newest first.
func (s Service) Feed(ctx context.Context, actor policy.Principal, projectID string, limit int) ([]domain.Activity, error) {
	if err := s.checkRead(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.activities.ListActivitiesByProject(ctx, projectID, limit)
}

// Append records a manual activity entry on a readable project and
// broadcasts it on the project topic.
func (s Service) Append(ctx context.Context, actor policy.Principal, projectID, typ, message string) (*domain.Activity, error) {
	if err := s.checkRead(ctx, actor, projectID); err != nil {
		return nil, err
	}
	typ = strings.TrimSpace(typ)
	message = strings.TrimSpace(message)
	if typ == "" {
		return nil, errTypeRequired
	}
	if message == "" {
		return nil, errMessageRequired
	}
	fx := policy.ManualActivity(actor, projectID, typ, message)
	if err := s.activities.InsertActivity(ctx, fx.Activity, fx.Events); err != nil {
		return nil, err
	}
	return fx.Activity, nil
}

// Trends returns one point per day for the last 30 days across the actor's
// visible projects, zero-filled so charts render gapless. Zero memberships
// yield 30 zero points.
func (s Service) Trends(ctx context.Context, actor policy.Principal) ([]domain.TrendPoint, error) {
	visible, err := s.projects.ListProjectIDsByMember(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(trendDays - 1))
	counts, err := s.activities.ActivityTrends(ctx, visible, since)
	if err != nil {
		return nil, err
	}
	points := make([]domain.TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, domain.TrendPoint{Date: day, Count: counts[day]})
	}
	return points, nil
}

// TopContributors ranks users by activity across the actor's visible
// projects. Zero memberships yield an empty list.
func (s Service) TopContributors(ctx context.Context, actor policy.Principal) ([]domain.Contributor, error) {
	visible, err := s.projects.ListProjectIDsByMember(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.activities.TopContributors(ctx, visible, topContributorsMax)
}

func (s Service) checkRead(ctx context.Context, actor policy.Principal, projectID string) error {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.engine.Authorize(actor, policy.ProjectRead, policy.Target{}).Err()
		}
		return err
	}
	return s.engine.Authorize(actor, policy.ProjectRead, policy.Target{Project: p}).Err()
}
