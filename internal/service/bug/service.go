package bug

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Service orchestrates bugs, comments, and attachment records.
type Service struct {
	bugs      repository.BugRepository
	comments  repository.CommentRepository
	projects  repository.ProjectRepository
	users     repository.UserRepository
	engine    policy.Engine
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// New returns a bug service. Rich text fields are sanitized with a UGC
// policy before persistence.
func New(bugs repository.BugRepository, comments repository.CommentRepository, projects repository.ProjectRepository, users repository.UserRepository, engine policy.Engine, logger *slog.Logger) Service {
	return Service{
		bugs:      bugs,
		comments:  comments,
		projects:  projects,
		users:     users,
		engine:    engine,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

var (
	errTitleRequired   = errors.New("title is required")
	errProjectRequired = errors.New("project is required")
	errBodyRequired    = errors.New("comment text is required")
	errInvalidStatus   = errors.New("invalid status")
	errInvalidPriority = errors.New("invalid priority")
	errWrongBug        = errors.New("comment does not belong to this bug")
	errFilenameAndURL  = errors.New("filename and url are required")
)

var priorities = map[string]bool{
	domain.PriorityLow:    true,
	domain.PriorityMedium: true,
	domain.PriorityHigh:   true,
}

// CreateInput carries new bug attributes.
type CreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  string
	Tags        []string
}

// UpdateInput carries optional bug mutations; nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssignedTo  *string
	Tags        *[]string
}

// Create files a bug in a project the actor can read.
func (s Service) Create(ctx context.Context, actor policy.Principal, input CreateInput) (*domain.Bug, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, errProjectRequired
	}
	p, err := s.readableProject(ctx, actor, input.ProjectID)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, errTitleRequired
	}
	if input.Status == "" {
		input.Status = domain.StatusOpen
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !priorities[input.Priority] {
		return nil, errInvalidPriority
	}
	now := time.Now().UTC()
	b := &domain.Bug{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Title:       input.Title,
		Description: s.sanitizer.Sanitize(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		AssignedTo:  strings.TrimSpace(input.AssignedTo),
		CreatedBy:   actor.ID,
		Tags:        normalizeTags(input.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bugs.CreateBug(ctx, b, policy.BugCreated(actor, b)); err != nil {
		return nil, err
	}
	s.logger.Info("bug created", "bug_id", b.ID, "project_id", b.ProjectID, "user_id", actor.ID)
	return b, nil
}

// Get returns a bug the actor may read.
func (s Service) Get(ctx context.Context, actor policy.Principal, bugID string) (*domain.Bug, error) {
	b, _, err := s.readableBug(ctx, actor, bugID)
	return b, err
}

// List returns a filtered page of bugs across the actor's visible projects,
// along with the total match count.
func (s Service) List(ctx context.Context, actor policy.Principal, filter repository.BugFilter) ([]domain.Bug, int, error) {
	visible, err := s.projects.ListProjectIDsByMember(ctx, actor.ID)
	if err != nil {
		return nil, 0, err
	}
	if len(visible) == 0 {
		return []domain.Bug{}, 0, nil
	}
	filter.ProjectIDs = visible
	return s.bugs.ListBugs(ctx, filter)
}

// Update applies partial bug mutations under the edit policy and diffs the
// result for fan-out.
func (s Service) Update(ctx context.Context, actor policy.Principal, bugID string, input UpdateInput) (*domain.Bug, error) {
	b, p, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Authorize(actor, policy.BugUpdate, policy.Target{Project: p, Bug: b}).Err(); err != nil {
		return nil, err
	}

	old := *b
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errTitleRequired
		}
		b.Title = title
	}
	if input.Description != nil {
		b.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Status != nil {
		if strings.TrimSpace(*input.Status) == "" {
			return nil, errInvalidStatus
		}
		b.Status = *input.Status
	}
	if input.Priority != nil {
		if !priorities[*input.Priority] {
			return nil, errInvalidPriority
		}
		b.Priority = *input.Priority
	}
	if input.AssignedTo != nil {
		b.AssignedTo = strings.TrimSpace(*input.AssignedTo)
	}
	if input.Tags != nil {
		b.Tags = normalizeTags(*input.Tags)
	}
	b.UpdatedAt = time.Now().UTC()

	if err := s.bugs.UpdateBug(ctx, b, policy.BugUpdated(actor, &old, b)); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a bug under the edit policy.
func (s Service) Delete(ctx context.Context, actor policy.Principal, bugID string) error {
	b, p, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return err
	}
	if err := s.engine.Authorize(actor, policy.BugDelete, policy.Target{Project: p, Bug: b}).Err(); err != nil {
		return err
	}
	if err := s.bugs.DeleteBug(ctx, bugID, policy.BugDeleted(actor, b)); err != nil {
		return err
	}
	s.logger.Info("bug deleted", "bug_id", bugID, "user_id", actor.ID)
	return nil
}

// Stats aggregates dashboard counts over the actor's visible projects.
// Zero memberships yield zero counts, not an error.
func (s Service) Stats(ctx context.Context, actor policy.Principal) (domain.BugStats, error) {
	visible, err := s.projects.ListProjectIDsByMember(ctx, actor.ID)
	if err != nil {
		return domain.BugStats{}, err
	}
	return s.bugs.BugStats(ctx, visible)
}

// ProjectStats returns per-project open/closed counts for visible projects.
func (s Service) ProjectStats(ctx context.Context, actor policy.Principal) ([]domain.ProjectBugCount, error) {
	visible, err := s.projects.ListProjectIDsByMember(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.bugs.ProjectBugCounts(ctx, visible)
}

// AddAttachment appends an attachment record to a readable bug. The binary
// itself lives in external storage; only the reference is tracked.
func (s Service) AddAttachment(ctx context.Context, actor policy.Principal, bugID, filename, url string) (*domain.Attachment, error) {
	b, _, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return nil, err
	}
	filename = strings.TrimSpace(filename)
	url = strings.TrimSpace(url)
	if filename == "" || url == "" {
		return nil, errFilenameAndURL
	}
	a := &domain.Attachment{
		BugID:      b.ID,
		Filename:   filename,
		URL:        url,
		UploadedBy: actor.ID,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.bugs.AddAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListComments returns a readable bug's comments oldest first.
func (s Service) ListComments(ctx context.Context, actor policy.Principal, bugID string) ([]domain.Comment, error) {
	b, _, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return nil, err
	}
	return s.comments.ListCommentsByBug(ctx, b.ID)
}

// AddComment stores a comment and notifies every user whose display name
// exactly matches an @token in the raw body. Self-mentions are skipped.
func (s Service) AddComment(ctx context.Context, actor policy.Principal, bugID, body string) (*domain.Comment, error) {
	b, _, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return nil, err
	}
	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(body))
	if sanitized == "" {
		return nil, errBodyRequired
	}
	now := time.Now().UTC()
	c := &domain.Comment{
		ID:        uuid.NewString(),
		BugID:     b.ID,
		AuthorID:  actor.ID,
		Body:      sanitized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mentioned, err := s.mentionedUsers(ctx, body)
	if err != nil {
		return nil, err
	}
	if err := s.comments.CreateComment(ctx, c, policy.CommentAdded(actor, b, c, mentioned)); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComment edits a comment under the author-only policy.
func (s Service) UpdateComment(ctx context.Context, actor policy.Principal, bugID, commentID, body string) (*domain.Comment, error) {
	b, p, c, err := s.loadComment(ctx, actor, bugID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Authorize(actor, policy.CommentUpdate, policy.Target{Project: p, Comment: c}).Err(); err != nil {
		return nil, err
	}
	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(body))
	if sanitized == "" {
		return nil, errBodyRequired
	}
	c.Body = sanitized
	c.UpdatedAt = time.Now().UTC()
	if err := s.comments.UpdateComment(ctx, c, policy.CommentUpdated(b, c)); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment under the author-only policy.
func (s Service) DeleteComment(ctx context.Context, actor policy.Principal, bugID, commentID string) error {
	b, p, c, err := s.loadComment(ctx, actor, bugID, commentID)
	if err != nil {
		return err
	}
	if err := s.engine.Authorize(actor, policy.CommentDelete, policy.Target{Project: p, Comment: c}).Err(); err != nil {
		return err
	}
	return s.comments.DeleteComment(ctx, c.ID, policy.CommentDeleted(b, c.ID))
}

func (s Service) mentionedUsers(ctx context.Context, body string) ([]domain.User, error) {
	tokens := policy.MentionTokens(body)
	if len(tokens) == 0 {
		return nil, nil
	}
	return s.users.GetUsersByNames(ctx, tokens)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// readableProject loads a project and enforces read access.
func (s Service) readableProject(ctx context.Context, actor policy.Principal, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.engine.Authorize(actor, policy.ProjectRead, policy.Target{}).Err()
		}
		return nil, err
	}
	if err := s.engine.Authorize(actor, policy.ProjectRead, policy.Target{Project: p}).Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// readableBug loads a bug with its project and enforces read access. Bugs in
// unreadable projects are reported as missing.
func (s Service) readableBug(ctx context.Context, actor policy.Principal, bugID string) (*domain.Bug, *domain.Project, error) {
	b, err := s.bugs.GetBugByID(ctx, bugID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, s.engine.Authorize(actor, policy.BugRead, policy.Target{}).Err()
		}
		return nil, nil, err
	}
	p, err := s.projects.GetProjectByID(ctx, b.ProjectID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}
	if err := s.engine.Authorize(actor, policy.BugRead, policy.Target{Project: p, Bug: b}).Err(); err != nil {
		return nil, nil, err
	}
	return b, p, nil
}

func (s Service) loadComment(ctx context.Context, actor policy.Principal, bugID, commentID string) (*domain.Bug, *domain.Project, *domain.Comment, error) {
	b, p, err := s.readableBug(ctx, actor, bugID)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if c.BugID != b.ID {
		return nil, nil, nil, errWrongBug
	}
	return b, p, c, nil
}
