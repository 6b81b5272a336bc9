package bug

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository"
	"github.com/Sami2905/nexflow-backend/pkg/config"
)

type stubBugRepository struct {
	bugs        map[string]*domain.Bug
	fanouts     []*domain.Fanout
	attachments []*domain.Attachment
	lastFilter  repository.BugFilter
}

func newStubBugRepository() *stubBugRepository {
	return &stubBugRepository{bugs: make(map[string]*domain.Bug)}
}

func (s *stubBugRepository) CreateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error {
	clone := *bug
	s.bugs[bug.ID] = &clone
	s.fanouts = append(s.fanouts, fx)
	return nil
}

func (s *stubBugRepository) GetBugByID(ctx context.Context, bugID string) (*domain.Bug, error) {
	if b, ok := s.bugs[bugID]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubBugRepository) ListBugs(ctx context.Context, filter repository.BugFilter) ([]domain.Bug, int, error) {
	s.lastFilter = filter
	out := make([]domain.Bug, 0)
	for _, b := range s.bugs {
		for _, id := range filter.ProjectIDs {
			if b.ProjectID == id {
				out = append(out, *b)
			}
		}
	}
	return out, len(out), nil
}

func (s *stubBugRepository) UpdateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error {
	if _, ok := s.bugs[bug.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *bug
	s.bugs[bug.ID] = &clone
	s.fanouts = append(s.fanouts, fx)
	return nil
}

func (s *stubBugRepository) DeleteBug(ctx context.Context, bugID string, fx *domain.Fanout) error {
	if _, ok := s.bugs[bugID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.bugs, bugID)
	s.fanouts = append(s.fanouts, fx)
	return nil
}

func (s *stubBugRepository) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	attachment.ID = int64(len(s.attachments) + 1)
	s.attachments = append(s.attachments, attachment)
	return nil
}

func (s *stubBugRepository) BugStats(ctx context.Context, projectIDs []string) (domain.BugStats, error) {
	var stats domain.BugStats
	for _, b := range s.bugs {
		for _, id := range projectIDs {
			if b.ProjectID != id {
				continue
			}
			stats.Total++
			switch b.Status {
			case domain.StatusOpen:
				stats.Open++
			case domain.StatusClosed:
				stats.Closed++
			}
		}
	}
	return stats, nil
}

func (s *stubBugRepository) ProjectBugCounts(ctx context.Context, projectIDs []string) ([]domain.ProjectBugCount, error) {
	return nil, nil
}

type stubCommentRepository struct {
	comments map[string]*domain.Comment
	fanouts  []*domain.Fanout
}

func newStubCommentRepository() *stubCommentRepository {
	return &stubCommentRepository{comments: make(map[string]*domain.Comment)}
}

func (s *stubCommentRepository) CreateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error {
	clone := *comment
	s.comments[comment.ID] = &clone
	s.fanouts = append(s.fanouts, fx)
	return nil
}

func (s *stubCommentRepository) GetCommentByID(ctx context.Context, commentID string) (*domain.Comment, error) {
	if c, ok := s.comments[commentID]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubCommentRepository) ListCommentsByBug(ctx context.Context, bugID string) ([]domain.Comment, error) {
	out := make([]domain.Comment, 0)
	for _, c := range s.comments {
		if c.BugID == bugID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCommentRepository) UpdateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error {
	if _, ok := s.comments[comment.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *comment
	s.comments[comment.ID] = &clone
	s.fanouts = append(s.fanouts, fx)
	return nil
}

func (s *stubCommentRepository) DeleteComment(ctx context.Context, commentID string, fx *domain.Fanout) error {
	if _, ok := s.comments[commentID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.comments, commentID)
	s.fanouts = append(s.fanouts, fx)
	return nil
}

type stubProjectReader struct {
	projects map[string]*domain.Project
}

func (s *stubProjectReader) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	if p, ok := s.projects[projectID]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubProjectReader) ListProjectIDsByMember(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for _, p := range s.projects {
		if _, ok := p.MemberOf(userID); ok {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s *stubProjectReader) CreateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	return nil, nil
}
func (s *stubProjectReader) UpdateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) DeleteProject(ctx context.Context, projectID string, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) AddMember(ctx context.Context, member *domain.Member, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) RemoveMember(ctx context.Context, projectID, userID string, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) UpdateMemberRole(ctx context.Context, projectID, userID, role string, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) AddInvite(ctx context.Context, invite *domain.Invite, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) RemoveInvite(ctx context.Context, projectID, email string, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) AcceptInvite(ctx context.Context, projectID, email string, member *domain.Member, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) SetArchived(ctx context.Context, projectID string, archived bool, fx *domain.Fanout) error {
	return nil
}
func (s *stubProjectReader) TransferOwnership(ctx context.Context, projectID, fromUserID, toUserID string, fx *domain.Fanout) error {
	return nil
}

type stubUserLookup struct {
	byName map[string]domain.User
}

func (s *stubUserLookup) GetUsersByNames(ctx context.Context, names []string) ([]domain.User, error) {
	var out []domain.User
	for _, n := range names {
		if u, ok := s.byName[n]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserLookup) CreateUser(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserLookup) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (s *stubUserLookup) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (s *stubUserLookup) ListUsers(ctx context.Context) ([]domain.User, error) { return nil, nil }
func (s *stubUserLookup) UpdateUserSettings(ctx context.Context, id string, settings domain.UserSettings) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (s *stubUserLookup) UpdateUserPassword(ctx context.Context, id string, hash []byte) error {
	return nil
}
func (s *stubUserLookup) DeleteUser(ctx context.Context, id string) error { return nil }

type fixture struct {
	svc      Service
	bugs     *stubBugRepository
	comments *stubCommentRepository
	projects *stubProjectReader
	users    *stubUserLookup
}

func newFixture(scope string) *fixture {
	bugs := newStubBugRepository()
	comments := newStubCommentRepository()
	projects := &stubProjectReader{projects: map[string]*domain.Project{
		"project-1": {
			ID:        "project-1",
			Name:      "Payments",
			CreatedBy: "owner-1",
			Members: []domain.Member{
				{ProjectID: "project-1", UserID: "owner-1", Role: domain.MemberRoleOwner},
				{ProjectID: "project-1", UserID: "member-1", Role: domain.MemberRoleMember},
			},
		},
	}}
	users := &stubUserLookup{byName: map[string]domain.User{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(bugs, comments, projects, users, policy.NewEngine(scope), log)
	return &fixture{svc: svc, bugs: bugs, comments: comments, projects: projects, users: users}
}

func TestCreateDefaultsAndSanitizes(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}

	b, err := f.svc.Create(context.Background(), actor, CreateInput{
		ProjectID:   "project-1",
		Title:       "  Login broken ",
		Description: `<p>steps</p><script>alert(1)</script>`,
		Tags:        []string{"auth", " auth ", "", "ui"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if b.Status != domain.StatusOpen || b.Priority != domain.PriorityMedium {
		t.Fatalf("expected defaults, got status=%q priority=%q", b.Status, b.Priority)
	}
	if b.Title != "Login broken" {
		t.Fatalf("expected trimmed title, got %q", b.Title)
	}
	if b.CreatedBy != "member-1" {
		t.Fatalf("creator must be the actor, got %q", b.CreatedBy)
	}
	if !reflect.DeepEqual(b.Tags, []string{"auth", "ui"}) {
		t.Fatalf("expected deduplicated tags, got %v", b.Tags)
	}
	if got := b.Description; got != "<p>steps</p>" {
		t.Fatalf("expected script tag stripped, got %q", got)
	}
}

func TestCreateDeniedOutsideProject(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	_, err := f.svc.Create(context.Background(), policy.Principal{ID: "stranger"}, CreateInput{ProjectID: "project-1", Title: "x"})
	var denied *policy.Denied
	if !errors.As(err, &denied) || !denied.Hidden {
		t.Fatalf("expected hidden denial, got %v", err)
	}
}

func TestUpdateOnlyCreatorUnderDefaultScope(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	creator := policy.Principal{ID: "member-1"}

	b, err := f.svc.Create(context.Background(), creator, CreateInput{ProjectID: "project-1", Title: "Crash"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	title := "Crash on load"
	if _, err := f.svc.Update(context.Background(), creator, b.ID, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("creator update failed: %v", err)
	}

	_, err = f.svc.Update(context.Background(), policy.Principal{ID: "owner-1"}, b.ID, UpdateInput{Title: &title})
	var denied *policy.Denied
	if !errors.As(err, &denied) {
		t.Fatalf("expected policy denial, got %v", err)
	}
	if denied.Hidden {
		t.Fatal("owner can read the bug, denial must be visible")
	}
}

func TestUpdateMembersScopeAllowsAnyMember(t *testing.T) {
	f := newFixture(config.BugEditMembers)
	creator := policy.Principal{ID: "member-1"}

	b, err := f.svc.Create(context.Background(), creator, CreateInput{ProjectID: "project-1", Title: "Crash"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	status := domain.StatusClosed
	updated, err := f.svc.Update(context.Background(), policy.Principal{ID: "owner-1"}, b.ID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("member update failed under members scope: %v", err)
	}
	if updated.Status != domain.StatusClosed {
		t.Fatalf("expected status change, got %q", updated.Status)
	}
}

func TestUpdateStatusChangeEmitsKanbanEvent(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}

	b, err := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash", AssignedTo: "owner-1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	status := domain.StatusClosed
	if _, err := f.svc.Update(context.Background(), actor, b.ID, UpdateInput{Status: &status}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	fx := f.bugs.fanouts[len(f.bugs.fanouts)-1]
	kanban, statusNote := 0, 0
	for _, e := range fx.Events {
		if e.Event == domain.EventKanbanUpdated {
			kanban++
		}
	}
	for _, n := range fx.Notifications {
		if n.Type == domain.NotifyBugStatus && n.UserID == "owner-1" {
			statusNote++
		}
	}
	if kanban != 1 || statusNote != 1 {
		t.Fatalf("expected one kanban event and one status notification, got %d/%d", kanban, statusNote)
	}
}

func TestUpdateRejectsInvalidPriority(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}
	b, _ := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash"})

	bad := "Urgent"
	if _, err := f.svc.Update(context.Background(), actor, b.ID, UpdateInput{Priority: &bad}); !errors.Is(err, errInvalidPriority) {
		t.Fatalf("expected errInvalidPriority, got %v", err)
	}
}

func TestListWithNoMembershipsIsEmpty(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	bugs, total, err := f.svc.List(context.Background(), policy.Principal{ID: "stranger"}, repository.BugFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(bugs) != 0 || total != 0 {
		t.Fatalf("expected empty result, got %d/%d", len(bugs), total)
	}
}

func TestListScopesFilterToVisibleProjects(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}
	if _, err := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	bugs, total, err := f.svc.List(context.Background(), actor, repository.BugFilter{Status: domain.StatusOpen})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 1 || len(bugs) != 1 {
		t.Fatalf("expected one bug, got %d/%d", len(bugs), total)
	}
	if !reflect.DeepEqual(f.bugs.lastFilter.ProjectIDs, []string{"project-1"}) {
		t.Fatalf("filter must be scoped to memberships, got %v", f.bugs.lastFilter.ProjectIDs)
	}
}

func TestStatsWithNoMembership(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	stats, err := f.svc.Stats(context.Background(), policy.Principal{ID: "stranger"})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Total != 0 || stats.Open != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestAddCommentNotifiesMentions(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1", Name: "Alice"}
	f.users.byName["Bob"] = domain.User{ID: "user-2", Name: "Bob"}
	f.users.byName["Alice"] = domain.User{ID: "member-1", Name: "Alice"}

	b, err := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	c, err := f.svc.AddComment(context.Background(), actor, b.ID, "@Alice and @Bob should look")
	if err != nil {
		t.Fatalf("AddComment returned error: %v", err)
	}
	if c.AuthorID != actor.ID {
		t.Fatalf("unexpected author: %q", c.AuthorID)
	}

	fx := f.comments.fanouts[len(f.comments.fanouts)-1]
	if len(fx.Notifications) != 1 || fx.Notifications[0].UserID != "user-2" {
		t.Fatalf("expected one mention notification to Bob, got %+v", fx.Notifications)
	}
}

func TestAddCommentRejectsEmptyAfterSanitize(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}
	b, _ := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash"})

	if _, err := f.svc.AddComment(context.Background(), actor, b.ID, "<script>alert(1)</script>"); !errors.Is(err, errBodyRequired) {
		t.Fatalf("expected errBodyRequired, got %v", err)
	}
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	author := policy.Principal{ID: "member-1"}
	b, _ := f.svc.Create(context.Background(), author, CreateInput{ProjectID: "project-1", Title: "Crash"})
	c, err := f.svc.AddComment(context.Background(), author, b.ID, "first")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	_, err = f.svc.UpdateComment(context.Background(), policy.Principal{ID: "owner-1"}, b.ID, c.ID, "edited")
	var denied *policy.Denied
	if !errors.As(err, &denied) || denied.Hidden {
		t.Fatalf("expected visible denial for non-author, got %v", err)
	}
	updated, err := f.svc.UpdateComment(context.Background(), author, b.ID, c.ID, "edited")
	if err != nil {
		t.Fatalf("author edit failed: %v", err)
	}
	if updated.Body != "edited" {
		t.Fatalf("unexpected body %q", updated.Body)
	}
}

func TestCommentMustBelongToBug(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}
	b1, _ := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "One"})
	b2, _ := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Two"})
	c, err := f.svc.AddComment(context.Background(), actor, b1.ID, "note")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	if err := f.svc.DeleteComment(context.Background(), actor, b2.ID, c.ID); !errors.Is(err, errWrongBug) {
		t.Fatalf("expected errWrongBug, got %v", err)
	}
}

func TestAddAttachmentValidatesFields(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	actor := policy.Principal{ID: "member-1"}
	b, _ := f.svc.Create(context.Background(), actor, CreateInput{ProjectID: "project-1", Title: "Crash"})

	if _, err := f.svc.AddAttachment(context.Background(), actor, b.ID, " ", "http://x"); !errors.Is(err, errFilenameAndURL) {
		t.Fatalf("expected errFilenameAndURL, got %v", err)
	}
	a, err := f.svc.AddAttachment(context.Background(), actor, b.ID, "log.txt", "/uploads/log.txt")
	if err != nil {
		t.Fatalf("AddAttachment returned error: %v", err)
	}
	if a.ID == 0 || a.UploadedBy != actor.ID {
		t.Fatalf("unexpected attachment: %+v", a)
	}
}

func TestDeleteHidesMissingBug(t *testing.T) {
	f := newFixture(config.BugEditCreator)
	err := f.svc.Delete(context.Background(), policy.Principal{ID: "member-1"}, "no-such-bug")
	var denied *policy.Denied
	if !errors.As(err, &denied) || !denied.Hidden {
		t.Fatalf("expected hidden denial for missing bug, got %v", err)
	}
}
