package policy

import (
	"testing"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/pkg/config"
)

func testProject() *domain.Project {
	return &domain.Project{
		ID:        "project-1",
		Name:      "Payments",
		CreatedBy: "owner-1",
		Members: []domain.Member{
			{ProjectID: "project-1", UserID: "owner-1", Role: domain.MemberRoleOwner},
			{ProjectID: "project-1", UserID: "member-1", Role: domain.MemberRoleMember},
			{ProjectID: "project-1", UserID: "assignee-1", Role: domain.MemberRoleMember},
		},
	}
}

func TestProjectReadRequiresMembership(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()

	if d := engine.Authorize(Principal{ID: "member-1"}, ProjectRead, Target{Project: project}); !d.Allowed {
		t.Fatalf("expected member to read project, got %+v", d)
	}
	d := engine.Authorize(Principal{ID: "stranger"}, ProjectRead, Target{Project: project})
	if d.Allowed {
		t.Fatal("expected non-member to be denied")
	}
	if !d.Hidden {
		t.Fatalf("expected hidden denial for non-member, got %+v", d)
	}
}

func TestProjectReadAdminBypassesMembership(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	d := engine.Authorize(Principal{ID: "ops", Role: domain.RoleAdmin}, ProjectRead, Target{Project: testProject()})
	if !d.Allowed {
		t.Fatalf("expected site admin to read any project, got %+v", d)
	}
}

func TestProjectMutationsCreatorOnly(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()

	for _, action := range []Action{ProjectUpdate, ProjectInvite, ProjectRemoveMember, ProjectArchive, ProjectTransfer} {
		if d := engine.Authorize(Principal{ID: "owner-1"}, action, Target{Project: project}); !d.Allowed {
			t.Fatalf("%s: expected creator to be allowed, got %+v", action, d)
		}
		d := engine.Authorize(Principal{ID: "member-1"}, action, Target{Project: project})
		if d.Allowed {
			t.Fatalf("%s: expected member to be denied", action)
		}
		if d.Hidden {
			t.Fatalf("%s: member can read the project, denial must not be hidden", action)
		}
	}
}

func TestProjectDeleteAllowsAdmin(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()
	project.Members = append(project.Members, domain.Member{ProjectID: project.ID, UserID: "admin-1", Role: domain.MemberRoleMember})

	if d := engine.Authorize(Principal{ID: "admin-1", Role: domain.RoleAdmin}, ProjectDelete, Target{Project: project}); !d.Allowed {
		t.Fatalf("expected site admin to delete project, got %+v", d)
	}
	if d := engine.Authorize(Principal{ID: "member-1"}, ProjectDelete, Target{Project: project}); d.Allowed {
		t.Fatal("expected plain member to be denied delete")
	}
}

func TestBugReadFollowsProjectRead(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()
	bug := &domain.Bug{ID: "bug-1", ProjectID: project.ID, CreatedBy: "member-1"}

	if d := engine.Authorize(Principal{ID: "assignee-1"}, BugRead, Target{Project: project, Bug: bug}); !d.Allowed {
		t.Fatalf("expected any project member to read the bug, got %+v", d)
	}
	d := engine.Authorize(Principal{ID: "stranger"}, BugRead, Target{Project: project, Bug: bug})
	if d.Allowed || !d.Hidden {
		t.Fatalf("expected hidden denial for outsider, got %+v", d)
	}
	if d := engine.Authorize(Principal{ID: "member-1"}, BugRead, Target{Project: project}); d.Allowed || !d.Hidden {
		t.Fatalf("expected hidden denial for missing bug, got %+v", d)
	}
}

func TestBugMutateCreatorScope(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()
	bug := &domain.Bug{ID: "bug-1", ProjectID: project.ID, CreatedBy: "member-1", AssignedTo: "assignee-1"}

	if d := engine.Authorize(Principal{ID: "member-1"}, BugUpdate, Target{Project: project, Bug: bug}); !d.Allowed {
		t.Fatalf("expected creator to update, got %+v", d)
	}
	// Under the default scope even the assignee may not edit.
	d := engine.Authorize(Principal{ID: "assignee-1"}, BugUpdate, Target{Project: project, Bug: bug})
	if d.Allowed {
		t.Fatal("expected assignee to be denied under creator scope")
	}
	if d.Hidden {
		t.Fatal("assignee can read the bug, denial must be visible")
	}
	if d := engine.Authorize(Principal{ID: "stranger"}, BugDelete, Target{Project: project, Bug: bug}); d.Allowed || !d.Hidden {
		t.Fatalf("expected hidden denial for outsider, got %+v", d)
	}
}

func TestBugMutateAssigneeScope(t *testing.T) {
	engine := NewEngine(config.BugEditAssignee)
	project := testProject()
	bug := &domain.Bug{ID: "bug-1", ProjectID: project.ID, CreatedBy: "member-1", AssignedTo: "assignee-1"}

	if d := engine.Authorize(Principal{ID: "assignee-1"}, BugUpdate, Target{Project: project, Bug: bug}); !d.Allowed {
		t.Fatalf("expected assignee to update under assignee scope, got %+v", d)
	}
	if d := engine.Authorize(Principal{ID: "owner-1"}, BugUpdate, Target{Project: project, Bug: bug}); d.Allowed {
		t.Fatal("expected non-creator non-assignee to be denied")
	}
}

func TestBugMutateMembersScope(t *testing.T) {
	engine := NewEngine(config.BugEditMembers)
	project := testProject()
	bug := &domain.Bug{ID: "bug-1", ProjectID: project.ID, CreatedBy: "member-1"}

	if d := engine.Authorize(Principal{ID: "owner-1"}, BugUpdate, Target{Project: project, Bug: bug}); !d.Allowed {
		t.Fatalf("expected any member to update under members scope, got %+v", d)
	}
}

func TestNewEngineRejectsUnknownScope(t *testing.T) {
	engine := NewEngine("everyone")
	if engine.BugEditScope != config.BugEditCreator {
		t.Fatalf("expected fallback to creator scope, got %q", engine.BugEditScope)
	}
}

func TestCommentMutateAuthorOnly(t *testing.T) {
	engine := NewEngine(config.BugEditCreator)
	project := testProject()
	comment := &domain.Comment{ID: "c-1", BugID: "bug-1", AuthorID: "member-1"}

	if d := engine.Authorize(Principal{ID: "member-1"}, CommentUpdate, Target{Project: project, Comment: comment}); !d.Allowed {
		t.Fatalf("expected author to edit own comment, got %+v", d)
	}
	d := engine.Authorize(Principal{ID: "assignee-1"}, CommentDelete, Target{Project: project, Comment: comment})
	if d.Allowed || d.Hidden {
		t.Fatalf("expected visible denial for non-author member, got %+v", d)
	}
	if d := engine.Authorize(Principal{ID: "stranger"}, CommentDelete, Target{Project: project, Comment: comment}); d.Allowed || !d.Hidden {
		t.Fatalf("expected hidden denial for outsider, got %+v", d)
	}
}

func TestDecisionErr(t *testing.T) {
	if err := allow().Err(); err != nil {
		t.Fatalf("expected nil error for allowed decision, got %v", err)
	}
	err := denyHidden("nope").Err()
	denied, ok := err.(*Denied)
	if !ok {
		t.Fatalf("expected *Denied, got %T", err)
	}
	if !denied.Hidden {
		t.Fatal("expected hidden flag to survive conversion")
	}
}
