package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

// Fan-out composition: every allowed mutation that logs activity also
// broadcasts a projectActivity event on the project's topic; notifications
// additionally broadcast on the recipient's user topic. Builders return the
// full record set so repositories can persist it in one transaction.

func jsonPayload(v map[string]any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func newActivity(actor Principal, projectID, typ, message string, meta map[string]any) *domain.Activity {
	return &domain.Activity{
		ProjectID: projectID,
		UserID:    actor.ID,
		Type:      typ,
		Message:   message,
		Metadata:  jsonPayload(meta),
		CreatedAt: time.Now().UTC(),
	}
}

func newNotification(userID, typ, message string, meta map[string]any) domain.Notification {
	return domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		Metadata:  jsonPayload(meta),
		CreatedAt: time.Now().UTC(),
	}
}

func activityEvent(a *domain.Activity) domain.OutboxEvent {
	return domain.OutboxEvent{
		Topic: domain.ProjectTopic(a.ProjectID),
		Event: domain.EventProjectActivity,
		Payload: jsonPayload(map[string]any{
			"project":   a.ProjectID,
			"user":      a.UserID,
			"type":      a.Type,
			"message":   a.Message,
			"meta":      json.RawMessage(a.Metadata),
			"createdAt": a.CreatedAt,
		}),
	}
}

func notificationEvent(n domain.Notification) domain.OutboxEvent {
	return domain.OutboxEvent{
		Topic: domain.UserTopic(n.UserID),
		Event: domain.EventNotification,
		Payload: jsonPayload(map[string]any{
			"userId": n.UserID,
			"notification": map[string]any{
				"id":        n.ID,
				"type":      n.Type,
				"message":   n.Message,
				"meta":      json.RawMessage(n.Metadata),
				"read":      n.Read,
				"createdAt": n.CreatedAt,
			},
		}),
	}
}

func bugPayload(b *domain.Bug) map[string]any {
	return map[string]any{
		"id":          b.ID,
		"project":     b.ProjectID,
		"title":       b.Title,
		"description": b.Description,
		"status":      b.Status,
		"priority":    b.Priority,
		"assignedTo":  b.AssignedTo,
		"createdBy":   b.CreatedBy,
		"tags":        b.Tags,
	}
}

func commentPayload(c *domain.Comment) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"bug":       c.BugID,
		"user":      c.AuthorID,
		"text":      c.Body,
		"createdAt": c.CreatedAt,
	}
}

func bugEvent(event string, b *domain.Bug) domain.OutboxEvent {
	return domain.OutboxEvent{
		Topic:   domain.ProjectTopic(b.ProjectID),
		Event:   event,
		Payload: jsonPayload(bugPayload(b)),
	}
}

func assemble(activity *domain.Activity, notifications []domain.Notification, extra ...domain.OutboxEvent) *domain.Fanout {
	fx := &domain.Fanout{Activity: activity, Notifications: notifications}
	if activity != nil {
		fx.Events = append(fx.Events, activityEvent(activity))
	}
	fx.Events = append(fx.Events, extra...)
	for _, n := range notifications {
		fx.Events = append(fx.Events, notificationEvent(n))
	}
	return fx
}

// ProjectCreated builds the fanout for a new project.
func ProjectCreated(actor Principal, p *domain.Project) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityProjectCreated,
		fmt.Sprintf("Created project: %s", p.Name), map[string]any{"projectId": p.ID})
	return assemble(a, nil)
}

// ProjectUpdated builds the fanout for a project metadata change.
func ProjectUpdated(actor Principal, p *domain.Project) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityProjectUpdated,
		fmt.Sprintf("Updated project: %s", p.Name), map[string]any{"projectId": p.ID})
	return assemble(a, nil)
}

// ProjectDeleted builds the fanout for a project deletion.
func ProjectDeleted(actor Principal, p *domain.Project) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityProjectDeleted,
		fmt.Sprintf("Deleted project: %s", p.Name), map[string]any{"projectId": p.ID})
	return assemble(a, nil)
}

// ProjectArchived builds the fanout for archiving or unarchiving.
func ProjectArchived(actor Principal, p *domain.Project, archived bool) *domain.Fanout {
	typ, verb := domain.ActivityProjectArchived, "Archived"
	if !archived {
		typ, verb = domain.ActivityProjectUnarchived, "Unarchived"
	}
	a := newActivity(actor, p.ID, typ,
		fmt.Sprintf("%s project: %s", verb, p.Name), map[string]any{"projectId": p.ID})
	return assemble(a, nil)
}

// OwnershipTransferred builds the fanout for an ownership transfer.
func OwnershipTransferred(actor Principal, p *domain.Project, newOwnerID string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityOwnershipTransferred,
		fmt.Sprintf("Transferred ownership to user: %s", newOwnerID), map[string]any{"newOwnerId": newOwnerID})
	return assemble(a, nil)
}

// MemberAdded builds the fanout for adding a registered user, including the
// project_invite notification to the new member.
func MemberAdded(actor Principal, p *domain.Project, user *domain.User, role string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityMemberAdded,
		fmt.Sprintf("Added member: %s as %s", user.Email, role),
		map[string]any{"userId": user.ID, "email": user.Email, "role": role})
	n := newNotification(user.ID, domain.NotifyProjectInvite,
		fmt.Sprintf("You have been invited to the project '%s'.", p.Name),
		map[string]any{"projectId": p.ID, "projectName": p.Name})
	return assemble(a, []domain.Notification{n})
}

// MemberInvited builds the fanout for a pending email invite. No account
// exists yet, so there is no notification to send.
func MemberInvited(actor Principal, p *domain.Project, email string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityMemberInvited,
		fmt.Sprintf("Invited %s to the project", email), map[string]any{"email": email})
	return assemble(a, nil)
}

// InviteAccepted builds the fanout for accepting an invite.
func InviteAccepted(actor Principal, p *domain.Project, email string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityInviteAccepted,
		fmt.Sprintf("%s accepted the invitation", email),
		map[string]any{"userId": actor.ID, "email": email})
	return assemble(a, nil)
}

// InviteDeclined builds the fanout for declining an invite.
func InviteDeclined(actor Principal, p *domain.Project, email string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityInviteDeclined,
		fmt.Sprintf("%s declined the invitation", email),
		map[string]any{"userId": actor.ID, "email": email})
	return assemble(a, nil)
}

// InviteCancelled builds the fanout for the creator cancelling an invite.
func InviteCancelled(actor Principal, p *domain.Project, email string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityInviteCancelled,
		fmt.Sprintf("Cancelled invitation for %s", email), map[string]any{"email": email})
	return assemble(a, nil)
}

// MemberRemoved builds the fanout for removing a member.
func MemberRemoved(actor Principal, p *domain.Project, userID string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityMemberRemoved,
		fmt.Sprintf("Removed member: %s", userID), map[string]any{"userId": userID})
	return assemble(a, nil)
}

// RoleChanged builds the fanout for a membership role change.
func RoleChanged(actor Principal, p *domain.Project, userID, role string) *domain.Fanout {
	a := newActivity(actor, p.ID, domain.ActivityRoleChanged,
		fmt.Sprintf("Changed role of %s to %s", userID, role),
		map[string]any{"userId": userID, "role": role})
	return assemble(a, nil)
}

// ManualActivity builds the fanout for a caller-supplied activity entry.
func ManualActivity(actor Principal, projectID, typ, message string) *domain.Fanout {
	a := newActivity(actor, projectID, typ, message, map[string]any{"projectId": projectID})
	return assemble(a, nil)
}

// BugCreated builds the fanout for a new bug, notifying the assignee when
// one is set at creation.
func BugCreated(actor Principal, b *domain.Bug) *domain.Fanout {
	a := newActivity(actor, b.ProjectID, domain.ActivityBugCreated,
		fmt.Sprintf("Created bug: %s", b.Title), map[string]any{"bugId": b.ID})
	var notifications []domain.Notification
	if b.AssignedTo != "" {
		notifications = append(notifications, newNotification(b.AssignedTo, domain.NotifyBugAssigned,
			fmt.Sprintf("You were assigned to bug: %s", b.Title),
			map[string]any{"bugId": b.ID, "projectId": b.ProjectID}))
	}
	return assemble(a, notifications, bugEvent(domain.EventBugCreated, b))
}

// BugUpdated builds the fanout for a bug mutation by diffing old against
// updated: a reassignment notifies the new assignee, a status change
// notifies the current assignee, and a status or priority change emits an
// extra kanban event.
func BugUpdated(actor Principal, old, updated *domain.Bug) *domain.Fanout {
	a := newActivity(actor, updated.ProjectID, domain.ActivityBugUpdated,
		fmt.Sprintf("Updated bug: %s", updated.Title), map[string]any{"bugId": updated.ID})

	var notifications []domain.Notification
	if updated.AssignedTo != "" && updated.AssignedTo != old.AssignedTo {
		notifications = append(notifications, newNotification(updated.AssignedTo, domain.NotifyBugAssigned,
			fmt.Sprintf("You were assigned to bug: %s", updated.Title),
			map[string]any{"bugId": updated.ID, "projectId": updated.ProjectID}))
	}
	statusChanged := updated.Status != old.Status
	if statusChanged && updated.AssignedTo != "" {
		notifications = append(notifications, newNotification(updated.AssignedTo, domain.NotifyBugStatus,
			fmt.Sprintf("Status of bug '%s' changed to %s.", updated.Title, updated.Status),
			map[string]any{"bugId": updated.ID, "bugTitle": updated.Title, "newStatus": updated.Status}))
	}

	events := []domain.OutboxEvent{bugEvent(domain.EventBugUpdated, updated)}
	if statusChanged || updated.Priority != old.Priority {
		events = append(events, bugEvent(domain.EventKanbanUpdated, updated))
	}
	return assemble(a, notifications, events...)
}

// BugDeleted builds the fanout for a bug deletion.
func BugDeleted(actor Principal, b *domain.Bug) *domain.Fanout {
	a := newActivity(actor, b.ProjectID, domain.ActivityBugDeleted,
		fmt.Sprintf("Deleted bug: %s", b.Title), map[string]any{"bugId": b.ID})
	return assemble(a, nil, bugEvent(domain.EventBugDeleted, b))
}

// CommentAdded builds the fanout for a new comment, with one mention
// notification per user whose display name matched an @token in the body.
func CommentAdded(actor Principal, b *domain.Bug, c *domain.Comment, mentioned []domain.User) *domain.Fanout {
	a := newActivity(actor, b.ProjectID, domain.ActivityCommentAdded,
		fmt.Sprintf("Commented on bug: %s", b.Title),
		map[string]any{"bugId": b.ID, "commentId": c.ID})
	var notifications []domain.Notification
	for _, u := range mentioned {
		if u.ID == actor.ID {
			continue
		}
		notifications = append(notifications, newNotification(u.ID, domain.NotifyMention,
			fmt.Sprintf("%s mentioned you in a comment on bug: %s", actor.Name, b.Title),
			map[string]any{"bugId": b.ID, "projectId": b.ProjectID}))
	}
	event := domain.OutboxEvent{
		Topic:   domain.ProjectTopic(b.ProjectID),
		Event:   domain.EventCommentAdded,
		Payload: jsonPayload(map[string]any{"bugId": b.ID, "comment": commentPayload(c)}),
	}
	return assemble(a, notifications, event)
}

// CommentUpdated builds the fanout for an edited comment. Comment edits are
// broadcast but not logged to the activity feed.
func CommentUpdated(b *domain.Bug, c *domain.Comment) *domain.Fanout {
	event := domain.OutboxEvent{
		Topic:   domain.ProjectTopic(b.ProjectID),
		Event:   domain.EventCommentUpdated,
		Payload: jsonPayload(map[string]any{"bugId": b.ID, "comment": commentPayload(c)}),
	}
	return assemble(nil, nil, event)
}

// CommentDeleted builds the fanout for a removed comment.
func CommentDeleted(b *domain.Bug, commentID string) *domain.Fanout {
	event := domain.OutboxEvent{
		Topic:   domain.ProjectTopic(b.ProjectID),
		Event:   domain.EventCommentDeleted,
		Payload: jsonPayload(map[string]any{"bugId": b.ID, "commentId": commentID}),
	}
	return assemble(nil, nil, event)
}
