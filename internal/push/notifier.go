package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmoreland/chorepoints/internal/store"
)

// Notifier fans push notifications out to the right family members for
// approval workflow events. Send failures are logged, never surfaced to
// the triggering request.
type Notifier struct {
	service  *Service
	push     *store.PushStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewNotifier(svc *Service, pushStore *store.PushStore, profileStore *store.ProfileStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		service:  svc,
		push:     pushStore,
		profiles: profileStore,
		logger:   logger,
	}
}

// ApprovalRequested notifies every parent in the family that a child is
// waiting on an approval.
func (n *Notifier) ApprovalRequested(ctx context.Context, familyID int64, childName, taskTitle string) {
	payload := Payload{
		Title: "Approval needed",
		Body:  fmt.Sprintf("%s finished %q and is waiting for approval", childName, taskTitle),
		URL:   "/approvals",
		Tag:   "approval-requested",
	}
	n.sendToParents(ctx, familyID, payload)
}

// ApprovalResolved notifies the child that a parent resolved their request.
func (n *Notifier) ApprovalResolved(ctx context.Context, childID int64, taskTitle string, approved bool, points int) {
	payload := Payload{
		Title: "Task approved",
		Body:  fmt.Sprintf("%q was approved, you earned %d points", taskTitle, points),
		URL:   "/today",
		Tag:   "approval-resolved",
	}
	if !approved {
		payload.Title = "Task not approved"
		payload.Body = fmt.Sprintf("%q was not approved this time", taskTitle)
	}
	n.sendToProfile(ctx, childID, payload)
}

// ApprovalReminder re-notifies parents about a request that has been
// sitting unresolved.
func (n *Notifier) ApprovalReminder(ctx context.Context, familyID int64, childName, taskTitle string) {
	payload := Payload{
		Title: "Still waiting",
		Body:  fmt.Sprintf("%s is still waiting on approval for %q", childName, taskTitle),
		URL:   "/approvals",
		Tag:   "approval-reminder",
	}
	n.sendToParents(ctx, familyID, payload)
}

func (n *Notifier) sendToParents(ctx context.Context, familyID int64, payload Payload) {
	parents, err := n.profiles.ListParents(familyID)
	if err != nil {
		n.logger.Error("list parents for push", "family_id", familyID, "error", err)
		return
	}
	for _, p := range parents {
		n.sendToProfile(ctx, p.ID, payload)
	}
}

func (n *Notifier) sendToProfile(ctx context.Context, profileID int64, payload Payload) {
	subs, err := n.push.ListByProfile(profileID)
	if err != nil {
		n.logger.Error("list push subscriptions", "profile_id", profileID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if err := n.service.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if derr := n.push.Delete(sub.ID); derr != nil {
					n.logger.Error("drop expired subscription", "error", derr)
				}
				continue
			}
			n.logger.Warn("send push", "profile_id", profileID, "error", err)
		}
	}
}
