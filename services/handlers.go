package services

import (
	"context"
	"fmt"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// RegisterEventHandlers wires the scoring and notification subscribers.
// Called exactly once at process start. Scoring handlers propagate failures
// so the lifecycle service can roll back; notification handlers never do.
func RegisterEventHandlers(bus *EventBus, ledger *PointsLedgerService, users UserRepository, notifier Notifier, channelID string) {
	bus.Subscribe(EventTaskApproved, "points-award", false, func(ctx context.Context, e Event) error {
		if e.Task.AssignedTo == nil {
			return externalf("approved task %d has no assignee", e.Task.ID)
		}
		_, err := ledger.Award(ctx, *e.Task.AssignedTo, AwardInput{
			Amount:   e.Points,
			Reason:   "Task approved: " + e.Task.Title,
			Category: models.LedgerCategoryTask,
		})
		return err
	})

	bus.Subscribe(EventTaskExpired, "points-fine", false, func(ctx context.Context, e Event) error {
		if e.Task.AssignedTo == nil || e.FineAmount <= 0 {
			return nil // unassigned duties expire without a fine
		}
		_, err := ledger.Award(ctx, *e.Task.AssignedTo, AwardInput{
			Amount:   -e.FineAmount,
			Reason:   "Task expired: " + e.Task.Title,
			Category: models.LedgerCategoryFine,
		})
		return err
	})

	n := &notificationHandler{users: users, notifier: notifier, channelID: channelID}
	bus.Subscribe(EventTaskUnlocked, "notify-unlocked", true, n.taskUnlocked)
	bus.Subscribe(EventTaskReminder, "notify-reminder", true, n.taskReminder)
	bus.Subscribe(EventTaskApproved, "notify-approved", true, n.taskApproved)
	bus.Subscribe(EventTaskRejected, "notify-rejected", true, n.taskRejected)
	bus.Subscribe(EventTaskExpired, "notify-expired", true, n.taskExpired)
	bus.Subscribe(EventTaskSubmitted, "notify-submitted", true, n.taskSubmitted)
}

type notificationHandler struct {
	users     UserRepository
	notifier  Notifier
	channelID string
}

func (n *notificationHandler) dmAssignee(ctx context.Context, task models.Task, content string) error {
	if n.notifier == nil || task.AssignedTo == nil {
		return nil
	}
	member, err := n.users.FindByID(ctx, *task.AssignedTo)
	if err != nil {
		return err
	}
	return n.notifier.SendDirectMessage(ctx, member.ExternalID, content)
}

func (n *notificationHandler) taskUnlocked(ctx context.Context, e Event) error {
	if e.Task.AssignedTo == nil {
		if n.notifier == nil || n.channelID == "" {
			return nil
		}
		return n.notifier.SendToChannel(ctx, n.channelID,
			fmt.Sprintf("New %s available: %s (%d pts)", e.Task.Type, e.Task.Title, e.Task.PointsValue))
	}
	msg := fmt.Sprintf("Your duty %q is now open.", e.Task.Title)
	if e.Task.DueAt != nil {
		msg = fmt.Sprintf("Your duty %q is now open. Due %s.", e.Task.Title, e.Task.DueAt.UTC().Format("Mon Jan 2 15:04 MST"))
	}
	return n.dmAssignee(ctx, e.Task, msg)
}

func (n *notificationHandler) taskReminder(ctx context.Context, e Event) error {
	if e.Task.DueAt == nil {
		return nil
	}
	msg := fmt.Sprintf("Reminder: %q is due %s.", e.Task.Title, e.Task.DueAt.UTC().Format("Mon Jan 2 15:04 MST"))
	if e.Urgent {
		msg = fmt.Sprintf("URGENT: %q is due in under 12 hours. Submit proof before %s.",
			e.Task.Title, e.Task.DueAt.UTC().Format("Mon Jan 2 15:04 MST"))
	}
	return n.dmAssignee(ctx, e.Task, msg)
}

func (n *notificationHandler) taskApproved(ctx context.Context, e Event) error {
	return n.dmAssignee(ctx, e.Task,
		fmt.Sprintf("Approved: %q earned you %d points.", e.Task.Title, e.Points))
}

func (n *notificationHandler) taskRejected(ctx context.Context, e Event) error {
	msg := fmt.Sprintf("Your submission for %q was rejected.", e.Task.Title)
	if !e.Task.AdHoc() {
		msg += " You can submit new proof."
	}
	return n.dmAssignee(ctx, e.Task, msg)
}

func (n *notificationHandler) taskExpired(ctx context.Context, e Event) error {
	msg := fmt.Sprintf("%q expired.", e.Task.Title)
	if e.FineAmount > 0 && e.Task.AssignedTo != nil {
		msg = fmt.Sprintf("%q expired. A %d point fine was applied.", e.Task.Title, e.FineAmount)
	}
	return n.dmAssignee(ctx, e.Task, msg)
}

func (n *notificationHandler) taskSubmitted(ctx context.Context, e Event) error {
	if n.notifier == nil || n.channelID == "" {
		return nil
	}
	return n.notifier.SendToChannel(ctx, n.channelID,
		fmt.Sprintf("Proof submitted for %q, awaiting review.", e.Task.Title))
}
