package services

import (
	"context"
	"log"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// SweepSummary reports the effect of one cron sweep. Each transition inside
// a sweep commits independently, so the counts reflect actual effect even
// when a later item fails.
type SweepSummary struct {
	Unlocked        int `json:"unlocked"`
	Halfway         int `json:"halfway"`
	ExpiredBounties int `json:"expired_bounties"`
	ExpiredDuties   int `json:"expired_duties"`
}

// Sweeper drives the four time-based transition passes. The passes are
// independent: a failure in one is logged and does not block the others.
type Sweeper struct {
	tasks     TaskRepository
	schedules ScheduleRepository
	scheduler *SchedulerService
	bus       *EventBus
	fine      int
	pageSize  int
	now       func() time.Time
}

func NewSweeper(tasks TaskRepository, schedules ScheduleRepository, scheduler *SchedulerService, bus *EventBus, fineAmount int) *Sweeper {
	return &Sweeper{
		tasks:     tasks,
		schedules: schedules,
		scheduler: scheduler,
		bus:       bus,
		fine:      fineAmount,
		pageSize:  100,
		now:       time.Now,
	}
}

func (sw *Sweeper) Run(ctx context.Context) SweepSummary {
	var sum SweepSummary
	if n, err := sw.unlockPass(ctx); err != nil {
		log.Printf("[sweep] unlock pass: %v", err)
	} else {
		sum.Unlocked = n
	}
	if n, err := sw.reminderPass(ctx); err != nil {
		log.Printf("[sweep] reminder pass: %v", err)
	} else {
		sum.Halfway = n
	}
	if n, err := sw.bountyExpiryPass(ctx); err != nil {
		log.Printf("[sweep] bounty expiry pass: %v", err)
	} else {
		sum.ExpiredBounties = n
	}
	if n, err := sw.dutyExpiryPass(ctx); err != nil {
		log.Printf("[sweep] duty expiry pass: %v", err)
	} else {
		sum.ExpiredDuties = n
	}
	return sum
}

// unlockPass opens locked tasks whose unlock time has arrived.
func (sw *Sweeper) unlockPass(ctx context.Context) (int, error) {
	now := sw.now()
	total := 0
	for {
		page, err := sw.tasks.FindMany(ctx, TaskFilter{
			Statuses:     []string{models.TaskStatusLocked},
			UnlockBefore: &now,
			Limit:        sw.pageSize,
		})
		if err != nil {
			return total, Externalw("scan locked tasks", err)
		}
		done := 0
		for i := range page {
			task := &page[i]
			task.Status = models.TaskStatusOpen
			if task.NotificationLevel == models.NotifyLevelNone {
				task.NotificationLevel = models.NotifyLevelUnlocked
			}
			if err := sw.tasks.Update(ctx, task); err != nil {
				log.Printf("[sweep] unlocking task %d: %v", task.ID, err)
				continue
			}
			_ = sw.bus.Publish(ctx, Event{Type: EventTaskUnlocked, Task: *task})
			done++
		}
		total += done
		// transitioned tasks leave the filter; stop once nothing moves
		if len(page) < sw.pageSize || done == 0 {
			return total, nil
		}
	}
}

// reminderPass raises notification levels on assigned tasks approaching
// their due time. Halfway between unlock (or creation) and due it sends a
// reminder; with under twelve hours left it escalates to urgent. The stored
// level guarantees no reminder fires twice. Pagination cursors by id, since
// tasks raised to urgent drop out of the filter mid-scan and would shift an
// offset-based page under us.
func (sw *Sweeper) reminderPass(ctx context.Context) (int, error) {
	now := sw.now()
	hasAssignee := true
	hasDue := true
	total := 0
	var lastID uint
	for {
		page, err := sw.tasks.FindMany(ctx, TaskFilter{
			Statuses:         []string{models.TaskStatusOpen},
			HasAssignee:      &hasAssignee,
			HasDueAt:         &hasDue,
			NotifyLevelNotIn: []string{models.NotifyLevelUrgent, models.NotifyLevelExpired},
			IDAfter:          &lastID,
			Limit:            sw.pageSize,
			OrderBy:          "id ASC",
		})
		if err != nil {
			return total, Externalw("scan reminder candidates", err)
		}
		for i := range page {
			task := &page[i]
			lastID = task.ID
			raised, urgent := nextReminderLevel(task, now)
			if raised == "" {
				continue
			}
			task.NotificationLevel = raised
			if err := sw.tasks.Update(ctx, task); err != nil {
				log.Printf("[sweep] reminder for task %d: %v", task.ID, err)
				continue
			}
			_ = sw.bus.Publish(ctx, Event{Type: EventTaskReminder, Task: *task, Urgent: urgent})
			total++
		}
		if len(page) < sw.pageSize {
			return total, nil
		}
	}
}

// nextReminderLevel decides whether a task is due for a reminder and which
// level it should move to. Returns "" when nothing should fire yet.
func nextReminderLevel(task *models.Task, now time.Time) (string, bool) {
	if task.DueAt == nil || task.AssignedTo == nil {
		return "", false
	}
	due := *task.DueAt
	if now.After(due.Add(-12*time.Hour)) && task.NotificationLevel != models.NotifyLevelUrgent {
		return models.NotifyLevelUrgent, true
	}
	if task.NotificationLevel == models.NotifyLevelHalfway {
		return "", false
	}
	start := task.CreatedAt
	if task.UnlockAt != nil {
		start = *task.UnlockAt
	}
	if !due.After(start) {
		return "", false
	}
	midpoint := start.Add(due.Sub(start) / 2)
	if now.After(midpoint) {
		return models.NotifyLevelHalfway, false
	}
	return "", false
}

// bountyExpiryPass returns claimed bounties past their deadline to the pool.
// No fine: the bounty simply reopens unassigned and its reminder state
// resets so the next claimant gets fresh reminders.
func (sw *Sweeper) bountyExpiryPass(ctx context.Context) (int, error) {
	now := sw.now()
	hasAssignee := true
	total := 0
	for {
		page, err := sw.tasks.FindMany(ctx, TaskFilter{
			Statuses:    []string{models.TaskStatusOpen, models.TaskStatusPending},
			Type:        models.TaskTypeBounty,
			HasAssignee: &hasAssignee,
			DueBefore:   &now,
			Limit:       sw.pageSize,
		})
		if err != nil {
			return total, Externalw("scan expired bounties", err)
		}
		done := 0
		for i := range page {
			task := &page[i]
			task.Status = models.TaskStatusOpen
			task.AssignedTo = nil
			task.ProofKey = nil
			task.NotificationLevel = models.NotifyLevelNone
			if task.ExecutionLimit != nil {
				// deadline was derived from the claim; the next claim sets a new one
				task.DueAt = nil
			}
			if err := sw.tasks.Update(ctx, task); err != nil {
				log.Printf("[sweep] reopening bounty %d: %v", task.ID, err)
				continue
			}
			done++
		}
		total += done
		if len(page) < sw.pageSize || done == 0 {
			return total, nil
		}
	}
}

// dutyExpiryPass expires overdue duties and one-offs, publishing the fine
// and requesting a successor for scheduled duties. A failed fine award
// reverts the task to open so the next sweep retries it.
func (sw *Sweeper) dutyExpiryPass(ctx context.Context) (int, error) {
	now := sw.now()
	total := 0
	var firstErr error
	for _, taskType := range []string{models.TaskTypeDuty, models.TaskTypeOneOff} {
		n, err := sw.expireType(ctx, taskType, now)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}

func (sw *Sweeper) expireType(ctx context.Context, taskType string, now time.Time) (int, error) {
	total := 0
	for {
		page, err := sw.tasks.FindMany(ctx, TaskFilter{
			Statuses:  []string{models.TaskStatusOpen},
			Type:      taskType,
			DueBefore: &now,
			Limit:     sw.pageSize,
		})
		if err != nil {
			return total, Externalw("scan overdue tasks", err)
		}
		done := 0
		for i := range page {
			task := &page[i]
			task.Status = models.TaskStatusExpired
			task.NotificationLevel = models.NotifyLevelExpired
			if err := sw.tasks.Update(ctx, task); err != nil {
				log.Printf("[sweep] expiring task %d: %v", task.ID, err)
				continue
			}
			if err := sw.bus.Publish(ctx, Event{Type: EventTaskExpired, Task: *task, FineAmount: sw.fine}); err != nil {
				// fine did not land; revert so the next sweep retries
				log.Printf("[sweep] fine for task %d: %v", task.ID, err)
				task.Status = models.TaskStatusOpen
				task.NotificationLevel = models.NotifyLevelUrgent
				if rbErr := sw.tasks.Update(ctx, task); rbErr != nil {
					log.Printf("[sweep] revert of task %d failed: %v", task.ID, rbErr)
				}
				continue
			}
			done++
			if task.ScheduleID != nil {
				sw.requestSuccessor(ctx, task)
			}
		}
		total += done
		if len(page) < sw.pageSize || done == 0 {
			return total, nil
		}
	}
}

func (sw *Sweeper) requestSuccessor(ctx context.Context, prior *models.Task) {
	sched, err := sw.schedules.FindByID(ctx, *prior.ScheduleID)
	if err != nil {
		log.Printf("[sweep] loading schedule %d: %v", *prior.ScheduleID, err)
		return
	}
	if !sched.Active {
		return
	}
	if _, err := sw.scheduler.GenerateNext(ctx, sched, prior); err != nil {
		log.Printf("[sweep] successor for schedule %d: %v", sched.ID, err)
	}
}
