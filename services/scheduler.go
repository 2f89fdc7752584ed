package services

import (
	"context"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// SchedulerService regenerates recurring duty instances from their schedule
// templates and repairs schedules whose instance chain silently broke.
type SchedulerService struct {
	tasks     TaskRepository
	schedules ScheduleRepository
	now       func() time.Time
}

func NewSchedulerService(tasks TaskRepository, schedules ScheduleRepository) *SchedulerService {
	return &SchedulerService{tasks: tasks, schedules: schedules, now: time.Now}
}

// GenerateNext creates the next instance for a schedule. The base date for
// the recurrence is the prior instance's completion time, falling back to
// its due time, the schedule's last generation time, and finally now.
func (s *SchedulerService) GenerateNext(ctx context.Context, sched *models.Schedule, prior *models.Task) (*models.Task, error) {
	now := s.now()
	base := now
	switch {
	case prior != nil && prior.CompletedAt != nil:
		base = *prior.CompletedAt
	case prior != nil && prior.DueAt != nil:
		base = *prior.DueAt
	case sched.LastGeneratedAt != nil:
		base = *sched.LastGeneratedAt
	}

	occ, err := NextOccurrence(sched.RecurrenceRule, base, sched.LeadTimeHours)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:             sched.Title,
		Description:       sched.Description,
		Type:              models.TaskTypeDuty,
		PointsValue:       sched.PointsValue,
		ScheduleID:        &sched.ID,
		AssignedTo:        sched.AssignedTo,
		DueAt:             &occ.DueAt,
		UnlockAt:          &occ.UnlockAt,
		Status:            models.TaskStatusLocked,
		NotificationLevel: models.NotifyLevelNone,
	}
	// If the unlock already elapsed the instance is immediately visible.
	if !occ.UnlockAt.After(now) {
		task.Status = models.TaskStatusOpen
		task.NotificationLevel = models.NotifyLevelUnlocked
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, Externalw("create duty instance", err)
	}

	sched.LastGeneratedAt = &now
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, Externalw("update schedule", err)
	}
	return task, nil
}

// Heal regenerates a schedule whose chain broke: it is active but has zero
// non-terminal instances, so nothing will ever spawn a successor. Healing is
// idempotent; once an instance is live it becomes a no-op.
func (s *SchedulerService) Heal(ctx context.Context, sched *models.Schedule) (*models.Task, error) {
	if !sched.Active {
		return nil, nil
	}
	instances, err := s.tasks.FindMany(ctx, TaskFilter{
		ScheduleID: &sched.ID,
		OrderBy:    "created_at DESC",
		Limit:      25,
	})
	if err != nil {
		return nil, Externalw("list schedule instances", err)
	}
	for i := range instances {
		if !instances[i].Terminal() {
			return nil, nil
		}
	}
	var prior *models.Task
	if len(instances) > 0 {
		prior = &instances[0]
		// A rejected duty still accepts resubmitted proof; spawning a
		// successor now would put two live instances on the chain.
		if prior.Resubmittable() {
			return nil, nil
		}
	}
	return s.GenerateNext(ctx, sched, prior)
}

// HealAll runs Heal over every active schedule, returning how many instances
// were regenerated. Failures on one schedule do not stop the rest.
func (s *SchedulerService) HealAll(ctx context.Context) (int, error) {
	scheds, err := s.schedules.FindActive(ctx)
	if err != nil {
		return 0, Externalw("list active schedules", err)
	}
	healed := 0
	var lastErr error
	for i := range scheds {
		task, err := s.Heal(ctx, &scheds[i])
		if err != nil {
			lastErr = err
			continue
		}
		if task != nil {
			healed++
		}
	}
	return healed, lastErr
}
