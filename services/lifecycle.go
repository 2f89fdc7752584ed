package services

import (
	"context"
	"log"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// TaskLifecycleService validates and executes every user- and admin-driven
// state transition. Time-driven transitions go through the same service via
// the Sweeper.
type TaskLifecycleService struct {
	tasks     TaskRepository
	schedules ScheduleRepository
	users     UserRepository
	identity  IdentityProvider
	proofs    ProofStore
	scheduler *SchedulerService
	bus       *EventBus
	now       func() time.Time
}

func NewTaskLifecycleService(
	tasks TaskRepository,
	schedules ScheduleRepository,
	users UserRepository,
	identity IdentityProvider,
	proofs ProofStore,
	scheduler *SchedulerService,
	bus *EventBus,
) *TaskLifecycleService {
	return &TaskLifecycleService{
		tasks:     tasks,
		schedules: schedules,
		users:     users,
		identity:  identity,
		proofs:    proofs,
		scheduler: scheduler,
		bus:       bus,
		now:       time.Now,
	}
}

type CreateTaskInput struct {
	Title          string
	Description    string
	Type           string
	PointsValue    int
	AssignedTo     *uint
	DueAt          *time.Time
	UnlockAt       *time.Time
	ExecutionLimit *int
}

func validTaskType(t string) bool {
	switch t {
	case models.TaskTypeDuty, models.TaskTypeBounty, models.TaskTypeProject, models.TaskTypeOneOff:
		return true
	}
	return false
}

// CreateTask creates an ad hoc task (admin command). Tasks with a future
// unlock time start locked; everything else starts open.
func (s *TaskLifecycleService) CreateTask(ctx context.Context, actorID string, in CreateTaskInput) (*models.Task, error) {
	if err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, validationf("title is required")
	}
	if !validTaskType(in.Type) {
		return nil, validationf("unknown task type %q", in.Type)
	}
	if in.PointsValue < 0 {
		return nil, validationf("points_value must not be negative")
	}
	if in.ExecutionLimit != nil && *in.ExecutionLimit <= 0 {
		return nil, validationf("execution_limit must be positive")
	}

	now := s.now()
	task := &models.Task{
		Title:             in.Title,
		Description:       in.Description,
		Type:              in.Type,
		Status:            models.TaskStatusOpen,
		PointsValue:       in.PointsValue,
		AssignedTo:        in.AssignedTo,
		DueAt:             in.DueAt,
		UnlockAt:          in.UnlockAt,
		ExecutionLimit:    in.ExecutionLimit,
		NotificationLevel: models.NotifyLevelNone,
	}
	if in.UnlockAt != nil && in.UnlockAt.After(now) {
		task.Status = models.TaskStatusLocked
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, Externalw("create task", err)
	}

	if task.Status == models.TaskStatusOpen && task.Type == models.TaskTypeBounty {
		// announce fresh bounties; best-effort only
		_ = s.bus.Publish(ctx, Event{Type: EventTaskUnlocked, Task: *task})
	}
	return task, nil
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	PointsValue *int
	AssignedTo  *uint
	DueAt       *time.Time
}

func (s *TaskLifecycleService) UpdateTask(ctx context.Context, actorID string, taskID uint, in UpdateTaskInput) (*models.Task, error) {
	if err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Terminal() {
		return nil, conflictf("task %d is %s and can no longer be edited", taskID, task.Status)
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, validationf("title is required")
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.PointsValue != nil {
		if *in.PointsValue < 0 {
			return nil, validationf("points_value must not be negative")
		}
		task.PointsValue = *in.PointsValue
	}
	if in.AssignedTo != nil {
		task.AssignedTo = in.AssignedTo
	}
	if in.DueAt != nil {
		task.DueAt = in.DueAt
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, Externalw("update task", err)
	}
	return task, nil
}

func (s *TaskLifecycleService) DeleteTask(ctx context.Context, actorID string, taskID uint) error {
	if err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	s.cleanupProof(ctx, task)
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return Externalw("delete task", err)
	}
	return nil
}

// Claim assigns an open bounty to the calling member. When the bounty has an
// execution limit, the claim deadline is claim time plus that many days.
func (s *TaskLifecycleService) Claim(ctx context.Context, actorID string, taskID uint) (*models.Task, error) {
	member, err := s.requireMember(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type != models.TaskTypeBounty {
		return nil, conflictf("only bounties can be claimed")
	}
	if task.Status != models.TaskStatusOpen {
		return nil, conflictf("task %d is %s, not open", taskID, task.Status)
	}
	if task.AssignedTo != nil {
		return nil, conflictf("task %d is already claimed", taskID)
	}

	task.AssignedTo = &member.ID
	task.Status = models.TaskStatusPending
	if task.ExecutionLimit != nil {
		due := s.now().AddDate(0, 0, *task.ExecutionLimit)
		task.DueAt = &due
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, Externalw("claim task", err)
	}
	_ = s.bus.Publish(ctx, Event{Type: EventTaskClaimed, Task: *task})
	return task, nil
}

// SubmitProof attaches a proof image key and moves the task under review.
// A rejected scheduled duty may be resubmitted.
func (s *TaskLifecycleService) SubmitProof(ctx context.Context, actorID string, taskID uint, proofKey string) (*models.Task, error) {
	member, err := s.requireMember(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if proofKey == "" {
		return nil, validationf("proof key is required")
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusOpen && task.Status != models.TaskStatusPending && !task.Resubmittable() {
		return nil, conflictf("task %d is %s and cannot take proof", taskID, task.Status)
	}
	if task.AssignedTo == nil || *task.AssignedTo != member.ID {
		return nil, authorizationf("task %d is not assigned to you", taskID)
	}

	if task.ProofKey != nil && *task.ProofKey != proofKey {
		s.cleanupProof(ctx, task)
	}
	task.ProofKey = &proofKey
	task.Status = models.TaskStatusPending
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, Externalw("submit proof", err)
	}
	_ = s.bus.Publish(ctx, Event{Type: EventTaskSubmitted, Task: *task})
	return task, nil
}

// Unclaim releases a pending task. A bounty goes back to the pool unassigned;
// a scheduled duty keeps its assignee and only drops the submitted proof.
func (s *TaskLifecycleService) Unclaim(ctx context.Context, actorID string, taskID uint) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, conflictf("task %d is %s, not pending", taskID, task.Status)
	}

	isAdmin, err := s.identity.VerifyRole(ctx, actorID, []string{RoleAdmin})
	if err != nil {
		return nil, Externalw("verify role", err)
	}
	if !isAdmin {
		member, err := s.requireMember(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if task.Type != models.TaskTypeBounty {
			return nil, authorizationf("only an admin can unclaim a %s", task.Type)
		}
		if task.AssignedTo == nil || *task.AssignedTo != member.ID {
			return nil, authorizationf("task %d is not assigned to you", taskID)
		}
	}

	s.cleanupProof(ctx, task)
	task.ProofKey = nil
	task.Status = models.TaskStatusOpen
	if task.Type == models.TaskTypeBounty {
		task.AssignedTo = nil
		task.NotificationLevel = models.NotifyLevelNone
		if task.ExecutionLimit != nil {
			task.DueAt = nil
		}
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, Externalw("unclaim task", err)
	}
	return task, nil
}

// Approve marks a pending task approved and awards its points through the
// event bus. The task update and the points award are transactional across
// the two stores: if any required event handler fails, the task is rolled
// back to pending and the error is surfaced to the caller. An optional
// override adjusts both the stored points value and the published award.
func (s *TaskLifecycleService) Approve(ctx context.Context, actorID string, taskID uint, override *int) (*models.Task, error) {
	if err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, conflictf("task %d is %s, not pending", taskID, task.Status)
	}
	if override != nil && *override < 0 {
		return nil, validationf("points override must not be negative")
	}

	prevPoints := task.PointsValue
	if override != nil {
		task.PointsValue = *override
	}
	completed := s.now()
	task.Status = models.TaskStatusApproved
	task.CompletedAt = &completed

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, Externalw("approve task", err)
	}

	if err := s.bus.Publish(ctx, Event{Type: EventTaskApproved, Task: *task, Points: task.PointsValue}); err != nil {
		// A task must never stay approved without its points durably
		// recorded. Revert and surface the failure.
		task.Status = models.TaskStatusPending
		task.CompletedAt = nil
		task.PointsValue = prevPoints
		if rbErr := s.tasks.Update(ctx, task); rbErr != nil {
			log.Printf("[lifecycle] rollback of task %d failed: %v", task.ID, rbErr)
		}
		return nil, Externalw("award points", err)
	}

	// Spawn the successor instance for scheduled duties. Generation failure
	// does not undo the approval; heal repairs the chain later.
	if task.ScheduleID != nil {
		if err := s.generateSuccessor(ctx, task); err != nil {
			log.Printf("[lifecycle] successor generation for schedule %d failed: %v", *task.ScheduleID, err)
		}
	}
	return task, nil
}

// Reject refuses a pending submission. Scheduled duties stay rejected so the
// assignee can resubmit; ad hoc tasks are deleted outright since there is no
// template behind them and nothing worth retaining.
func (s *TaskLifecycleService) Reject(ctx context.Context, actorID string, taskID uint) (*models.Task, error) {
	if err := s.requireRole(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, conflictf("task %d is %s, not pending", taskID, task.Status)
	}

	if task.AdHoc() {
		s.cleanupProof(ctx, task)
		if err := s.tasks.Delete(ctx, task.ID); err != nil {
			return nil, Externalw("reject task", err)
		}
	} else {
		task.Status = models.TaskStatusRejected
		if err := s.tasks.Update(ctx, task); err != nil {
			return nil, Externalw("reject task", err)
		}
	}
	_ = s.bus.Publish(ctx, Event{Type: EventTaskRejected, Task: *task})
	return task, nil
}

func (s *TaskLifecycleService) generateSuccessor(ctx context.Context, prior *models.Task) error {
	sched, err := s.schedules.FindByID(ctx, *prior.ScheduleID)
	if err != nil {
		return err
	}
	if !sched.Active {
		return nil
	}
	_, err = s.scheduler.GenerateNext(ctx, sched, prior)
	return err
}

func (s *TaskLifecycleService) loadTask(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundf("task %d", id)
	}
	return task, nil
}

func (s *TaskLifecycleService) requireRole(ctx context.Context, actorID, role string) error {
	ok, err := s.identity.VerifyRole(ctx, actorID, []string{role})
	if err != nil {
		return Externalw("verify role", err)
	}
	if !ok {
		return authorizationf("%s role required", role)
	}
	return nil
}

func (s *TaskLifecycleService) requireMember(ctx context.Context, actorID string) (*models.Member, error) {
	ok, err := s.identity.VerifyMembership(ctx, actorID)
	if err != nil {
		return nil, Externalw("verify membership", err)
	}
	if !ok {
		return nil, authorizationf("not an active member")
	}
	member, err := s.users.FindByExternalID(ctx, actorID)
	if err != nil {
		return nil, notFoundf("member %s", actorID)
	}
	return member, nil
}

// cleanupProof deletes the stored proof object, best-effort. Orphaned objects
// are preferable to failing the transition.
func (s *TaskLifecycleService) cleanupProof(ctx context.Context, task *models.Task) {
	if task.ProofKey == nil || s.proofs == nil {
		return
	}
	if err := s.proofs.Delete(ctx, *task.ProofKey); err != nil {
		log.Printf("[lifecycle] deleting proof %s for task %d: %v", *task.ProofKey, task.ID, err)
	}
}
