package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

type lifecycleFixture struct {
	tasks     *fakeTaskRepo
	schedules *fakeScheduleRepo
	users     *fakeUserRepo
	ledger    *fakeLedgerRepo
	notifier  *fakeNotifier
	proofs    *fakeProofStore
	bus       *EventBus
	svc       *TaskLifecycleService
	scheduler *SchedulerService
	points    *PointsLedgerService
	now       time.Time
}

func newLifecycleFixture(t *testing.T, memberIDs ...string) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		tasks:     newFakeTaskRepo(),
		schedules: newFakeScheduleRepo(),
		users:     newFakeUserRepo(),
		ledger:    newFakeLedgerRepo(),
		notifier:  &fakeNotifier{},
		proofs:    &fakeProofStore{},
		bus:       NewEventBus(),
		now:       time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	f.scheduler = NewSchedulerService(f.tasks, f.schedules)
	f.scheduler.now = func() time.Time { return f.now }
	f.svc = NewTaskLifecycleService(f.tasks, f.schedules, f.users, newFakeIdentity(memberIDs...), f.proofs, f.scheduler, f.bus)
	f.svc.now = func() time.Time { return f.now }
	f.points = NewPointsLedgerService(f.users, f.ledger, nil)
	RegisterEventHandlers(f.bus, f.points, f.users, f.notifier, "review-channel")
	return f
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	_, err := f.svc.CreateTask(context.Background(), "100", CreateTaskInput{Title: "x", Type: models.TaskTypeBounty})
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("error = %v, want ErrAuthorization", err)
	}
}

func TestCreateTaskFutureUnlockStartsLocked(t *testing.T) {
	f := newLifecycleFixture(t)
	unlock := f.now.Add(48 * time.Hour)
	task, err := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Clean kitchen", Type: models.TaskTypeOneOff, UnlockAt: &unlock,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.TaskStatusLocked {
		t.Errorf("status = %q, want locked", task.Status)
	}
}

func TestCreateBountyAnnouncesToChannel(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Fix door", Type: models.TaskTypeBounty, PointsValue: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.notifier.channel) != 1 {
		t.Errorf("channel messages = %d, want 1", len(f.notifier.channel))
	}
}

func TestClaimBounty(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	member := f.users.add("100", "Alice")
	limit := 3
	bounty, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Fix door", Type: models.TaskTypeBounty, PointsValue: 10, ExecutionLimit: &limit,
	})

	got, err := f.svc.Claim(context.Background(), "100", bounty.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.AssignedTo == nil || *got.AssignedTo != member.ID {
		t.Errorf("assignee = %v, want %d", got.AssignedTo, member.ID)
	}
	if got.DueAt == nil || !got.DueAt.Equal(f.now.AddDate(0, 0, 3)) {
		t.Errorf("DueAt = %v, want claim time + 3 days", got.DueAt)
	}

	// double claim must conflict
	if _, err := f.svc.Claim(context.Background(), "100", bounty.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("second claim error = %v, want ErrConflict", err)
	}
}

func TestClaimRejectsNonBounty(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	f.users.add("100", "Alice")
	duty, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff,
	})
	if _, err := f.svc.Claim(context.Background(), "100", duty.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestSubmitProofRequiresAssignee(t *testing.T) {
	f := newLifecycleFixture(t, "100", "101")
	alice := f.users.add("100", "Alice")
	f.users.add("101", "Bob")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, AssignedTo: &alice.ID,
	})

	if _, err := f.svc.SubmitProof(context.Background(), "101", task.ID, "proofs/x.jpg"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("error = %v, want ErrAuthorization", err)
	}
	got, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/x.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestResubmitReplacesProofObject(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, AssignedTo: &alice.ID,
	})

	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/b.jpg"); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if len(f.proofs.deleted) != 1 || f.proofs.deleted[0] != "proofs/a.jpg" {
		t.Errorf("deleted = %v, want [proofs/a.jpg]", f.proofs.deleted)
	}
}

func TestApproveAwardsPoints(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, PointsValue: 15, AssignedTo: &alice.ID,
	})
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.svc.Approve(context.Background(), "admin:1", task.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.TaskStatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	current, lifetime := f.users.points(alice.ID)
	if current != 15 || lifetime != 15 {
		t.Errorf("points = %d/%d, want 15/15", current, lifetime)
	}
	sum, _ := f.ledger.SumByUser(context.Background(), alice.ID)
	if sum != 15 {
		t.Errorf("ledger sum = %d, want 15", sum)
	}

	// approving twice must conflict
	if _, err := f.svc.Approve(context.Background(), "admin:1", task.ID, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("second approve error = %v, want ErrConflict", err)
	}
}

func TestApproveWithOverride(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, PointsValue: 15, AssignedTo: &alice.ID,
	})
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	override := 25
	got, err := f.svc.Approve(context.Background(), "admin:1", task.ID, &override)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PointsValue != 25 {
		t.Errorf("PointsValue = %d, want 25", got.PointsValue)
	}
	current, _ := f.users.points(alice.ID)
	if current != 25 {
		t.Errorf("points = %d, want 25", current)
	}
}

func TestApproveRollsBackWhenAwardFails(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, PointsValue: 15, AssignedTo: &alice.ID,
	})
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.ledger.failAdd = true
	_, err := f.svc.Approve(context.Background(), "admin:1", task.ID, nil)
	if !errors.Is(err, ErrExternal) {
		t.Fatalf("error = %v, want ErrExternal", err)
	}

	stored := f.tasks.get(task.ID)
	if stored.Status != models.TaskStatusPending {
		t.Errorf("status after rollback = %q, want pending", stored.Status)
	}
	if stored.CompletedAt != nil {
		t.Error("CompletedAt still set after rollback")
	}
	current, _ := f.users.points(alice.ID)
	if current != 0 {
		t.Errorf("points = %d, want 0", current)
	}

	// the award path recovers once the store does
	f.ledger.failAdd = false
	if _, err := f.svc.Approve(context.Background(), "admin:1", task.ID, nil); err != nil {
		t.Fatalf("retry approve: %v", err)
	}
}

func TestApproveSpawnsSuccessorForScheduledDuty(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	sched := &models.Schedule{
		Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24,
		AssignedTo: &alice.ID, Active: true, PointsValue: 5,
	}
	if err := f.schedules.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	due := f.now.Add(24 * time.Hour)
	task := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusOpen,
		ScheduleID: &sched.ID, AssignedTo: &alice.ID, DueAt: &due, PointsValue: 5,
		NotificationLevel: models.NotifyLevelUnlocked,
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Approve(context.Background(), "admin:1", task.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	instances, _ := f.tasks.FindMany(context.Background(), TaskFilter{ScheduleID: &sched.ID})
	if len(instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(instances))
	}
	succ := instances[1]
	if succ.Terminal() {
		t.Errorf("successor status = %q, want non-terminal", succ.Status)
	}
	if succ.DueAt == nil || !succ.DueAt.After(f.now) {
		t.Errorf("successor DueAt = %v, want after %v", succ.DueAt, f.now)
	}
}

func TestRejectScheduledDutyAllowsResubmit(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", Active: true}
	if err := f.schedules.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	task := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusOpen,
		ScheduleID: &sched.ID, AssignedTo: &alice.ID,
		NotificationLevel: models.NotifyLevelNone,
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.svc.Reject(context.Background(), "admin:1", task.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.TaskStatusRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}

	resubmitted, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/b.jpg")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.Status != models.TaskStatusPending {
		t.Errorf("status = %q, want pending", resubmitted.Status)
	}
}

func TestRejectedDutyBlocksHealUntilResolved(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24, Active: true, AssignedTo: &alice.ID}
	if err := f.schedules.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	due := f.now.Add(24 * time.Hour)
	proof := "proofs/a.jpg"
	duty := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusPending,
		ScheduleID: &sched.ID, AssignedTo: &alice.ID, DueAt: &due, ProofKey: &proof,
		NotificationLevel: models.NotifyLevelUnlocked,
	}
	if err := f.tasks.Create(context.Background(), duty); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Reject(context.Background(), "admin:1", duty.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// the rejected instance still owns this cycle; healing must not spawn
	// a successor next to it
	healed, err := f.scheduler.HealAll(context.Background())
	if err != nil {
		t.Fatalf("heal all: %v", err)
	}
	if healed != 0 {
		t.Fatalf("healed = %d, want 0", healed)
	}

	if _, err := f.svc.SubmitProof(context.Background(), "100", duty.ID, "proofs/b.jpg"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	instances, _ := f.tasks.FindMany(context.Background(), TaskFilter{ScheduleID: &sched.ID})
	live := 0
	for i := range instances {
		if !instances[i].Terminal() {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("live instances = %d, want exactly 1", live)
	}
}

func TestRejectAdHocDeletesTask(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	task, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Sweep hall", Type: models.TaskTypeOneOff, AssignedTo: &alice.ID,
	})
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.Reject(context.Background(), "admin:1", task.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.tasks.FindByID(context.Background(), task.ID); err == nil {
		t.Error("ad hoc task still exists after rejection")
	}
	if len(f.proofs.deleted) != 1 {
		t.Errorf("proof objects deleted = %d, want 1", len(f.proofs.deleted))
	}
}

func TestUnclaimBountyReturnsToPool(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	f.users.add("100", "Alice")
	limit := 3
	bounty, _ := f.svc.CreateTask(context.Background(), "admin:1", CreateTaskInput{
		Title: "Fix door", Type: models.TaskTypeBounty, ExecutionLimit: &limit,
	})
	if _, err := f.svc.Claim(context.Background(), "100", bounty.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	got, err := f.svc.Unclaim(context.Background(), "100", bounty.ID)
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if got.Status != models.TaskStatusOpen || got.AssignedTo != nil {
		t.Errorf("status=%q assignee=%v, want open/unassigned", got.Status, got.AssignedTo)
	}
	if got.DueAt != nil {
		t.Error("claim-derived deadline survived the unclaim")
	}
}

func TestUnclaimDutyRequiresAdmin(t *testing.T) {
	f := newLifecycleFixture(t, "100")
	alice := f.users.add("100", "Alice")
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", Active: true}
	if err := f.schedules.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	task := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusOpen,
		ScheduleID: &sched.ID, AssignedTo: &alice.ID,
		NotificationLevel: models.NotifyLevelNone,
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SubmitProof(context.Background(), "100", task.ID, "proofs/a.jpg"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.Unclaim(context.Background(), "100", task.ID); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("member unclaim error = %v, want ErrAuthorization", err)
	}

	got, err := f.svc.Unclaim(context.Background(), "admin:1", task.ID)
	if err != nil {
		t.Fatalf("admin unclaim: %v", err)
	}
	// duty keeps its assignee; only the submission is withdrawn
	if got.AssignedTo == nil || *got.AssignedTo != alice.ID {
		t.Errorf("assignee = %v, want %d", got.AssignedTo, alice.ID)
	}
	if got.Status != models.TaskStatusOpen || got.ProofKey != nil {
		t.Errorf("status=%q proof=%v, want open with no proof", got.Status, got.ProofKey)
	}
}
