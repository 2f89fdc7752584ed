package services

import (
	"context"
	"testing"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

func newSchedulerFixture(t *testing.T) (*SchedulerService, *fakeTaskRepo, *fakeScheduleRepo, time.Time) {
	t.Helper()
	tasks := newFakeTaskRepo()
	scheds := newFakeScheduleRepo()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := NewSchedulerService(tasks, scheds)
	svc.now = func() time.Time { return now }
	return svc, tasks, scheds, now
}

func TestGenerateNextLocksUntilUnlock(t *testing.T) {
	svc, _, scheds, now := newSchedulerFixture(t)
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24, Active: true, PointsValue: 5}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}

	task, err := svc.GenerateNext(context.Background(), sched, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.TaskStatusLocked {
		t.Errorf("status = %q, want locked", task.Status)
	}
	if task.DueAt == nil || !task.DueAt.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("DueAt = %v, want base + 7 days", task.DueAt)
	}
	if task.UnlockAt == nil || !task.UnlockAt.Equal(now.AddDate(0, 0, 6)) {
		t.Errorf("UnlockAt = %v, want due - 24h", task.UnlockAt)
	}

	got, _ := scheds.FindByID(context.Background(), sched.ID)
	if got.LastGeneratedAt == nil || !got.LastGeneratedAt.Equal(now) {
		t.Errorf("LastGeneratedAt = %v, want %v", got.LastGeneratedAt, now)
	}
}

func TestGenerateNextOpensWhenUnlockElapsed(t *testing.T) {
	svc, _, scheds, _ := newSchedulerFixture(t)
	// daily cadence with a lead time longer than the interval: unlock clamps
	// to base, so the instance is immediately visible
	sched := &models.Schedule{Title: "Dishes", RecurrenceRule: "1", LeadTimeHours: 48, Active: true}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}

	task, err := svc.GenerateNext(context.Background(), sched, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.TaskStatusOpen {
		t.Errorf("status = %q, want open", task.Status)
	}
	if task.NotificationLevel != models.NotifyLevelUnlocked {
		t.Errorf("notification level = %q, want unlocked", task.NotificationLevel)
	}
}

func TestGenerateNextBasesOnCompletion(t *testing.T) {
	svc, tasks, scheds, now := newSchedulerFixture(t)
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24, Active: true}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	completed := now.Add(-48 * time.Hour)
	prior := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusApproved,
		ScheduleID: &sched.ID, CompletedAt: &completed,
		NotificationLevel: models.NotifyLevelNone,
	}
	if err := tasks.Create(context.Background(), prior); err != nil {
		t.Fatal(err)
	}

	task, err := svc.GenerateNext(context.Background(), sched, prior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.DueAt == nil || !task.DueAt.Equal(completed.AddDate(0, 0, 7)) {
		t.Errorf("DueAt = %v, want completion + 7 days", task.DueAt)
	}
}

func TestHealIsIdempotent(t *testing.T) {
	svc, tasks, scheds, _ := newSchedulerFixture(t)
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24, Active: true}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	// broken chain: only a terminal instance remains
	expired := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusExpired,
		ScheduleID: &sched.ID, NotificationLevel: models.NotifyLevelExpired,
	}
	if err := tasks.Create(context.Background(), expired); err != nil {
		t.Fatal(err)
	}

	first, err := svc.Heal(context.Background(), sched)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if first == nil {
		t.Fatal("heal did not regenerate a broken chain")
	}

	second, err := svc.Heal(context.Background(), sched)
	if err != nil {
		t.Fatalf("second heal: %v", err)
	}
	if second != nil {
		t.Error("heal regenerated despite a live instance")
	}

	instances, _ := tasks.FindMany(context.Background(), TaskFilter{ScheduleID: &sched.ID})
	if len(instances) != 2 {
		t.Errorf("instances = %d, want 2", len(instances))
	}
}

func TestHealSkipsRejectedResubmittableDuty(t *testing.T) {
	svc, tasks, scheds, _ := newSchedulerFixture(t)
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", LeadTimeHours: 24, Active: true}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}
	alice := uint(1)
	rejected := &models.Task{
		Title: "Trash run", Type: models.TaskTypeDuty, Status: models.TaskStatusRejected,
		ScheduleID: &sched.ID, AssignedTo: &alice,
		NotificationLevel: models.NotifyLevelUnlocked,
	}
	if err := tasks.Create(context.Background(), rejected); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Heal(context.Background(), sched)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if task != nil {
		t.Error("heal regenerated while a rejected duty awaits resubmission")
	}
	instances, _ := tasks.FindMany(context.Background(), TaskFilter{ScheduleID: &sched.ID})
	if len(instances) != 1 {
		t.Errorf("instances = %d, want 1", len(instances))
	}
}

func TestHealSkipsInactiveSchedules(t *testing.T) {
	svc, tasks, scheds, _ := newSchedulerFixture(t)
	sched := &models.Schedule{Title: "Trash run", RecurrenceRule: "7", Active: false}
	if err := scheds.Create(context.Background(), sched); err != nil {
		t.Fatal(err)
	}

	task, err := svc.Heal(context.Background(), sched)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if task != nil {
		t.Error("heal generated an instance for an inactive schedule")
	}
	instances, _ := tasks.FindMany(context.Background(), TaskFilter{ScheduleID: &sched.ID})
	if len(instances) != 0 {
		t.Errorf("instances = %d, want 0", len(instances))
	}
}

func TestHealAllCountsRegenerated(t *testing.T) {
	svc, _, scheds, _ := newSchedulerFixture(t)
	for i := 0; i < 3; i++ {
		sched := &models.Schedule{Title: "Chore", RecurrenceRule: "7", Active: true}
		if err := scheds.Create(context.Background(), sched); err != nil {
			t.Fatal(err)
		}
	}

	healed, err := svc.HealAll(context.Background())
	if err != nil {
		t.Fatalf("heal all: %v", err)
	}
	if healed != 3 {
		t.Errorf("healed = %d, want 3", healed)
	}

	healed, err = svc.HealAll(context.Background())
	if err != nil {
		t.Fatalf("second heal all: %v", err)
	}
	if healed != 0 {
		t.Errorf("second healed = %d, want 0", healed)
	}
}
