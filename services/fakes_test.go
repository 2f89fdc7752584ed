package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// In-memory port implementations for service tests. Behavior mirrors the
// GORM repositories closely enough for the filters the services use.

type fakeTaskRepo struct {
	mu      sync.Mutex
	nextID  uint
	tasks   map[uint]models.Task
	failUpd bool
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{nextID: 1, tasks: make(map[uint]models.Task)}
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id uint) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := t
	return &cp, nil
}

func matches(t *models.Task, f TaskFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.ScheduleID != nil && (t.ScheduleID == nil || *t.ScheduleID != *f.ScheduleID) {
		return false
	}
	if f.DueBefore != nil && (t.DueAt == nil || t.DueAt.After(*f.DueBefore)) {
		return false
	}
	if f.UnlockBefore != nil && (t.UnlockAt == nil || t.UnlockAt.After(*f.UnlockBefore)) {
		return false
	}
	if f.HasAssignee != nil && *f.HasAssignee != (t.AssignedTo != nil) {
		return false
	}
	if f.HasDueAt != nil && *f.HasDueAt != (t.DueAt != nil) {
		return false
	}
	for _, lvl := range f.NotifyLevelNotIn {
		if t.NotificationLevel == lvl {
			return false
		}
	}
	if f.IDAfter != nil && t.ID <= *f.IDAfter {
		return false
	}
	return true
}

func (r *fakeTaskRepo) FindMany(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Task
	for _, t := range r.tasks {
		t := t
		if matches(&t, f) {
			out = append(out, t)
		}
	}
	less := func(i, j int) bool { return out[i].ID < out[j].ID }
	if f.OrderBy == "created_at DESC" {
		less = func(i, j int) bool { return out[i].ID > out[j].ID }
	}
	sort.Slice(out, less)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpd {
		return errors.New("update failed")
	}
	if _, ok := r.tasks[t.ID]; !ok {
		return errors.New("record not found")
	}
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) get(id uint) models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id]
}

type fakeScheduleRepo struct {
	mu     sync.Mutex
	nextID uint
	scheds map[uint]models.Schedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{nextID: 1, scheds: make(map[uint]models.Schedule)}
}

func (r *fakeScheduleRepo) FindByID(ctx context.Context, id uint) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scheds[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := s
	return &cp, nil
}

func (r *fakeScheduleRepo) FindActive(ctx context.Context) ([]models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Schedule
	for _, s := range r.scheds {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeScheduleRepo) FindAll(ctx context.Context) ([]models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Schedule
	for _, s := range r.scheds {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeScheduleRepo) Create(ctx context.Context, s *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	r.scheds[s.ID] = *s
	return nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, s *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheds[s.ID] = *s
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	nextID  uint
	members map[uint]models.Member
	failUpd bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, members: make(map[uint]models.Member)}
}

func (r *fakeUserRepo) add(externalID, name string) *models.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := models.Member{
		ID:         r.nextID,
		ExternalID: externalID,
		Name:       name,
		Status:     models.MemberStatusActive,
	}
	r.nextID++
	r.members[m.ID] = m
	return &m
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	cp := m
	return &cp, nil
}

func (r *fakeUserRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ExternalID == externalID {
			cp := m
			return &cp, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *fakeUserRepo) FindTopByPoints(ctx context.Context, limit int) ([]models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Member
	for _, m := range r.members {
		if m.Status == models.MemberStatusActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointsCurrent != out[j].PointsCurrent {
			return out[i].PointsCurrent > out[j].PointsCurrent
		}
		if out[i].PointsLifetime != out[j].PointsLifetime {
			return out[i].PointsLifetime > out[j].PointsLifetime
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) UpdatePoints(ctx context.Context, id uint, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpd {
		return errors.New("update failed")
	}
	m, ok := r.members[id]
	if !ok {
		return errors.New("record not found")
	}
	m.PointsCurrent += delta
	if delta > 0 {
		m.PointsLifetime += delta
	}
	r.members[id] = m
	return nil
}

func (r *fakeUserRepo) CountWithPointsGreaterThan(ctx context.Context, points int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.members {
		if m.Status == models.MemberStatusActive && m.PointsCurrent > points {
			n++
		}
	}
	return n, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.nextID
	r.nextID++
	r.members[m.ID] = *m
	return nil
}

func (r *fakeUserRepo) points(id uint) (current, lifetime int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.members[id]
	return m.PointsCurrent, m.PointsLifetime
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries []models.LedgerEntry
	failAdd bool
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{nextID: 1}
}

func (r *fakeLedgerRepo) Create(ctx context.Context, e *models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAdd {
		return errors.New("insert failed")
	}
	e.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeLedgerRepo) FindByUser(ctx context.Context, userID uint, category string, limit int) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.UserID != userID {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) SumByUser(ctx context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for i := range r.entries {
		if r.entries[i].UserID == userID {
			sum += int64(r.entries[i].Signed())
		}
	}
	return sum, nil
}

// fakeIdentity treats "admin:*" actors as admins and everything else as a
// member when the id is in the allowed set.
type fakeIdentity struct {
	members map[string]bool
	admins  map[string]bool
}

func newFakeIdentity(memberIDs ...string) *fakeIdentity {
	f := &fakeIdentity{members: make(map[string]bool), admins: map[string]bool{"admin:1": true}}
	for _, id := range memberIDs {
		f.members[id] = true
	}
	return f
}

func (f *fakeIdentity) VerifyMembership(ctx context.Context, externalID string) (bool, error) {
	return f.members[externalID], nil
}

func (f *fakeIdentity) VerifyRole(ctx context.Context, externalID string, allowedRoles []string) (bool, error) {
	for _, role := range allowedRoles {
		if role == RoleAdmin && f.admins[externalID] {
			return true, nil
		}
		if role == RoleMember && f.members[externalID] {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	direct   []string
	channel  []string
	failNext bool
}

func (f *fakeNotifier) SendDirectMessage(ctx context.Context, externalID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("send failed")
	}
	f.direct = append(f.direct, externalID+": "+content)
	return nil
}

func (f *fakeNotifier) SendToChannel(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = append(f.channel, content)
	return nil
}

type fakeProofStore struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeProofStore) GetReadURL(ctx context.Context, key string) (string, error) {
	return "https://proofs.test/" + key, nil
}

func (f *fakeProofStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}
