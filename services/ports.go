package services

import (
	"context"
	"time"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// TaskFilter narrows FindMany scans. Zero values mean "no constraint".
// Limit bounds every scan so sweep passes stay paginated.
type TaskFilter struct {
	Statuses         []string
	Type             string
	AssignedTo       *uint
	ScheduleID       *uint
	DueBefore        *time.Time
	UnlockBefore     *time.Time
	HasAssignee      *bool
	HasDueAt         *bool
	NotifyLevelNotIn []string
	// IDAfter pages by id cursor, which stays stable when the scan itself
	// mutates rows out of the filter.
	IDAfter *uint
	Limit   int
	OrderBy string
}

type TaskRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Task, error)
	FindMany(ctx context.Context, f TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id uint) error
}

type ScheduleRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Schedule, error)
	FindActive(ctx context.Context) ([]models.Schedule, error)
	FindAll(ctx context.Context) ([]models.Schedule, error)
	Create(ctx context.Context, s *models.Schedule) error
	Update(ctx context.Context, s *models.Schedule) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Member, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Member, error)
	FindTopByPoints(ctx context.Context, limit int) ([]models.Member, error)
	// UpdatePoints applies delta to points_current and, when delta is
	// positive, to points_lifetime, in a single statement.
	UpdatePoints(ctx context.Context, id uint, delta int) error
	CountWithPointsGreaterThan(ctx context.Context, points int) (int64, error)
	Create(ctx context.Context, m *models.Member) error
}

type LedgerRepository interface {
	Create(ctx context.Context, e *models.LedgerEntry) error
	FindByUser(ctx context.Context, userID uint, category string, limit int) ([]models.LedgerEntry, error)
	SumByUser(ctx context.Context, userID uint) (int64, error)
}

// IdentityProvider authorizes commands. The core calls it once per command
// and never manages credentials itself.
type IdentityProvider interface {
	VerifyMembership(ctx context.Context, externalID string) (bool, error)
	VerifyRole(ctx context.Context, externalID string, allowedRoles []string) (bool, error)
}

// Notifier delivers chat-platform messages. All calls are best-effort.
type Notifier interface {
	SendDirectMessage(ctx context.Context, externalID, content string) error
	SendToChannel(ctx context.Context, channelID, content string) error
}

// ProofStore holds proof images; the core only ever handles opaque keys.
type ProofStore interface {
	GetReadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Roles accepted by VerifyRole.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)
