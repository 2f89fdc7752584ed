package models

import "time"

// Task types
const (
	TaskTypeDuty    = "duty"
	TaskTypeBounty  = "bounty"
	TaskTypeProject = "project"
	TaskTypeOneOff  = "one_off"
)

// Task statuses. Approved is terminal; expired/rejected are terminal for
// scheduled duties (ad hoc tasks are deleted instead of retained).
const (
	TaskStatusOpen     = "open"
	TaskStatusPending  = "pending"
	TaskStatusApproved = "approved"
	TaskStatusRejected = "rejected"
	TaskStatusExpired  = "expired"
	TaskStatusLocked   = "locked"
)

// Notification levels track which reminder has already fired for a task so
// the sweep never sends the same reminder twice.
const (
	NotifyLevelNone     = "none"
	NotifyLevelUnlocked = "unlocked"
	NotifyLevelHalfway  = "halfway"
	NotifyLevelUrgent   = "urgent"
	NotifyLevelExpired  = "expired"
)

type Task struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"type:varchar(150);not null" json:"title"`
	Description       string     `gorm:"type:text" json:"description"`
	Type              string     `gorm:"type:enum('duty','bounty','project','one_off');not null;index" json:"type"`
	Status            string     `gorm:"type:enum('open','pending','approved','rejected','expired','locked');not null;default:'open';index" json:"status"`
	PointsValue       int        `gorm:"not null;default:0" json:"points_value"`
	ScheduleID        *uint      `gorm:"index" json:"schedule_id,omitempty"`
	AssignedTo        *uint      `gorm:"index" json:"assigned_to,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	UnlockAt          *time.Time `json:"unlock_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ProofKey          *string    `gorm:"type:varchar(255)" json:"proof_key,omitempty"`
	NotificationLevel string     `gorm:"type:enum('none','unlocked','halfway','urgent','expired');not null;default:'none'" json:"notification_level"`
	ExecutionLimit    *int       `json:"execution_limit,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Terminal reports whether the task can never transition again. A schedule
// with zero non-terminal instances has a broken chain and needs healing.
func (t *Task) Terminal() bool {
	switch t.Status {
	case TaskStatusApproved, TaskStatusRejected, TaskStatusExpired:
		return true
	}
	return false
}

// AdHoc reports whether the task was created outside any schedule. Rejected
// ad hoc tasks are deleted outright since there is no template to regenerate.
func (t *Task) AdHoc() bool {
	return t.ScheduleID == nil
}

// Resubmittable reports whether a rejected task can still take new proof.
// Only scheduled duties survive rejection; their cycle stays owned by the
// rejected instance until it is resubmitted or deleted.
func (t *Task) Resubmittable() bool {
	return t.Status == TaskStatusRejected && t.Type == TaskTypeDuty && t.ScheduleID != nil
}
