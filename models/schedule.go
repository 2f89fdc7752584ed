package models

import "time"

// Schedule is a recurrence template. Generated duty instances carry the
// schedule's id; at most one instance per schedule may be non-terminal.
type Schedule struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"type:varchar(150);not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	PointsValue     int        `gorm:"not null;default:0" json:"points_value"`
	RecurrenceRule  string     `gorm:"type:varchar(100);not null" json:"recurrence_rule"`
	LeadTimeHours   int        `gorm:"not null;default:24" json:"lead_time_hours"`
	AssignedTo      *uint      `gorm:"index" json:"assigned_to,omitempty"`
	Active          bool       `gorm:"not null;default:true" json:"active"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Schedule) TableName() string {
	return "schedules"
}
