package models

import "time"

const (
	MemberStatusActive = "active"
	MemberStatusAlumni = "alumni"
)

// Member is an organization member. PointsCurrent is mutated only through
// the points ledger service; PointsLifetime never decreases.
type Member struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ExternalID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	Handle         string    `gorm:"type:varchar(64)" json:"handle"`
	PointsCurrent  int       `gorm:"not null;default:0;index" json:"points_current"`
	PointsLifetime int       `gorm:"not null;default:0" json:"points_lifetime"`
	Status         string    `gorm:"type:enum('active','alumni');not null;default:'active'" json:"status"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (Member) TableName() string {
	return "members"
}
