package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	var m models.Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Member, error) {
	var m models.Member
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindTopByPoints orders by current points with deterministic tie-breaks:
// lifetime points descending, then id ascending. Alumni are excluded.
func (r *MemberRepo) FindTopByPoints(ctx context.Context, limit int) ([]models.Member, error) {
	var members []models.Member
	err := r.db.WithContext(ctx).
		Where("status = ?", models.MemberStatusActive).
		Order("points_current DESC, points_lifetime DESC, id ASC").
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// UpdatePoints applies the signed delta in one statement. Lifetime points
// only ever grow, and only from positive awards.
func (r *MemberRepo) UpdatePoints(ctx context.Context, id uint, delta int) error {
	updates := map[string]interface{}{
		"points_current": gorm.Expr("points_current + ?", delta),
	}
	if delta > 0 {
		updates["points_lifetime"] = gorm.Expr("points_lifetime + ?", delta)
	}
	res := r.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MemberRepo) CountWithPointsGreaterThan(ctx context.Context, points int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("status = ? AND points_current > ?", models.MemberStatusActive, points).
		Count(&count).Error
	return count, err
}

func (r *MemberRepo) Create(ctx context.Context, m *models.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}
