package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// LedgerRepo is append-only: entries are never updated or deleted.
type LedgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Create(ctx context.Context, e *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LedgerRepo) FindByUser(ctx context.Context, userID uint, category string, limit int) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var entries []models.LedgerEntry
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByUser computes the signed sum of a member's entries in SQL.
func (r *LedgerRepo) SumByUser(ctx context.Context, userID uint) (int64, error) {
	var sum *int64
	err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Select("SUM(CASE WHEN is_debit THEN -amount ELSE amount END)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
