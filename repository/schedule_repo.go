package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

type ScheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) FindByID(ctx context.Context, id uint) (*models.Schedule, error) {
	var sched models.Schedule
	if err := r.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		return nil, err
	}
	return &sched, nil
}

func (r *ScheduleRepo) FindActive(ctx context.Context) ([]models.Schedule, error) {
	var scheds []models.Schedule
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&scheds).Error; err != nil {
		return nil, err
	}
	return scheds, nil
}

func (r *ScheduleRepo) FindAll(ctx context.Context) ([]models.Schedule, error) {
	var scheds []models.Schedule
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&scheds).Error; err != nil {
		return nil, err
	}
	return scheds, nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s *models.Schedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ScheduleRepo) Update(ctx context.Context, s *models.Schedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}
