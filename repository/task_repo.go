package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
)

type TaskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) FindByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepo) FindMany(ctx context.Context, f services.TaskFilter) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Model(&models.Task{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.ScheduleID != nil {
		q = q.Where("schedule_id = ?", *f.ScheduleID)
	}
	if f.DueBefore != nil {
		q = q.Where("due_at IS NOT NULL AND due_at <= ?", *f.DueBefore)
	}
	if f.UnlockBefore != nil {
		q = q.Where("unlock_at IS NOT NULL AND unlock_at <= ?", *f.UnlockBefore)
	}
	if f.HasAssignee != nil {
		if *f.HasAssignee {
			q = q.Where("assigned_to IS NOT NULL")
		} else {
			q = q.Where("assigned_to IS NULL")
		}
	}
	if f.HasDueAt != nil {
		if *f.HasDueAt {
			q = q.Where("due_at IS NOT NULL")
		} else {
			q = q.Where("due_at IS NULL")
		}
	}
	if len(f.NotifyLevelNotIn) > 0 {
		q = q.Where("notification_level NOT IN ?", f.NotifyLevelNotIn)
	}
	if f.IDAfter != nil {
		q = q.Where("id > ?", *f.IDAfter)
	}
	if f.OrderBy != "" {
		q = q.Order(f.OrderBy)
	} else {
		q = q.Order("id ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	// Save writes all fields so cleared pointers (assignee, proof) persist as NULL
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TaskRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Task{}, id).Error
}
