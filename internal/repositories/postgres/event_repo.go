package postgres

import (
	"context"
	"errors"

	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/utils"
	"gorm.io/gorm"
)

type EventRepo interface {
	Insert(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, limit int) ([]models.Event, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Update(ctx context.Context, ev *models.Event) error
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepo {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, ev *models.Event) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var row models.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *eventRepo) List(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *eventRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *eventRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *eventRepo) Update(ctx context.Context, ev *models.Event) error {
	return r.db.WithContext(ctx).Save(ev).Error
}
