package postgres

import (
	"context"

	"github.com/interpretd/speechrelay/internal/models"
	"gorm.io/gorm"
)

type TranscriptRepo interface {
	Insert(ctx context.Context, entry *models.TranscriptEntry) error
	ListByEvent(ctx context.Context, eventID string, limit int) ([]models.TranscriptEntry, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepo {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) Insert(ctx context.Context, entry *models.TranscriptEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transcriptRepo) ListByEvent(ctx context.Context, eventID string, limit int) ([]models.TranscriptEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []models.TranscriptEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *transcriptRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&models.TranscriptEntry{}).Error
}
