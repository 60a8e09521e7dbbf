package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/models"
	pgrepo "github.com/interpretd/speechrelay/internal/repositories/postgres"
	"github.com/interpretd/speechrelay/internal/transport"
	"github.com/interpretd/speechrelay/internal/utils"
)

// StatusPublisher pushes status changes into the room fan-out so every
// connected viewer flips display mode together.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, roomID, status string) error
}

type EventService interface {
	Create(ctx context.Context, ev *models.Event) (*models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, limit int) ([]models.Event, error)
	SetStatus(ctx context.Context, id, status string) (*models.Event, error)
	Update(ctx context.Context, ev *models.Event) error
}

type eventService struct {
	events pgrepo.EventRepo
	status StatusPublisher
}

func NewEventService(events pgrepo.EventRepo, status StatusPublisher) EventService {
	return &eventService{events: events, status: status}
}

func (s *eventService) Create(ctx context.Context, ev *models.Event) (*models.Event, error) {
	const op = "EventService.Create"

	if ev == nil || ev.Title == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title is required", nil)
	}
	if len(ev.SourceLanguages) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "at least one source language is required", nil)
	}
	for _, l := range append(append(pq.StringArray{}, ev.SourceLanguages...), ev.TargetLanguages...) {
		if !language.Known(l) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "unknown language: "+l, nil)
		}
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Status == "" {
		ev.Status = models.EventStatusScheduled
	}
	if !models.ValidEventStatus(ev.Status) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status: "+ev.Status, nil)
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	if err := s.events.Insert(ctx, ev); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert event", err)
	}
	return ev, nil
}

func (s *eventService) Get(ctx context.Context, id string) (*models.Event, error) {
	const op = "EventService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "event id is required", nil)
	}

	out, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "event not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get event", err)
	}
	return out, nil
}

func (s *eventService) List(ctx context.Context, limit int) ([]models.Event, error) {
	const op = "EventService.List"

	rows, err := s.events.List(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list events", err)
	}
	return rows, nil
}

// SetStatus persists the transition and broadcasts it to the event room.
func (s *eventService) SetStatus(ctx context.Context, id, status string) (*models.Event, error) {
	const op = "EventService.SetStatus"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "event id is required", nil)
	}
	if !models.ValidEventStatus(status) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid status: "+status, nil)
	}

	if err := s.events.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "event not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update status", err)
	}

	if s.status != nil {
		if err := s.status.PublishStatus(ctx, id, status); err != nil {
			// viewers resync on their next join; the stored state is authoritative
			return nil, utils.E(utils.CodeInternal, op, "status stored but broadcast failed", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *eventService) Update(ctx context.Context, ev *models.Event) error {
	const op = "EventService.Update"

	if ev == nil || ev.ID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "event id is required", nil)
	}
	ev.UpdatedAt = time.Now().UTC()
	if err := s.events.Update(ctx, ev); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update event", err)
	}
	return nil
}

var _ StatusPublisher = (*transport.Hub)(nil)
