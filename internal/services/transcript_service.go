package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/interpretd/speechrelay/internal/capture"
	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/models"
	mongorepo "github.com/interpretd/speechrelay/internal/repositories/mongo"
	pgrepo "github.com/interpretd/speechrelay/internal/repositories/postgres"
	"github.com/interpretd/speechrelay/internal/storage"
	"github.com/interpretd/speechrelay/internal/utils"
)

// EmbedFunc optionally vectorizes archived entries for later semantic
// search over recorded events.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type TranscriptService interface {
	capture.Recorder

	AttachTranslation(ctx context.Context, eventID, chunkID, lang, text string) error
	Snapshot(ctx context.Context, eventID string, limit int64) ([]models.TranscriptChunk, error)
	Archive(ctx context.Context, eventID string, limit int) ([]models.TranscriptEntry, error)
	Export(ctx context.Context, eventID string) (url string, err error)
	Purge(ctx context.Context, eventID string) error
}

type transcriptService struct {
	buffer  mongorepo.TranscriptBufferRepo
	archive pgrepo.TranscriptRepo
	events  pgrepo.EventRepo

	uploader storage.Uploader
	signer   storage.Signer
	embed    EmbedFunc
}

func NewTranscriptService(
	buffer mongorepo.TranscriptBufferRepo,
	archive pgrepo.TranscriptRepo,
	events pgrepo.EventRepo,
	uploader storage.Uploader,
	signer storage.Signer,
	embed EmbedFunc,
) TranscriptService {
	return &transcriptService{
		buffer:   buffer,
		archive:  archive,
		events:   events,
		uploader: uploader,
		signer:   signer,
		embed:    embed,
	}
}

// Record lands one finalized chunk in the rolling buffer and, when the
// event has recording enabled, in the durable archive.
func (s *transcriptService) Record(ctx context.Context, eventID, chunkID, text, sourceLang string, enhanced bool, replaces []string) error {
	const op = "TranscriptService.Record"

	if eventID == "" || chunkID == "" || strings.TrimSpace(text) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "event_id, chunk_id, and text are required", nil)
	}

	chunk := &models.TranscriptChunk{
		EventID:         eventID,
		ChunkID:         chunkID,
		Text:            text,
		SourceLanguage:  sourceLang,
		ContextEnhanced: enhanced,
		Timestamp:       time.Now().UTC(),
	}

	var err error
	if enhanced && len(replaces) > 0 {
		err = s.buffer.ReplaceChunks(ctx, eventID, replaces, chunk)
	} else {
		err = s.buffer.InsertChunk(ctx, chunk)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to buffer chunk", err)
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil
		}
		return utils.E(utils.CodeInternal, op, "failed to load event", err)
	}
	if !ev.RecordEvent {
		return nil
	}

	entry := &models.TranscriptEntry{
		ID:             uuid.NewString(),
		EventID:        eventID,
		Text:           text,
		SourceLanguage: sourceLang,
		Timestamp:      chunk.Timestamp,
	}
	if s.embed != nil {
		if vec, err := s.embed(ctx, text); err == nil && len(vec) > 0 {
			entry.Embedding = pgvector.NewVector(vec)
		}
	}
	if err := s.archive.Insert(ctx, entry); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to archive entry", err)
	}
	return nil
}

// AttachTranslation stores a resolved translation on its buffered chunk so
// snapshot consumers see the same text late joiners resolve live.
func (s *transcriptService) AttachTranslation(ctx context.Context, eventID, chunkID, lang, text string) error {
	const op = "TranscriptService.AttachTranslation"

	if eventID == "" || chunkID == "" || lang == "" {
		return utils.E(utils.CodeInvalidArgument, op, "event_id, chunk_id, and lang are required", nil)
	}
	if err := s.buffer.SetTranslation(ctx, eventID, chunkID, language.Normalize(lang), text); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to attach translation", err)
	}
	return nil
}

func (s *transcriptService) Snapshot(ctx context.Context, eventID string, limit int64) ([]models.TranscriptChunk, error) {
	const op = "TranscriptService.Snapshot"

	if eventID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "event_id is required", nil)
	}
	out, err := s.buffer.ListByEvent(ctx, eventID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read buffer", err)
	}
	return out, nil
}

func (s *transcriptService) Archive(ctx context.Context, eventID string, limit int) ([]models.TranscriptEntry, error) {
	const op = "TranscriptService.Archive"

	if eventID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "event_id is required", nil)
	}
	out, err := s.archive.ListByEvent(ctx, eventID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read archive", err)
	}
	return out, nil
}

// Export renders the archived transcript as plain text, uploads it, and
// returns a time-limited download URL.
func (s *transcriptService) Export(ctx context.Context, eventID string) (string, error) {
	const op = "TranscriptService.Export"

	if s.uploader == nil || s.signer == nil {
		return "", utils.E(utils.CodeUnavailable, op, "export storage is not configured", nil)
	}

	entries, err := s.Archive(ctx, eventID, 0)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", utils.E(utils.CodeNotFound, op, "no recorded transcript for event", nil)
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Timestamp.Format("15:04:05"))
		b.WriteString("  ")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}

	object := "transcripts/" + eventID + ".txt"
	if _, err := s.uploader.Upload(ctx, object, "text/plain; charset=utf-8", strings.NewReader(b.String())); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to upload transcript", err)
	}

	url, err := s.signer.SignedGetURL(ctx, object, 24*time.Hour)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to sign transcript url", err)
	}
	return url, nil
}

// Purge drops both the rolling buffer and the durable archive for an event.
func (s *transcriptService) Purge(ctx context.Context, eventID string) error {
	const op = "TranscriptService.Purge"

	if eventID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "event_id is required", nil)
	}
	if err := s.buffer.DeleteByEvent(ctx, eventID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to purge buffer", err)
	}
	if err := s.archive.DeleteByEvent(ctx, eventID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to purge archive", err)
	}
	return nil
}
