package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/interpretd/speechrelay/internal/caption"
	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/speech"
	"github.com/interpretd/speechrelay/internal/transport"
	"github.com/interpretd/speechrelay/internal/utils"
)

// RoomSnapshot is what a late joiner receives on attach: the current
// reconciled view instead of an empty screen until the next final.
type RoomSnapshot struct {
	EventID         string `json:"event_id"`
	Status          string `json:"status"`
	SourceLanguage  string `json:"source_language,omitempty"`
	SourceText      string `json:"source_text"`
	TargetLanguage  string `json:"target_language,omitempty"`
	TranslationText string `json:"translation_text,omitempty"`
}

type BroadcastService interface {
	// Attach joins a viewer to an event room for a target language and
	// returns the current snapshot.
	Attach(ctx context.Context, eventID, targetLang string, conn *transport.Conn) (*RoomSnapshot, error)
	Detach(eventID, targetLang string, conn *transport.Conn)
	// Snapshot reads the current reconciled view without joining.
	Snapshot(eventID, targetLang string) (*RoomSnapshot, bool)
	RoomCount() int
}

type broadcastRoom struct {
	engine *caption.Engine
	pubsub *redis.PubSub
	cancel context.CancelFunc
	refs   int
}

type broadcastService struct {
	rdb          *redis.Client
	hub          *transport.Hub
	events       EventService
	transcripts  TranscriptService
	translations TranslationService
	speaker      *speech.Engine // optional venue audio output
	log          *logrus.Logger

	mu    sync.Mutex
	rooms map[string]*broadcastRoom
}

func NewBroadcastService(
	rdb *redis.Client,
	hub *transport.Hub,
	events EventService,
	transcripts TranscriptService,
	translations TranslationService,
	speaker *speech.Engine,
	log *logrus.Logger,
) BroadcastService {
	if log == nil {
		log = logrus.New()
	}
	return &broadcastService{
		rdb:          rdb,
		hub:          hub,
		events:       events,
		transcripts:  transcripts,
		translations: translations,
		speaker:      speaker,
		log:          log,
		rooms:        map[string]*broadcastRoom{},
	}
}

func roomKey(eventID, lang string) string {
	return eventID + "|" + language.Normalize(lang)
}

func (s *broadcastService) Attach(ctx context.Context, eventID, targetLang string, conn *transport.Conn) (*RoomSnapshot, error) {
	const op = "BroadcastService.Attach"

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	key := roomKey(eventID, targetLang)

	s.mu.Lock()
	r, ok := s.rooms[key]
	if !ok {
		r = s.startRoom(ctx, ev, targetLang)
		s.rooms[key] = r
	}
	r.refs++
	engine := r.engine
	s.mu.Unlock()

	if conn != nil {
		s.hub.Join(eventID, conn)
	}
	snap := s.snapshotOf(eventID, engine)
	if snap == nil {
		return nil, utils.E(utils.CodeInternal, op, "room state unavailable", nil)
	}
	return snap, nil
}

func (s *broadcastService) Detach(eventID, targetLang string, conn *transport.Conn) {
	if conn != nil {
		s.hub.Leave(eventID, conn)
	}

	key := roomKey(eventID, targetLang)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[key]
	if !ok {
		return
	}
	r.refs--
	if r.refs <= 0 {
		r.cancel()
		_ = r.pubsub.Close()
		delete(s.rooms, key)
	}
}

func (s *broadcastService) Snapshot(eventID, targetLang string) (*RoomSnapshot, bool) {
	s.mu.Lock()
	r, ok := s.rooms[roomKey(eventID, targetLang)]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.snapshotOf(eventID, r.engine), true
}

func (s *broadcastService) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// startRoom spins up the reconciliation engine for one event+language pair:
// a Redis subscription feeding Apply, the retention sweeper, and the
// translation resolver. Called with s.mu held.
func (s *broadcastService) startRoom(ctx context.Context, ev *models.Event, targetLang string) *broadcastRoom {
	roomCtx, cancel := context.WithCancel(context.Background())

	engine := caption.NewEngine(targetLang)
	engine.Apply(transport.StatusUpdate{Status: ev.Status})
	engine.SetResolver(s.resolver(ev, engine))

	s.seed(ctx, ev.ID, engine)

	pubsub := s.rdb.Subscribe(roomCtx,
		transport.CaptionChannel(ev.ID), transport.StatusChannel(ev.ID))

	go s.consume(roomCtx, ev.ID, pubsub, engine)
	go engine.Run(roomCtx)

	return &broadcastRoom{engine: engine, pubsub: pubsub, cancel: cancel}
}

// seed replays still-fresh buffered chunks into a new engine so late
// joiners see the recent window immediately.
func (s *broadcastService) seed(ctx context.Context, eventID string, engine *caption.Engine) {
	if s.transcripts == nil {
		return
	}
	chunks, err := s.transcripts.Snapshot(ctx, eventID, 50)
	if err != nil {
		s.log.WithError(err).WithField("event_id", eventID).Warn("snapshot seed failed")
		return
	}
	cutoff := time.Now().Add(-caption.RetentionWindow)
	for _, c := range chunks {
		if c.Timestamp.Before(cutoff) {
			continue
		}
		engine.Apply(transport.Final{
			Text:            c.Text,
			SourceLanguage:  c.SourceLanguage,
			Translations:    c.Translations,
			ChunkIDs:        []string{c.ChunkID},
			ContextEnhanced: c.ContextEnhanced,
		})
	}
}

func (s *broadcastService) resolver(ev *models.Event, engine *caption.Engine) caption.ResolveFunc {
	return func(segmentID, text string, attached map[string]string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		seg, err := s.translations.Resolve(ctx, text, attached, engine.TargetLanguage())
		if err != nil {
			s.log.WithError(err).WithField("event_id", ev.ID).Warn("translation resolution failed")
			return
		}
		if seg == nil {
			return
		}
		engine.AppendTranslation(*seg)

		// land the resolved text on the buffered chunk so snapshot seeds hand
		// the next room the attached fast path instead of a second fetch
		if s.transcripts != nil {
			if err := s.transcripts.AttachTranslation(ctx, ev.ID, segmentID, seg.Language, seg.Text); err != nil {
				s.log.WithError(err).WithField("event_id", ev.ID).Debug("translation attach failed")
			}
		}

		if s.speaker != nil {
			s.speaker.Enqueue(seg.ID, seg.Text, seg.Language)
		}
	}
}

func (s *broadcastService) consume(ctx context.Context, eventID string, pubsub *redis.PubSub, engine *caption.Engine) {
	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).WithField("event_id", eventID).Warn("room subscription receive failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		_, ev, err := transport.Decode([]byte(m.Payload))
		if err != nil {
			s.log.WithError(err).WithField("event_id", eventID).Debug("dropping malformed room message")
			continue
		}
		engine.Apply(ev)
	}
}

func (s *broadcastService) snapshotOf(eventID string, engine *caption.Engine) *RoomSnapshot {
	target := engine.TargetLanguage()
	return &RoomSnapshot{
		EventID:         eventID,
		Status:          engine.Status(),
		SourceLanguage:  engine.SourceLanguage(),
		SourceText:      engine.SourceText(),
		TargetLanguage:  target,
		TranslationText: engine.TranslationText(target),
	}
}
