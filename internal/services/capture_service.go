package services

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/interpretd/speechrelay/internal/capture"
	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/providers/llm"
	"github.com/interpretd/speechrelay/internal/utils"
)

// AudioStream is the Redis stream server-side STT consumes from. Capture
// clients that cannot run recognition locally push raw audio here.
const AudioStream = "capture:audio"

type CaptureService interface {
	// Start opens (or joins) the capture pipeline for a live event.
	Start(ctx context.Context, eventID string) (*capture.Pipeline, error)
	Stop(eventID string)
	Pipeline(eventID string) (*capture.Pipeline, bool)
	Gate(eventID string) *capture.RestartGate

	// EnqueueAudio hands one base64 audio chunk to the worker pool.
	EnqueueAudio(ctx context.Context, eventID, lang, audioB64 string, chunkIndex int64) error
}

type captureSession struct {
	pipeline *capture.Pipeline
	gate     *capture.RestartGate
	cancel   context.CancelFunc
	refs     int
}

type captureService struct {
	rdb      *redis.Client
	pub      capture.Publisher
	enhancer llm.Provider
	rec      capture.Recorder
	events   EventService
	log      *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*captureSession
}

func NewCaptureService(
	rdb *redis.Client,
	pub capture.Publisher,
	enhancer llm.Provider,
	rec capture.Recorder,
	events EventService,
	log *logrus.Logger,
) CaptureService {
	if log == nil {
		log = logrus.New()
	}
	return &captureService{
		rdb:      rdb,
		pub:      pub,
		enhancer: enhancer,
		rec:      rec,
		events:   events,
		log:      log,
		sessions: map[string]*captureSession{},
	}
}

func (s *captureService) Start(ctx context.Context, eventID string) (*capture.Pipeline, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(ev.SourceLanguages) == 0 {
		const op = "CaptureService.Start"
		return nil, utils.E(utils.CodeInvalidArgument, op, "event has no source language", nil)
	}
	sourceLang := language.SpeechCode(ev.SourceLanguages[0])

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[eventID]; ok {
		sess.refs++
		return sess.pipeline, nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := capture.NewPipeline(eventID, sourceLang, s.pub, s.enhancer, s.rec,
		logrus.NewEntry(s.log))
	go p.Run(runCtx)

	s.sessions[eventID] = &captureSession{
		pipeline: p,
		gate:     &capture.RestartGate{},
		cancel:   cancel,
		refs:     1,
	}
	return p, nil
}

func (s *captureService) Stop(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[eventID]
	if !ok {
		return
	}
	sess.refs--
	if sess.refs <= 0 {
		sess.cancel()
		delete(s.sessions, eventID)
	}
}

func (s *captureService) Pipeline(eventID string) (*capture.Pipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[eventID]
	if !ok {
		return nil, false
	}
	return sess.pipeline, true
}

func (s *captureService) Gate(eventID string) *capture.RestartGate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[eventID]; ok {
		return sess.gate
	}
	return nil
}

func (s *captureService) EnqueueAudio(ctx context.Context, eventID, lang, audioB64 string, chunkIndex int64) error {
	const op = "CaptureService.EnqueueAudio"

	if eventID == "" || audioB64 == "" {
		return utils.E(utils.CodeInvalidArgument, op, "event_id and audio are required", nil)
	}
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: AudioStream,
		Values: map[string]any{
			"event_id":     eventID,
			"language":     lang,
			"audio_base64": audioB64,
			"chunk_index":  chunkIndex,
		},
	}).Err()
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to enqueue audio chunk", err)
	}
	return nil
}
