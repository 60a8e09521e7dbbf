package workers

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/interpretd/speechrelay/internal/capture"
	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/providers/stt"
	"github.com/interpretd/speechrelay/internal/services"
)

// AudioWorkerPool transcribes audio chunks pushed by capture clients that
// do not run recognition locally. Results enter the same per-event
// pipeline the text path uses, so downstream viewers cannot tell the two
// capture modes apart.
type AudioWorkerPool struct {
	Redis    *redis.Client
	Captures services.CaptureService
	STT      stt.Provider

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	NumWorkers     int
}

func (p *AudioWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Captures == nil || p.STT == nil {
		return errors.New("AudioWorkerPool missing dependency: Redis/Captures/STT must be set")
	}
	if p.Stream == "" {
		p.Stream = services.AudioStream
	}
	if p.Group == "" {
		p.Group = "audio-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *AudioWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AudioWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	eventID := getStr("event_id")
	if eventID == "" {
		return
	}
	chunkIndex, _ := strconv.ParseInt(getStr("chunk_index"), 10, 64)

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"event_id":    eventID,
		"chunk_index": chunkIndex,
	})

	pipeline, ok := p.Captures.Pipeline(eventID)
	if !ok {
		log.Debug("no active capture session, dropping audio chunk")
		return
	}

	raw := getStr("audio_base64")
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[i+1:] // strip data:...;base64,
	}
	audio, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(audio) == 0 {
		log.WithError(err).Warn("invalid audio chunk")
		return
	}

	lang := language.SpeechCode(getStr("language"))
	if lang == "" {
		lang = "en-US"
	}

	text, conf, err := p.STT.Transcribe(ctx, audio, lang)
	if err != nil {
		p.handleSTTError(ctx, log, eventID, msg, err)
		return
	}
	if gate := p.Captures.Gate(eventID); gate != nil {
		gate.Reset()
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	log.WithField("confidence", conf).Debug("audio chunk transcribed")
	pipeline.HandleFinal(ctx, text, nil)
}

// handleSTTError applies the restart policy: fatal failures (credentials,
// unsupported language) drop the chunk for good; transient ones requeue it
// until the session's restart budget runs out.
func (p *AudioWorkerPool) handleSTTError(ctx context.Context, log *logrus.Entry, eventID string, msg redis.XMessage, err error) {
	if capture.FatalRecognizerError(err) {
		log.WithError(err).Error("stt failed fatally, not retrying")
		return
	}

	gate := p.Captures.Gate(eventID)
	if gate == nil || !gate.Allow(err) {
		log.WithError(err).Error("stt restart budget exhausted, dropping chunk")
		return
	}

	log.WithError(err).Warn("stt failed, requeueing chunk")
	_ = p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: msg.Values,
	}).Err()
}
