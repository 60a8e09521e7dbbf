// Package metrics exposes the relay's Prometheus instrumentation. All
// collectors are registered on the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speechrelay"

var (
	BroadcastViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broadcast_viewers",
		Help:      "Currently connected broadcast viewers.",
	})

	CaptureSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "capture_sessions",
		Help:      "Currently connected capture clients.",
	})

	TranscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcription_events_total",
		Help:      "Transcription events relayed, by kind.",
	}, []string{"kind"}) // interim|final|enhanced

	TranslationResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "translation_resolutions_total",
		Help:      "Resolved translation segments, by provenance.",
	}, []string{"source"}) // provider|independent

	SynthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "synthesis_requests_total",
		Help:      "Speech synthesis attempts, by outcome.",
	}, []string{"outcome"}) // ok|error

	StatusBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_broadcasts_total",
		Help:      "Event status transitions pushed to viewers.",
	}, []string{"status"})
)
