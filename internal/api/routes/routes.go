package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interpretd/speechrelay/internal/api/handlers"
	"github.com/interpretd/speechrelay/internal/api/middleware"
)

type Deps struct {
	Event      *handlers.EventHandler
	Transcript *handlers.TranscriptHandler
	Translate  *handlers.TranslateHandler
	TTS        *handlers.TTSHandler
	Broadcast  *handlers.BroadcastWSHandler
	Capture    *handlers.CaptureWSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public viewer surface: captions are meant to be watched without an
	// account.
	r.GET("/events/:event_id", d.Event.Get)
	r.GET("/events/:event_id/transcript", d.Transcript.Snapshot)
	r.POST("/translate", d.Translate.Resolve)
	r.POST("/tts/speak", d.TTS.Speak)
	r.GET("/tts/voices", d.TTS.Voices)
	r.GET("/ws/broadcast/:event_id", d.Broadcast.EventWS)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/events", d.Event.List)

	organizer := auth.Group("/")
	organizer.Use(middleware.RequireOrganizer())
	organizer.POST("/events", d.Event.Create)
	organizer.POST("/events/:event_id/status", d.Event.SetStatus)
	organizer.GET("/events/:event_id/archive", d.Transcript.Archive)
	organizer.POST("/events/:event_id/export", d.Transcript.Export)
	organizer.DELETE("/events/:event_id/transcript", d.Transcript.Purge)

	// WebSocket ingest
	auth.GET("/ws/capture/:event_id", d.Capture.EventWS)
}
