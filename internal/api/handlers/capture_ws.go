package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/interpretd/speechrelay/internal/metrics"
	"github.com/interpretd/speechrelay/internal/services"
	"github.com/interpretd/speechrelay/internal/transport"
	"github.com/interpretd/speechrelay/internal/utils"
)

// CaptureWSHandler is the authenticated ingest socket for event operators.
// Clients running recognition locally send text frames; clients without a
// recognizer send audio chunks for server-side transcription.
type CaptureWSHandler struct {
	captures services.CaptureService
	events   services.EventService
	upgrader websocket.Upgrader
}

func NewCaptureWSHandler(captures services.CaptureService, events services.EventService) *CaptureWSHandler {
	return &CaptureWSHandler{
		captures: captures,
		events:   events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type captureClientMsg struct {
	Type string `json:"type"` // interim|final|audio_chunk|status

	Text         string            `json:"text"`
	Translations map[string]string `json:"translations"`

	ChunkIndex  int64  `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language"`

	Status string `json:"status"`
}

func (h *CaptureWSHandler) EventWS(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	eventID := c.Param("event_id")
	if eventID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CaptureWSHandler.EventWS", "missing event_id", nil))
		return
	}

	// validates the event and opens (or joins) its pipeline
	pipeline, err := h.captures.Start(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.captures.Stop(eventID)
		return
	}
	defer ws.Close()
	defer h.captures.Stop(eventID)

	conn := transport.NewConn(ws)

	metrics.CaptureSessions.Inc()
	defer metrics.CaptureSessions.Dec()

	_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx := c.Request.Context()
	for {
		_, data, rerr := ws.ReadMessage()
		if rerr != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg captureClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.WriteText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
			continue
		}

		switch msg.Type {
		case "interim":
			pipeline.HandleInterim(ctx, msg.Text, msg.Translations)
			metrics.TranscriptionEvents.WithLabelValues("interim").Inc()

		case "final":
			pipeline.HandleFinal(ctx, msg.Text, msg.Translations)
			metrics.TranscriptionEvents.WithLabelValues("final").Inc()

		case "audio_chunk":
			if msg.AudioBase64 == "" {
				_ = conn.WriteText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"audio_base64 required"}`))
				continue
			}
			if err := h.captures.EnqueueAudio(ctx, eventID, msg.Language, msg.AudioBase64, msg.ChunkIndex); err != nil {
				_ = conn.WriteText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"failed to enqueue audio"}`))
			}

		case "status":
			if _, err := h.events.SetStatus(ctx, eventID, msg.Status); err != nil {
				_ = conn.WriteText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid status"}`))
				continue
			}
			metrics.StatusBroadcasts.WithLabelValues(msg.Status).Inc()

		default:
			_ = conn.WriteText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
		}
	}
}
