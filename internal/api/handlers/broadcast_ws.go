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
)

const (
	viewerReadWait   = 60 * time.Second
	viewerPingPeriod = 30 * time.Second
)

// BroadcastWSHandler serves the public viewer socket. No auth: anyone with
// the event id can read captions.
type BroadcastWSHandler struct {
	broadcasts services.BroadcastService
	upgrader   websocket.Upgrader
}

func NewBroadcastWSHandler(broadcasts services.BroadcastService) *BroadcastWSHandler {
	return &BroadcastWSHandler{
		broadcasts: broadcasts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type snapshotFrame struct {
	Type     string                 `json:"type"`
	Snapshot *services.RoomSnapshot `json:"snapshot"`
}

func (h *BroadcastWSHandler) EventWS(c *gin.Context) {
	eventID := c.Param("event_id")
	lang := c.Query("lang")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer ws.Close()

	conn := transport.NewConn(ws)

	snap, err := h.broadcasts.Attach(c.Request.Context(), eventID, lang, conn)
	if err != nil {
		_ = conn.WriteText([]byte(`{"type":"error","code":"NOT_FOUND","message":"unknown event"}`))
		return
	}
	defer h.broadcasts.Detach(eventID, lang, conn)

	metrics.BroadcastViewers.Inc()
	defer metrics.BroadcastViewers.Dec()

	// late joiner sees the current window before the live stream resumes
	if b, err := json.Marshal(snapshotFrame{Type: "snapshot", Snapshot: snap}); err == nil {
		_ = conn.WriteText(b)
	}

	// a purely passive viewer never sends data frames, so the server pings
	// on a ticker and the pong refreshes the read deadline
	_ = ws.SetReadDeadline(time.Now().Add(viewerReadWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(viewerReadWait))
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(viewerPingPeriod)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if err := conn.WritePing(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, rerr := ws.ReadMessage()
		if rerr != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(viewerReadWait))

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "resync" {
			if snap, ok := h.broadcasts.Snapshot(eventID, lang); ok {
				if b, err := json.Marshal(snapshotFrame{Type: "snapshot", Snapshot: snap}); err == nil {
					_ = conn.WriteText(b)
				}
			}
		}
	}
}
