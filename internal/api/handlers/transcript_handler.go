package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/interpretd/speechrelay/internal/services"
)

type TranscriptHandler struct {
	svc services.TranscriptService
}

func NewTranscriptHandler(svc services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{svc: svc}
}

// Snapshot returns the rolling realtime buffer: what a late joiner replays.
func (h *TranscriptHandler) Snapshot(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	chunks, err := h.svc.Snapshot(c.Request.Context(), c.Param("event_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks})
}

// Archive returns the durable transcript of a recorded event.
func (h *TranscriptHandler) Archive(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.Archive(c.Request.Context(), c.Param("event_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Export uploads the archived transcript and returns a signed download URL.
func (h *TranscriptHandler) Export(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	url, err := h.svc.Export(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Purge drops an event's buffered and archived transcript data.
func (h *TranscriptHandler) Purge(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	if err := h.svc.Purge(c.Request.Context(), c.Param("event_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}
