package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/interpretd/speechrelay/internal/models"
	"github.com/interpretd/speechrelay/internal/services"
	"github.com/interpretd/speechrelay/internal/utils"
)

type EventHandler struct {
	svc services.EventService
}

func NewEventHandler(svc services.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

type CreateEventRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Type            string   `json:"type"`
	SourceLanguages []string `json:"sourceLanguages" binding:"required"`
	TargetLanguages []string `json:"targetLanguages"`
	RecordEvent     bool     `json:"recordEvent"`
	TTSVoice        string   `json:"ttsVoice"`
}

func (h *EventHandler) Create(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EventHandler.Create", "invalid request body", err))
		return
	}

	ev, err := h.svc.Create(c.Request.Context(), &models.Event{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		Type:            req.Type,
		SourceLanguages: pq.StringArray(req.SourceLanguages),
		TargetLanguages: pq.StringArray(req.TargetLanguages),
		RecordEvent:     req.RecordEvent,
		TTSVoice:        req.TTSVoice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *EventHandler) Get(c *gin.Context) {
	ev, err := h.svc.Get(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *EventHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"` // Scheduled|Live|Paused|Completed
}

func (h *EventHandler) SetStatus(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "EventHandler.SetStatus", "invalid request body", err))
		return
	}

	ev, err := h.svc.SetStatus(c.Request.Context(), c.Param("event_id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}
