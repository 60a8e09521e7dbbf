package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/interpretd/speechrelay/internal/services"
	"github.com/interpretd/speechrelay/internal/utils"
)

type TranslateHandler struct {
	svc services.TranslationService
}

func NewTranslateHandler(svc services.TranslationService) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

type TranslateRequest struct {
	Text           string `json:"text" binding:"required"`
	TargetLanguage string `json:"target_language" binding:"required"`
}

// Resolve translates one caption on demand; viewers use it when a final
// arrives without an attached translation for their language.
func (h *TranslateHandler) Resolve(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TranslateHandler.Resolve", "invalid request body", err))
		return
	}

	seg, err := h.svc.Resolve(c.Request.Context(), req.Text, nil, req.TargetLanguage)
	if err != nil {
		writeError(c, err)
		return
	}
	if seg == nil {
		c.JSON(http.StatusOK, gin.H{"segment": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"segment": seg})
}
