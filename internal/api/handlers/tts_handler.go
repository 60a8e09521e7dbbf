package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/interpretd/speechrelay/internal/language"
	"github.com/interpretd/speechrelay/internal/metrics"
	"github.com/interpretd/speechrelay/internal/providers/tts"
	"github.com/interpretd/speechrelay/internal/utils"
)

type TTSHandler struct {
	provider tts.Provider
}

func NewTTSHandler(provider tts.Provider) *TTSHandler {
	return &TTSHandler{provider: provider}
}

type SpeakRequest struct {
	Text     string  `json:"text" binding:"required"`
	Language string  `json:"language" binding:"required"`
	Gender   string  `json:"gender"` // female|male
	Speed    float64 `json:"speed"`  // 1.0 = normal
}

// Speak synthesizes one utterance and returns the audio inline. Listening
// clients play translated segments through this endpoint.
func (h *TTSHandler) Speak(c *gin.Context) {
	if h.provider == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "TTSHandler.Speak", "speech synthesis is not configured", nil))
		return
	}

	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TTSHandler.Speak", "invalid request body", err))
		return
	}

	voice := language.VoiceFor(req.Language, req.Gender)
	audio, err := h.provider.Synthesize(c.Request.Context(), req.Text, voice, req.Speed)
	if err != nil {
		metrics.SynthesisRequests.WithLabelValues("error").Inc()
		writeError(c, utils.E(utils.CodeUnavailable, "TTSHandler.Speak", "synthesis failed", err))
		return
	}
	metrics.SynthesisRequests.WithLabelValues("ok").Inc()
	if len(audio) == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TTSHandler.Speak", "nothing to synthesize", nil))
		return
	}

	c.Header("X-Voice", voice)
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// Voices lists the deterministic voice mapping so clients can show what a
// language/gender pair will sound like.
func (h *TTSHandler) Voices(c *gin.Context) {
	lang := c.Query("language")
	if lang == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TTSHandler.Voices", "language is required", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"language": language.Normalize(lang),
		"female":   language.VoiceFor(lang, language.GenderFemale),
		"male":     language.VoiceFor(lang, language.GenderMale),
		"default":  language.DefaultVoice,
	})
}
