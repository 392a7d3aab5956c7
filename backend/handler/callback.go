package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/pkg/logger"
	"github.com/grantdesk/applicants/backend/service"
)

type CallbackHandler struct {
	docs DocumentPipeline
	seed string
}

func NewCallbackHandler(docs DocumentPipeline, cfg *config.SigningConfig) *CallbackHandler {
	return &CallbackHandler{docs: docs, seed: cfg.Seed}
}

// CallbackRequest is posted by the e-signature provider. Content is a JSON encoded service.SigningEvent.
type CallbackRequest struct {
	Checksum string `json:"checksum" binding:"required"`
	UID      string `json:"uid" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// HandleCallback receives signing results from the e-signature provider
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	if h.seed == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, apiError{Error: "Signing callbacks are not configured", Code: "SIGNING_DISABLED"})
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request")
		return
	}

	event, kind, err := service.VerifySigningCallback(h.seed, req.UID, req.Checksum, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), event.SubjectID, string(kind))
	switch event.State {
	case service.SigningStateSigned:
		if _, err := h.docs.Sign(ctx, event.SubjectID, kind); err != nil {
			respondError(c, err)
			return
		}
	case service.SigningStateDeclined:
		logger.Info(ctx, "signature declined", "reason", event.Reason)
	default:
		logger.Warn(ctx, "ignoring signing callback with unknown state", "state", event.State)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
