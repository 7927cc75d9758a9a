package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/middleware"
	"github.com/rizzlab/rizzlab-backend/internal/services"
)

type RoundHandler struct {
	log     *logger.Logger
	scoring services.ScoringService
}

func NewRoundHandler(log *logger.Logger, scoring services.ScoringService) *RoundHandler {
	return &RoundHandler{
		log:     log.With("handler", "RoundHandler"),
		scoring: scoring,
	}
}

func (h *RoundHandler) StartRound(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	res, err := h.scoring.StartRound(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("StartRound failed", "error", err, "user_id", userID)
		RespondError(c, statusForError(err), "start_round_failed", err)
		return
	}
	RespondOK(c, res)
}

type scoreMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *RoundHandler) ScoreMessage(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_round_id", err)
		return
	}

	var req scoreMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	res, err := h.scoring.ScoreMessage(c.Request.Context(), roundID, req.Text)
	if err != nil {
		h.log.Error("ScoreMessage failed", "error", err, "round_id", roundID)
		RespondError(c, statusForError(err), "score_message_failed", err)
		return
	}
	RespondOK(c, res)
}

func (h *RoundHandler) GetRound(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_round_id", err)
		return
	}

	round, messages, err := h.scoring.GetRound(c.Request.Context(), roundID)
	if err != nil {
		h.log.Error("GetRound failed", "error", err, "round_id", roundID)
		RespondError(c, statusForError(err), "load_round_failed", err)
		return
	}
	RespondOK(c, gin.H{"round": round, "messages": messages})
}
