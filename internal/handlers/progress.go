package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/game"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/middleware"
	"github.com/rizzlab/rizzlab-backend/internal/services"
)

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:      log.With("handler", "ProgressHandler"),
		progress: progress,
	}
}

func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	progress, err := h.progress.GetProgress(c.Request.Context(), nil, userID)
	if err != nil {
		h.log.Error("GetProgress failed", "error", err, "user_id", userID)
		RespondError(c, statusForError(err), "load_progress_failed", err)
		return
	}

	nextLevelXP := game.XPForLevel(progress.Level + 1)
	RespondOK(c, gin.H{
		"progress":      progress,
		"next_level_xp": nextLevelXP,
	})
}
