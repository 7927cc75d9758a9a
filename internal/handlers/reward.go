package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
	"github.com/rizzlab/rizzlab-backend/internal/services"
)

type RewardHandler struct {
	log     *logger.Logger
	rewards services.RewardService
	tracker *services.RewardStatusTracker
}

func NewRewardHandler(log *logger.Logger, rewards services.RewardService, tracker *services.RewardStatusTracker) *RewardHandler {
	return &RewardHandler{
		log:     log.With("handler", "RewardHandler"),
		rewards: rewards,
		tracker: tracker,
	}
}

// GenerateReward blocks until the reward settles. The win flow already kicks
// generation off in the background; this endpoint covers clients that missed
// the async result or want to force a regeneration check.
func (h *RewardHandler) GenerateReward(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_round_id", err)
		return
	}

	reward, fromCache, err := h.rewards.GenerateReward(c.Request.Context(), roundID)
	if err != nil {
		h.log.Error("GenerateReward failed", "error", err, "round_id", roundID)
		RespondError(c, statusForError(err), "generate_reward_failed", err)
		return
	}
	RespondOK(c, gin.H{"reward": reward, "from_cache": fromCache})
}

func (h *RewardHandler) GetReward(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_round_id", err)
		return
	}

	reward, err := h.rewards.GetReward(c.Request.Context(), roundID)
	if err != nil {
		h.log.Error("GetReward failed", "error", err, "round_id", roundID)
		RespondError(c, statusForError(err), "load_reward_failed", err)
		return
	}
	if reward == nil {
		RespondError(c, http.StatusNotFound, "reward_not_found", nil)
		return
	}
	RespondOK(c, gin.H{"reward": reward})
}

// GetRewardStatus reports the in-flight generation phase for polling clients.
func (h *RewardHandler) GetRewardStatus(c *gin.Context) {
	roundID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_round_id", err)
		return
	}

	status := h.tracker.Get(roundID)
	if status == nil {
		RespondError(c, http.StatusNotFound, "status_not_found", nil)
		return
	}
	RespondOK(c, status)
}
