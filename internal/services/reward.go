package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/clients/gcp"
	"github.com/rizzlab/rizzlab-backend/internal/clients/openai"
	"github.com/rizzlab/rizzlab-backend/internal/clients/redis"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
	domerr "github.com/rizzlab/rizzlab-backend/internal/pkg/errors"
	"github.com/rizzlab/rizzlab-backend/internal/repos"
	"github.com/rizzlab/rizzlab-backend/internal/retry"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

const (
	rewardTextMinWords = 10
	rewardTextMaxWords = 60
)

// RewardAIClient is the generation slice of the AI client the orchestrator
// consumes.
type RewardAIClient interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
	SynthesizeVoice(ctx context.Context, text, voice string) ([]byte, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

type RewardService interface {
	// GenerateReward produces the won round's reward: mandatory text, then
	// voice and image in parallel, each optional. The bool reports a cache
	// fast path. Safe to call more than once per round; duplicates collapse
	// onto the first persisted row.
	GenerateReward(ctx context.Context, roundID uuid.UUID) (*types.Reward, bool, error)
	GetReward(ctx context.Context, roundID uuid.UUID) (*types.Reward, error)
}

type rewardService struct {
	db  *gorm.DB
	log *logger.Logger

	ai       RewardAIClient
	bucket   gcp.BucketService
	cache    redis.RewardCache
	tracker  *RewardStatusTracker
	personas PersonaService

	roundRepo  repos.RoundRepo
	rewardRepo repos.RewardRepo
}

func NewRewardService(
	db *gorm.DB,
	log *logger.Logger,
	ai RewardAIClient,
	bucket gcp.BucketService,
	cache redis.RewardCache,
	tracker *RewardStatusTracker,
	personas PersonaService,
	roundRepo repos.RoundRepo,
	rewardRepo repos.RewardRepo,
) RewardService {
	return &rewardService{
		db:         db,
		log:        log.With("service", "RewardService"),
		ai:         ai,
		bucket:     bucket,
		cache:      cache,
		tracker:    tracker,
		personas:   personas,
		roundRepo:  roundRepo,
		rewardRepo: rewardRepo,
	}
}

func (s *rewardService) GetReward(ctx context.Context, roundID uuid.UUID) (*types.Reward, error) {
	return s.rewardRepo.GetByRoundID(ctx, nil, roundID)
}

func (s *rewardService) GenerateReward(ctx context.Context, roundID uuid.UUID) (*types.Reward, bool, error) {
	round, err := s.roundRepo.GetByID(ctx, nil, roundID)
	if err != nil {
		return nil, false, fmt.Errorf("load round: %w", err)
	}
	if round.Result != types.RoundResultWin {
		return nil, false, fmt.Errorf("%w: round %s is %s, rewards require a win", domerr.ErrStateConflict, roundID, round.Result)
	}

	if existing, err := s.rewardRepo.GetByRoundID(ctx, nil, roundID); err != nil {
		return nil, false, fmt.Errorf("check existing reward: %w", err)
	} else if existing != nil {
		return existing, existing.FromCache, nil
	}

	persona, err := s.personas.GetByID(ctx, nil, round.PersonaID)
	if err != nil {
		return nil, false, fmt.Errorf("load persona: %w", err)
	}

	s.tracker.SetGenerating(roundID)

	if cached := s.cacheFastPath(ctx, roundID, persona); cached != nil {
		s.tracker.SetCompleted(roundID)
		return cached, true, nil
	}

	started := time.Now()
	timing := map[string]int64{}

	text, err := s.generateText(ctx, roundID, persona)
	if err != nil {
		s.tracker.SetFailed(roundID, "text")
		return nil, false, fmt.Errorf("reward text: %w", err)
	}
	timing["text_ms"] = time.Since(started).Milliseconds()

	// Voice and image settle independently. A plain errgroup without a
	// shared context never cancels the sibling, so one failure costs only
	// its own asset.
	var (
		voiceURL *string
		imageURL *string
	)
	voiceStart := time.Now()
	var g errgroup.Group
	g.Go(func() error {
		url, vErr := s.generateVoice(ctx, persona, text)
		if vErr != nil {
			s.log.Warn("reward voice generation failed (reward continues)", "round_id", roundID, "error", vErr)
			return nil
		}
		voiceURL = url
		return nil
	})
	g.Go(func() error {
		url, iErr := s.generateImage(ctx, roundID, persona)
		if iErr != nil {
			s.log.Warn("reward image generation failed (reward continues)", "round_id", roundID, "error", iErr)
			return nil
		}
		imageURL = url
		return nil
	})
	_ = g.Wait()
	timing["assets_ms"] = time.Since(voiceStart).Milliseconds()
	timing["total_ms"] = time.Since(started).Milliseconds()

	reward := &types.Reward{
		RoundID:   roundID,
		PersonaID: persona.ID,
		Text:      text,
		VoiceURL:  voiceURL,
		ImageURL:  imageURL,
		Timing:    marshalTiming(timing),
	}

	persisted, inserted, err := s.rewardRepo.Upsert(ctx, nil, reward)
	if err != nil {
		s.tracker.SetFailed(roundID, "persist")
		return nil, false, fmt.Errorf("persist reward: %w", err)
	}
	if !inserted {
		// Lost the race to a concurrent request; its row wins.
		s.tracker.SetCompleted(roundID)
		return persisted, persisted.FromCache, nil
	}

	// Only a complete reward (image included) is worth replaying for the next
	// win against this persona.
	if imageURL != nil {
		if err := s.cache.Set(ctx, &redis.CachedReward{
			PersonaID: persona.ID,
			Text:      text,
			VoiceURL:  voiceURL,
			ImageURL:  imageURL,
			CachedAt:  time.Now().UTC(),
		}); err != nil {
			s.log.Warn("failed to cache reward (ignored)", "persona_id", persona.ID, "error", err)
		}
	}

	s.tracker.SetCompleted(roundID)
	return persisted, false, nil
}

// cacheFastPath replays a previously generated reward for this persona. A hit
// is still persisted per round so GetReward works without the cache.
func (s *rewardService) cacheFastPath(ctx context.Context, roundID uuid.UUID, persona *types.Persona) *types.Reward {
	cached, err := s.cache.Get(ctx, persona.ID)
	if err != nil {
		s.log.Warn("reward cache lookup failed, generating fresh", "persona_id", persona.ID, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}

	reward := &types.Reward{
		RoundID:   roundID,
		PersonaID: persona.ID,
		Text:      cached.Text,
		VoiceURL:  cached.VoiceURL,
		ImageURL:  cached.ImageURL,
		FromCache: true,
	}
	persisted, _, err := s.rewardRepo.Upsert(ctx, nil, reward)
	if err != nil {
		s.log.Warn("failed to persist cached reward, generating fresh", "round_id", roundID, "error", err)
		return nil
	}
	return persisted
}

func (s *rewardService) generateText(ctx context.Context, roundID uuid.UUID, persona *types.Persona) (string, error) {
	system := fmt.Sprintf(
		"You are %s from a dating app chat. The user just charmed you. Write a flirty but tasteful message (%d-%d words) telling them you want to meet up. Stay in character: %s Style traits: %s. No explicit content.",
		persona.Name, rewardTextMinWords, rewardTextMaxWords, persona.Bio, string(persona.StyleTraits),
	)

	var text string
	err := retry.Do(ctx, s.log, retry.Linear(3, 500*time.Millisecond), nil,
		func(ctx context.Context, attempt int) error {
			if attempt > 1 {
				s.tracker.SetRetrying(roundID, "text", attempt)
			}
			out, genErr := s.ai.GenerateText(ctx, system, "Write the message now.")
			if genErr != nil {
				return genErr
			}
			out = strings.TrimSpace(out)
			if vErr := validateRewardText(out); vErr != nil {
				return vErr
			}
			text = out
			return nil
		})
	if err != nil {
		return "", err
	}
	return text, nil
}

// nsfwBlocklist is a final belt on top of the prompt's own restraint; the
// provider moderates inputs, not its own reward copy.
var nsfwBlocklist = []string{
	"nude", "naked", "nsfw", "explicit", "lingerie", "strip",
}

func validateRewardText(text string) error {
	words := len(strings.Fields(text))
	if words < rewardTextMinWords || words > rewardTextMaxWords {
		return fmt.Errorf("reward text outside %d-%d words (got %d)", rewardTextMinWords, rewardTextMaxWords, words)
	}
	lower := strings.ToLower(text)
	for _, term := range nsfwBlocklist {
		if strings.Contains(lower, term) {
			return fmt.Errorf("reward text tripped blocklist term %q", term)
		}
	}
	return nil
}

func (s *rewardService) generateVoice(ctx context.Context, persona *types.Persona, text string) (*string, error) {
	audio, err := s.ai.SynthesizeVoice(ctx, text, "")
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%d.mp3", persona.ID.String(), time.Now().UnixNano())
	if err := s.bucket.UploadBytes(ctx, gcp.BucketCategoryVoice, key, audio); err != nil {
		return nil, fmt.Errorf("upload voice: %w", err)
	}
	url := s.bucket.GetPublicURL(gcp.BucketCategoryVoice, key)
	return &url, nil
}

func (s *rewardService) generateImage(ctx context.Context, roundID uuid.UUID, persona *types.Persona) (*string, error) {
	prompt := imagePrompt(persona, false)
	conservative := false

	var img []byte
	err := retry.Do(ctx, s.log, retry.Fixed(3, time.Second, 2*time.Second),
		func(err error) bool {
			// Filter rejections get one more swing with the toned-down
			// prompt; everything else follows the transient taxonomy. The
			// swap happens here, after classification, so the rejected
			// original attempt still counts as retryable.
			if openai.IsContentFiltered(err) {
				if conservative {
					return false
				}
				conservative = true
				prompt = imagePrompt(persona, true)
				return true
			}
			return domerr.IsTransient(err)
		},
		func(ctx context.Context, attempt int) error {
			if attempt > 1 {
				s.tracker.SetRetrying(roundID, "image", attempt)
			}
			out, genErr := s.ai.GenerateImage(ctx, prompt)
			if genErr != nil {
				return genErr
			}
			img = out
			return nil
		})
	if err != nil {
		// A description the provider rejects even in its conservative form
		// will reject it next round too. Pull the persona from the pool.
		if openai.IsContentFiltered(err) && conservative {
			if rmErr := s.personas.RemoveCursed(ctx, persona.ID); rmErr != nil {
				s.log.Error("failed to remove cursed persona", "persona_id", persona.ID, "error", rmErr)
			}
		}
		return nil, err
	}

	key := fmt.Sprintf("%s/%d.png", persona.ID.String(), time.Now().UnixNano())
	if err := s.bucket.UploadBytes(ctx, gcp.BucketCategoryImage, key, img); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	url := s.bucket.GetPublicURL(gcp.BucketCategoryImage, key)

	// First successful portrait becomes the persona's canonical one.
	if persona.PortraitURL == "" {
		if err := s.personas.SetPortrait(ctx, nil, persona.ID, key, url); err != nil {
			s.log.Warn("failed to set persona portrait (ignored)", "persona_id", persona.ID, "error", err)
		}
	}
	return &url, nil
}

func imagePrompt(persona *types.Persona, conservative bool) string {
	if conservative {
		return fmt.Sprintf("A tasteful, fully clothed portrait photo of a woman named %s, age %d, smiling warmly at the camera in a cafe. Soft natural light.", persona.Name, persona.Age)
	}
	return fmt.Sprintf("A candid portrait photo of %s, age %d. %s Warm golden-hour light, shallow depth of field, smiling like she just read a great message.", persona.Name, persona.Age, persona.Bio)
}

func marshalTiming(timing map[string]int64) datatypes.JSON {
	raw, err := json.Marshal(timing)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

var _ RewardAIClient = (openai.Client)(nil)
