package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rizzlab/rizzlab-backend/internal/clients/gcp"
	"github.com/rizzlab/rizzlab-backend/internal/clients/openai"
	"github.com/rizzlab/rizzlab-backend/internal/clients/redis"
	domerr "github.com/rizzlab/rizzlab-backend/internal/pkg/errors"
	"github.com/rizzlab/rizzlab-backend/internal/types"
)

const goodRewardText = "Okay fine, you officially have my attention. Pick a night this week and take me somewhere with good tacos."

type fakeRewardRepo struct {
	mu      sync.Mutex
	rewards map[uuid.UUID]*types.Reward
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{rewards: make(map[uuid.UUID]*types.Reward)}
}

func (r *fakeRewardRepo) Upsert(ctx context.Context, tx *gorm.DB, reward *types.Reward) (*types.Reward, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rewards[reward.RoundID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	cp := *reward
	r.rewards[reward.RoundID] = &cp
	return reward, true, nil
}

func (r *fakeRewardRepo) GetByRoundID(ctx context.Context, tx *gorm.DB, roundID uuid.UUID) (*types.Reward, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reward, ok := r.rewards[roundID]
	if !ok {
		return nil, nil
	}
	cp := *reward
	return &cp, nil
}

type fakeBucket struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: make(map[string][]byte)}
}

func (b *fakeBucket) UploadBytes(ctx context.Context, category gcp.BucketCategory, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[string(category)+"/"+key] = data
	return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, category gcp.BucketCategory, key string) error {
	return nil
}

func (b *fakeBucket) DeletePrefix(ctx context.Context, category gcp.BucketCategory, prefix string) error {
	return nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", category, key)
}

type fakeRewardCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*redis.CachedReward
	sets    int
}

func newFakeRewardCache() *fakeRewardCache {
	return &fakeRewardCache{entries: make(map[uuid.UUID]*redis.CachedReward)}
}

func (c *fakeRewardCache) Get(ctx context.Context, personaID uuid.UUID) (*redis.CachedReward, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[personaID]
	if !ok {
		return nil, nil
	}
	cp := *cached
	return &cp, nil
}

func (c *fakeRewardCache) Set(ctx context.Context, reward *redis.CachedReward) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *reward
	c.entries[reward.PersonaID] = &cp
	c.sets++
	return nil
}

func (c *fakeRewardCache) Delete(ctx context.Context, personaID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, personaID)
	return nil
}

func (c *fakeRewardCache) Close() error { return nil }

type fakeRewardAI struct {
	mu sync.Mutex

	textErr  error
	voiceErr error
	imageErr func(attempt int) error

	textCalls  int
	voiceCalls int
	imageCalls int
}

func (a *fakeRewardAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.textCalls++
	if a.textErr != nil {
		return "", a.textErr
	}
	return goodRewardText, nil
}

func (a *fakeRewardAI) SynthesizeVoice(ctx context.Context, text, voice string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.voiceCalls++
	if a.voiceErr != nil {
		return nil, a.voiceErr
	}
	return []byte("mp3-bytes"), nil
}

func (a *fakeRewardAI) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	a.mu.Lock()
	a.imageCalls++
	call := a.imageCalls
	errFn := a.imageErr
	a.mu.Unlock()
	if errFn != nil {
		if err := errFn(call); err != nil {
			return nil, err
		}
	}
	return []byte("png-bytes"), nil
}

type rewardFixture struct {
	svc       RewardService
	ai        *fakeRewardAI
	bucket    *fakeBucket
	cache     *fakeRewardCache
	tracker   *RewardStatusTracker
	personas  *fakePersonaService
	roundRepo *fakeRoundRepo
	repo      *fakeRewardRepo
}

func newRewardFixture(t *testing.T) *rewardFixture {
	t.Helper()
	f := &rewardFixture{
		ai:        &fakeRewardAI{},
		bucket:    newFakeBucket(),
		cache:     newFakeRewardCache(),
		tracker:   NewRewardStatusTracker(testLogger(t)),
		personas:  newFakePersonaService(),
		roundRepo: newFakeRoundRepo(),
		repo:      newFakeRewardRepo(),
	}
	f.svc = NewRewardService(nil, testLogger(t), f.ai, f.bucket, f.cache, f.tracker, f.personas, f.roundRepo, f.repo)
	return f
}

func (f *rewardFixture) wonRound(t *testing.T) *types.Round {
	t.Helper()
	round := &types.Round{
		UserID:    uuid.New(),
		PersonaID: f.personas.persona.ID,
		Meter:     100,
		Result:    types.RoundResultWin,
	}
	if _, err := f.roundRepo.Create(context.Background(), nil, round); err != nil {
		t.Fatalf("create round: %v", err)
	}
	return round
}

func TestGenerateRewardFullSuccess(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)

	reward, fromCache, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if fromCache {
		t.Fatalf("fresh generation reported as cached")
	}
	if reward.Text != goodRewardText {
		t.Fatalf("text = %q", reward.Text)
	}
	if reward.VoiceURL == nil || reward.ImageURL == nil {
		t.Fatalf("expected voice and image URLs, got %+v", reward)
	}
	if f.cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", f.cache.sets)
	}
	if status := f.tracker.Get(round.ID); status == nil || status.Phase != RewardPhaseCompleted {
		t.Fatalf("tracker status = %+v", status)
	}
}

func TestGenerateRewardRequiresWonRound(t *testing.T) {
	f := newRewardFixture(t)
	round := &types.Round{
		UserID:    uuid.New(),
		PersonaID: f.personas.persona.ID,
		Result:    types.RoundResultActive,
	}
	if _, err := f.roundRepo.Create(context.Background(), nil, round); err != nil {
		t.Fatalf("create round: %v", err)
	}

	if _, _, err := f.svc.GenerateReward(context.Background(), round.ID); err == nil {
		t.Fatalf("reward for an active round succeeded")
	} else if !errors.Is(err, domerr.ErrStateConflict) {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestGenerateRewardReturnsExistingRow(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)

	first, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("first GenerateReward: %v", err)
	}

	textCallsAfterFirst := f.ai.textCalls
	second, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("second GenerateReward: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call produced a different reward row")
	}
	if f.ai.textCalls != textCallsAfterFirst {
		t.Fatalf("duplicate request hit the provider again")
	}
}

func TestGenerateRewardCacheFastPath(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)

	voice := "https://cdn.test/voice/cached.mp3"
	image := "https://cdn.test/image/cached.png"
	if err := f.cache.Set(context.Background(), &redis.CachedReward{
		PersonaID: f.personas.persona.ID,
		Text:      goodRewardText,
		VoiceURL:  &voice,
		ImageURL:  &image,
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	reward, fromCache, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if !fromCache || !reward.FromCache {
		t.Fatalf("cache hit not reported: fromCache=%v reward=%+v", fromCache, reward)
	}
	if f.ai.textCalls != 0 || f.ai.imageCalls != 0 {
		t.Fatalf("cache hit still called the provider: text=%d image=%d", f.ai.textCalls, f.ai.imageCalls)
	}

	persisted, err := f.repo.GetByRoundID(context.Background(), nil, round.ID)
	if err != nil || persisted == nil {
		t.Fatalf("cached reward not persisted: %v %v", persisted, err)
	}
}

func TestGenerateRewardTextFailureFailsReward(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)
	f.ai.textErr = errors.New("provider down")

	if _, _, err := f.svc.GenerateReward(context.Background(), round.ID); err == nil {
		t.Fatalf("reward succeeded without text")
	}
	if f.ai.textCalls != 3 {
		t.Fatalf("text attempts = %d, want 3", f.ai.textCalls)
	}
	if status := f.tracker.Get(round.ID); status == nil || status.Phase != RewardPhaseFailed || status.Stage != "text" {
		t.Fatalf("tracker status = %+v", status)
	}
}

func TestGenerateRewardSurvivesVoiceFailure(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)
	f.ai.voiceErr = errors.New("tts down")

	reward, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if reward.VoiceURL != nil {
		t.Fatalf("voice URL set despite failure")
	}
	if reward.ImageURL == nil {
		t.Fatalf("image missing, voice failure should not cost it")
	}
	if f.cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1 (image succeeded)", f.cache.sets)
	}
}

func TestGenerateRewardImageFailureSkipsCache(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)
	f.ai.imageErr = func(attempt int) error { return errors.New("image backend down") }

	reward, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if reward.ImageURL != nil {
		t.Fatalf("image URL set despite failure")
	}
	if reward.VoiceURL == nil {
		t.Fatalf("voice missing, image failure should not cost it")
	}
	if f.cache.sets != 0 {
		t.Fatalf("incomplete reward was cached")
	}
}

func TestGenerateRewardContentFilteredRetriesConservativeThenRemovesPersona(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)
	f.ai.imageErr = func(attempt int) error {
		return &openai.ContentFilteredError{Detail: "safety system rejection"}
	}

	reward, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if reward.ImageURL != nil {
		t.Fatalf("image URL set despite filtering")
	}
	// Original prompt once, conservative prompt once.
	if f.ai.imageCalls != 2 {
		t.Fatalf("image attempts = %d, want 2", f.ai.imageCalls)
	}
	if len(f.personas.removed) != 1 || f.personas.removed[0] != f.personas.persona.ID {
		t.Fatalf("cursed persona not removed: %v", f.personas.removed)
	}
}

func TestGenerateRewardContentFilteredOnceRecoversWithConservativePrompt(t *testing.T) {
	f := newRewardFixture(t)
	round := f.wonRound(t)
	f.ai.imageErr = func(attempt int) error {
		if attempt == 1 {
			return &openai.ContentFilteredError{Detail: "safety system rejection"}
		}
		return nil
	}

	reward, _, err := f.svc.GenerateReward(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GenerateReward: %v", err)
	}
	if reward.ImageURL == nil {
		t.Fatalf("conservative retry should have produced an image")
	}
	if f.ai.imageCalls != 2 {
		t.Fatalf("image attempts = %d, want 2 (original + conservative)", f.ai.imageCalls)
	}
	if len(f.personas.removed) != 0 {
		t.Fatalf("persona removed despite recovery: %v", f.personas.removed)
	}
}
