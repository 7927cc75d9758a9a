package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

func newTestCache(t *testing.T) RewardCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewRewardCacheWithClient(log, rdb)
}

func TestRewardCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	personaID := uuid.New()
	voice := "https://cdn.example.com/voice/abc.mp3"
	image := "https://cdn.example.com/image/abc.png"
	in := &CachedReward{
		PersonaID: personaID,
		Text:      "You actually made me laugh tonight, which is rarer than you'd think.",
		VoiceURL:  &voice,
		ImageURL:  &image,
		CachedAt:  time.Now().UTC(),
	}
	if err := cache.Set(ctx, in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	out, err := cache.Get(ctx, personaID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out == nil {
		t.Fatalf("Get returned nil after Set")
	}
	if out.Text != in.Text {
		t.Fatalf("Text=%q, want %q", out.Text, in.Text)
	}
	if out.VoiceURL == nil || *out.VoiceURL != voice {
		t.Fatalf("VoiceURL=%v, want %q", out.VoiceURL, voice)
	}
	if out.ImageURL == nil || *out.ImageURL != image {
		t.Fatalf("ImageURL=%v, want %q", out.ImageURL, image)
	}
}

func TestRewardCacheMiss(t *testing.T) {
	cache := newTestCache(t)
	out, err := cache.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get on empty cache: %v", err)
	}
	if out != nil {
		t.Fatalf("Get on empty cache returned %+v, want nil", out)
	}
}

func TestRewardCacheDelete(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	personaID := uuid.New()
	if err := cache.Set(ctx, &CachedReward{PersonaID: personaID, Text: "cached line"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Delete(ctx, personaID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	out, err := cache.Get(ctx, personaID)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if out != nil {
		t.Fatalf("Get after delete returned %+v, want nil", out)
	}
}

func TestRewardCacheRejectsNilPersona(t *testing.T) {
	cache := newTestCache(t)
	if err := cache.Set(context.Background(), &CachedReward{Text: "no persona"}); err == nil {
		t.Fatalf("Set without persona id should fail")
	}
}
