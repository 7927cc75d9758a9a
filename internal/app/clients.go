package app

import (
	"fmt"

	"github.com/rizzlab/rizzlab-backend/internal/clients/gcp"
	"github.com/rizzlab/rizzlab-backend/internal/clients/openai"
	"github.com/rizzlab/rizzlab-backend/internal/clients/redis"
	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

type Clients struct {
	OpenAI      openai.Client
	Bucket      gcp.BucketService
	RewardCache redis.RewardCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}

	rewardCache, err := redis.NewRewardCache(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init reward cache: %w", err)
	}

	return Clients{
		OpenAI:      openaiClient,
		Bucket:      bucketService,
		RewardCache: rewardCache,
	}, nil
}
