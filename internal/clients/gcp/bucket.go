package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rizzlab/rizzlab-backend/internal/logger"
)

type BucketCategory string

const (
	BucketCategoryAvatar BucketCategory = "avatar"
	BucketCategoryVoice  BucketCategory = "voice"
	BucketCategoryImage  BucketCategory = "image"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

// BucketService stores generated assets (persona cards, reward voice clips,
// reward portraits) and hands back public URLs.
type BucketService interface {
	UploadBytes(ctx context.Context, category BucketCategory, key string, data []byte) error
	DeleteFile(ctx context.Context, category BucketCategory, key string) error
	DeletePrefix(ctx context.Context, category BucketCategory, prefix string) error
	DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error)
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	assetBucket   bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := os.Getenv("ASSET_GCS_BUCKET_NAME")
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var ASSET_GCS_BUCKET_NAME")
	}
	cdnDomain := os.Getenv("ASSET_CDN_DOMAIN")

	ctx := context.Background()
	opts := clientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		assetBucket: bucketConfig{
			name:      bucketName,
			cdnDomain: cdnDomain,
		},
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	credsFile := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if credsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credsFile)}
	}
	return nil
}

func (bs *bucketService) objectKey(category BucketCategory, key string) string {
	return fmt.Sprintf("%s/%s", category, strings.TrimPrefix(key, "/"))
}

func (bs *bucketService) UploadBytes(ctx context.Context, category BucketCategory, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := bs.objectKey(category, key)
	w := bs.storageClient.Bucket(bs.assetBucket.name).Object(obj).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketService) DeleteFile(ctx context.Context, category BucketCategory, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	obj := bs.objectKey(category, key)
	if err := bs.storageClient.Bucket(bs.assetBucket.name).Object(obj).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %s: %w", obj, err)
	}
	return nil
}

func (bs *bucketService) DeletePrefix(ctx context.Context, category BucketCategory, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	full := bs.objectKey(category, prefix)
	bucket := bs.storageClient.Bucket(bs.assetBucket.name)
	it := bucket.Objects(ctx, &storage.Query{Prefix: full})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list GCS objects under %s: %w", full, err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			bs.log.Warn("failed to delete object under prefix (continuing)", "object", attrs.Name, "error", err)
		}
	}
	return nil
}

func (bs *bucketService) DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error) {
	obj := bs.objectKey(category, key)
	r, err := bs.storageClient.Bucket(bs.assetBucket.name).Object(obj).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS reader for %s: %w", obj, err)
	}
	return r, nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	obj := bs.objectKey(category, key)
	if bs.assetBucket.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.assetBucket.cdnDomain, obj)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.assetBucket.name, obj)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	default:
		return ""
	}
}
