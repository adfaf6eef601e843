package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketCategoryAvatar      BucketCategory = "avatar"
	BucketCategoryLessonImage BucketCategory = "lesson_image"
)

// BucketService stores lesson images and avatars in a single bucket; the
// category only selects the key prefix that is allowed.
type BucketService interface {
	UploadFile(dbc dbctx.Context, category BucketCategory, key string, contentType string, file io.Reader) error
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	cfg    Config
}

func NewBucketService(ctx context.Context, log *logger.Logger, cfg Config) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"bucket", cfg.BucketName,
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
	)
	return &bucketService{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	if cfg.IsEmulator() {
		return storage.NewClient(ctx,
			option.WithoutAuthentication(),
			option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"),
		)
	}
	opts := ClientOptions(cfg.CredentialsJSON)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func keyPrefix(category BucketCategory) (string, error) {
	switch category {
	case BucketCategoryAvatar:
		return "avatars/", nil
	case BucketCategoryLessonImage:
		return "lessons/", nil
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
}

func checkKey(category BucketCategory, key string) (string, error) {
	prefix, err := keyPrefix(category)
	if err != nil {
		return "", err
	}
	clean := strings.TrimLeft(path.Clean("/"+strings.TrimSpace(key)), "/")
	if !strings.HasPrefix(clean, prefix) {
		return "", fmt.Errorf("key %q outside %s prefix %q", key, category, prefix)
	}
	return clean, nil
}

func (bs *bucketService) UploadFile(dbc dbctx.Context, category BucketCategory, key string, contentType string, file io.Reader) error {
	objectKey, err := checkKey(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.cfg.BucketName).Object(objectKey).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeForKey(objectKey)
	}
	if contentType != "" {
		w.ContentType = contentType
	}
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	objectKey, err := checkKey(category, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.Bucket(bs.cfg.BucketName).Object(objectKey).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", objectKey, bs.cfg.BucketName, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(category BucketCategory, key string) string {
	return PublicURL(bs.cfg, key)
}

// PublicURL builds the URL stored on lessons and users for key.
func PublicURL(cfg Config, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.IsEmulator() {
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.BucketName), url.PathEscape(key))
	}
	if cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.BucketName, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.BucketName, key)
}

func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	default:
		return ""
	}
}
