package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/scripture-study-backend/internal/platform/gcp"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/sendgrid"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

// Clients are the optional outside systems. A nil field means the feature
// runs in its local fallback mode.
type Clients struct {
	Redis  *goredis.Client
	Bucket gcp.BucketService
	Mailer sendgrid.Client
	Google services.IDTokenVerifier
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		out.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR unset; cache and realtime stay in-process and rate limiting is off")
	}

	// Gcs
	if strings.TrimSpace(cfg.GCSBucketName) != "" {
		storageCfg, err := gcp.Resolve(cfg.ObjectStorageMode, gcp.Config{
			BucketName:      cfg.GCSBucketName,
			EmulatorHost:    cfg.StorageEmulatorHost,
			PublicBaseURL:   cfg.GCSPublicBaseURL,
			CredentialsJSON: cfg.GCPCredentialsJSON,
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("object storage config: %w", err)
		}
		bucket, err := gcp.NewBucketService(ctx, log, storageCfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		out.Bucket = bucket
	} else {
		log.Warn("GCS_BUCKET_NAME unset; image uploads and avatars are disabled")
	}

	// Sendgrid
	out.Mailer = sendgrid.New(log, sendgrid.Config{
		APIKey:    cfg.SendgridAPIKey,
		FromEmail: cfg.MailFrom,
		FromName:  cfg.MailFromName,
	})

	// Google sign-in
	if strings.TrimSpace(cfg.GoogleClientID) != "" {
		verifier, err := services.NewGoogleVerifier(services.GoogleVerifierConfig{ClientID: cfg.GoogleClientID})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init google verifier: %w", err)
		}
		out.Google = verifier
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
