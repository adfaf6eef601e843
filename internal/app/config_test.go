package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := LoadConfig(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected defaults: port=%q driver=%q", cfg.Port, cfg.DBDriver)
	}
	if cfg.JWTSecretKey != devJWTSecret {
		t.Fatalf("expected dev secret fallback, got %q", cfg.JWTSecretKey)
	}
	if cfg.SearchCorpusCeiling != 2000 || cfg.UploadMaxBytes != 5<<20 {
		t.Fatalf("unexpected limits: ceiling=%d upload=%d", cfg.SearchCorpusCeiling, cfg.UploadMaxBytes)
	}
	if cfg.AccessTTL() != time.Hour || cfg.CacheDuration() != time.Minute {
		t.Fatalf("unexpected durations: %s %s", cfg.AccessTTL(), cfg.CacheDuration())
	}
}

func TestLoadConfigReadsEnvFileAndEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	body := "DB_DRIVER=SQLite\nSQLITE_PATH=/tmp/from-file.db\nPORT=9000\nCORS_ORIGINS=https://a.example, https://b.example ,\n"
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(body), 0o600); err != nil {
		t.Fatalf("write app.env: %v", err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := LoadConfig(logger.Nop(), dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.SQLitePath != "/tmp/from-file.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Port != "9100" {
		t.Fatalf("environment should override file, got %q", cfg.Port)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %q", origins)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"production without secret", map[string]string{"APP_ENV": "production", "JWT_SECRET_KEY": ""}},
		{"refresh shorter than access", map[string]string{"ACCESS_TOKEN_TTL": "600", "REFRESH_TOKEN_TTL": "60"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(logger.Nop(), t.TempDir()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
