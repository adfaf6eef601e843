package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

const devJWTSecret = "dev-only-secret"

type Config struct {
	Port    string `mapstructure:"PORT"`
	LogMode string `mapstructure:"LOG_MODE"`

	JWTSecretKey    string `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTL  int    `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL int    `mapstructure:"REFRESH_TOKEN_TTL"`

	DBDriver         string `mapstructure:"DB_DRIVER"`
	SQLitePath       string `mapstructure:"SQLITE_PATH"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresName     string `mapstructure:"POSTGRES_NAME"`
	PostgresSSLMode  string `mapstructure:"POSTGRES_SSLMODE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisChannel  string `mapstructure:"REDIS_CHANNEL"`

	ObjectStorageMode   string `mapstructure:"OBJECT_STORAGE_MODE"`
	GCSBucketName       string `mapstructure:"GCS_BUCKET_NAME"`
	GCSPublicBaseURL    string `mapstructure:"GCS_PUBLIC_BASE_URL"`
	StorageEmulatorHost string `mapstructure:"STORAGE_EMULATOR_HOST"`
	GCPCredentialsJSON  string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`

	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`

	SendgridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	MailFrom       string `mapstructure:"MAIL_FROM"`
	MailFromName   string `mapstructure:"MAIL_FROM_NAME"`
	AppName        string `mapstructure:"APP_NAME"`
	AppBaseURL     string `mapstructure:"APP_BASE_URL"`
	CORSOrigins    string `mapstructure:"CORS_ORIGINS"`

	UploadMaxBytes      int64 `mapstructure:"UPLOAD_MAX_BYTES"`
	SearchCorpusCeiling int   `mapstructure:"SEARCH_CORPUS_CEILING"`
	CacheTTL            int   `mapstructure:"CACHE_TTL"`
	RateLimitAuth       int   `mapstructure:"RATE_LIMIT_AUTH"`

	AvatarFontPath   string `mapstructure:"AVATAR_FONT_PATH"`
	AvatarColorsPath string `mapstructure:"AVATAR_COLORS_JSON_PATH"`

	MetricsEnabled  bool   `mapstructure:"METRICS_ENABLED"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	ServiceVersion  string `mapstructure:"SERVICE_VERSION"`
	Environment     string `mapstructure:"APP_ENV"`
}

var configDefaults = map[string]any{
	"PORT":                                "8080",
	"LOG_MODE":                            "development",
	"JWT_SECRET_KEY":                      "",
	"ACCESS_TOKEN_TTL":                    3600,
	"REFRESH_TOKEN_TTL":                   86400,
	"DB_DRIVER":                           "postgres",
	"SQLITE_PATH":                         "scripture-study.db",
	"POSTGRES_HOST":                       "localhost",
	"POSTGRES_PORT":                       "5432",
	"POSTGRES_USER":                       "postgres",
	"POSTGRES_PASSWORD":                   "",
	"POSTGRES_NAME":                       "scripture_study",
	"POSTGRES_SSLMODE":                    "disable",
	"REDIS_ADDR":                          "",
	"REDIS_PASSWORD":                      "",
	"REDIS_DB":                            0,
	"REDIS_CHANNEL":                       "scripture-study:sse",
	"OBJECT_STORAGE_MODE":                 "",
	"GCS_BUCKET_NAME":                     "",
	"GCS_PUBLIC_BASE_URL":                 "",
	"STORAGE_EMULATOR_HOST":               "",
	"GOOGLE_APPLICATION_CREDENTIALS_JSON": "",
	"GOOGLE_CLIENT_ID":                    "",
	"SENDGRID_API_KEY":                    "",
	"MAIL_FROM":                           "noreply@localhost",
	"MAIL_FROM_NAME":                      "Scripture Study",
	"APP_NAME":                            "Scripture Study",
	"APP_BASE_URL":                        "http://localhost:8080",
	"CORS_ORIGINS":                        "",
	"UPLOAD_MAX_BYTES":                    5 << 20,
	"SEARCH_CORPUS_CEILING":               2000,
	"CACHE_TTL":                           60,
	"RATE_LIMIT_AUTH":                     20,
	"AVATAR_FONT_PATH":                    "",
	"AVATAR_COLORS_JSON_PATH":             "",
	"METRICS_ENABLED":                     false,
	"OTEL_SERVICE_NAME":                   "scripture-study",
	"SERVICE_VERSION":                     "dev",
	"APP_ENV":                             "development",
}

// LoadConfig reads app.env from dir when present, then the environment.
func LoadConfig(log *logger.Logger, dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, def := range configDefaults {
		v.SetDefault(key, def)
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read app.env: %w", err)
		}
		log.Debug("No app.env found; using environment only", "dir", dir)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(log); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate(log *logger.Logger) error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET_KEY is required in production")
		}
		log.Warn("JWT_SECRET_KEY unset; using an insecure development secret")
		c.JWTSecretKey = devJWTSecret
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	return nil
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "prod", "production":
		return true
	}
	return false
}

func (c Config) AccessTTL() time.Duration  { return time.Duration(c.AccessTokenTTL) * time.Second }
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTokenTTL) * time.Second }
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (c Config) Origins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
