package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/scripture-study-backend/internal/app"
	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	"github.com/yungbote/scripture-study-backend/internal/platform/envutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/querycache"
	"github.com/yungbote/scripture-study-backend/internal/services"
)

func main() {
	file := flag.String("file", "seed.yaml", "curriculum YAML to import")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *file); err != nil {
		log.Error("Seed failed", "file", *file, "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(log, ".")
	if err != nil {
		return err
	}
	dbService, err := app.OpenDB(log, cfg)
	if err != nil {
		return err
	}
	defer dbService.Close()
	db := dbService.DB()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	// With a shared redis store the import bumps the namespaces running servers read from.
	store := querycache.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		store = querycache.NewRedisStore(rdb)
	}

	seed := services.NewSeedService(db, log,
		repos.NewUserRepo(db, log),
		repos.NewMainRepo(db, log),
		repos.NewClassRepo(db, log),
		repos.NewLessonRepo(db, log),
		querycache.New(log, store),
	)
	report, err := seed.Import(ctx, f)
	if err != nil {
		return err
	}
	log.Info("Seed complete",
		"mains_created", report.MainsCreated,
		"classes_created", report.ClassesCreated,
		"lessons_created", report.LessonsCreated,
		"skipped", report.Skipped,
	)
	return nil
}
