package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureIndexes adds the composite indexes the list queries lean on. The
// statements are portable between Postgres and SQLite.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_lesson_status_order", `CREATE INDEX IF NOT EXISTS idx_lesson_status_order ON lesson(status, sort_order)`},
		{"idx_lesson_main_class", `CREATE INDEX IF NOT EXISTS idx_lesson_main_class ON lesson(main_id, class_id)`},
		{"idx_class_main_order", `CREATE INDEX IF NOT EXISTS idx_class_main_order ON class(main_id, sort_order)`},
		{"idx_oauth_nonce_expires_at", `CREATE INDEX IF NOT EXISTS idx_oauth_nonce_expires_at ON oauth_nonce(expires_at)`},
		{"idx_user_progress_user_updated", `CREATE INDEX IF NOT EXISTS idx_user_progress_user_updated ON user_progress(user_id, updated_at)`},
		{"idx_bookmark_user_created", `CREATE INDEX IF NOT EXISTS idx_bookmark_user_created ON bookmark(user_id, created_at)`},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}
