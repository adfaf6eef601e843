package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/db"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
)

// storeErr classifies a repository error. Typed API errors pass through.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	if db.IsUniqueViolation(err) {
		return apierr.Conflict("conflict", "%s: already exists", op)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.NotFound("not_found", "%s: not found", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isMissing(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
