package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"postsync/internal/core/post"
)

// storeErr maps gorm failures onto the domain error kinds.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, post.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %s: duplicate key", post.ErrValidation, op)
	default:
		return fmt.Errorf("%s: %w: %w", op, post.ErrTransientStore, err)
	}
}

// isUniqueViolation catches drivers whose errors gorm does not translate.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
