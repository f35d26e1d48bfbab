package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("has already been taken")
)

// ValidationError carries user-facing messages for a rejected write
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// NewValidationError returns nil when there are no messages
func NewValidationError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: messages}
}

// IsValidation reports whether err carries user-facing validation messages
func IsValidation(err error) ([]string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Messages, true
	}
	return nil, false
}

// notFound maps gorm's missing-row error onto ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
