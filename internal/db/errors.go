package db

import (
	"errors"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrForeignKey   = errors.New("foreign key constraint violation")
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate checks if error is a duplicate error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsForeignKey checks if error is a foreign key constraint violation
func IsForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}

// IsInvalidInput checks if error is a rejected input (including CHECK constraint failures)
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// MapGormError maps GORM and sqlite errors to the package errors
func MapGormError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	msg := strings.ToLower(err.Error())
	matches := func(substrs ...string) bool {
		return lo.SomeBy(substrs, func(substr string) bool { return strings.Contains(msg, substr) })
	}
	switch {
	case matches("unique constraint"):
		return ErrDuplicate
	case matches("foreign key constraint"):
		return ErrForeignKey
	case matches("check constraint", "not null constraint"):
		return ErrInvalidInput
	}

	return err
}
