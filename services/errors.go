package services

import (
	"errors"
	"fmt"
	"strings"

	"court_flow_app_go/models"

	"gorm.io/gorm"
)

// Error kinds returned by the workflow components. Every rejection wraps one
// of these with the invariant that blocked it.
var (
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("not authorized")
	ErrNotFound              = errors.New("not found")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrAlreadyExists         = errors.New("already exists")
	ErrDocumentAlreadySealed = errors.New("document already sealed")
	ErrPersistenceConflict   = errors.New("concurrent modification")
	ErrIncompleteClosure     = errors.New("incomplete hearing closure")
	ErrContentMismatch       = errors.New("content hash mismatch")
)

// TransitionError identifies the (stage, event) pair that was refused
type TransitionError struct {
	Stage  models.Stage
	Event  models.Event
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition: event %q is not allowed from stage %s", e.Event, e.Stage)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsRetryable reports whether the caller should retry the operation against fresh state
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceConflict)
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func unauthorizedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func notFoundError(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

func invalidStateError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// lookupError converts a gorm lookup failure into NotFound or a storage failure
func lookupError(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(entity, id)
	}
	return storageError(fmt.Sprintf("failed to load %s", entity), err)
}

// storageError classifies an unexpected persistence failure. Lock contention
// and serialization failures become ErrPersistenceConflict, everything else
// is returned unclassified.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTypedError(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "could not serialize access"),
		strings.Contains(msg, "deadlock detected"):
		return fmt.Errorf("%w: %s: %v", ErrPersistenceConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTypedError(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrUnauthorized, ErrNotFound, ErrInvalidTransition, ErrAlreadyExists,
		ErrDocumentAlreadySealed, ErrPersistenceConflict, ErrIncompleteClosure, ErrContentMismatch,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// isUniqueViolation detects unique constraint failures across sqlite and postgres
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
