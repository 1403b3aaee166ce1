package gamification

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input such as non-positive points or a missing id.
	ErrValidation = errors.New("invalid gamification input")
	// ErrBusinessRule is the parent of every rejection caused by a business rule.
	ErrBusinessRule = errors.New("request rejected by business rule")
	// ErrNotFound is returned when a required profile, achievement or transaction is absent.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is reported by stores when a unique key already exists.
	// The engine always recovers from it locally.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrVersionConflict is reported by Profiles.Update when the stored version moved.
	ErrVersionConflict = errors.New("profile version conflict")
)

var (
	ErrCheckInAlreadyDone = fmt.Errorf("%w: check-in already done today", ErrBusinessRule)
	// ErrCheckInInProgress means a concurrent check-in for the same day has
	// not finished yet. Retrying resolves to success or ErrCheckInAlreadyDone.
	ErrCheckInInProgress = fmt.Errorf("%w: check-in in progress", ErrBusinessRule)
	// ErrEligibility groups the pluggable check-in eligibility rejections.
	ErrEligibility               = fmt.Errorf("%w: not eligible for check-in", ErrBusinessRule)
	ErrCheckInLocation           = fmt.Errorf("%w: location out of range", ErrEligibility)
	ErrCheckInTrainingInProgress = fmt.Errorf("%w: training in progress", ErrEligibility)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
