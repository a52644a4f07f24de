package store

import (
	"errors"

	"github.com/dotcommander/scrum/internal/models"
)

// Aliases keep callers that only import store from reaching into models for
// the error taxonomy.
type (
	RecoverableError      = models.RecoverableError
	ValidationError       = models.ValidationError
	NotFoundError         = models.NotFoundError
	AmbiguousMatchError   = models.AmbiguousMatchError
	StoreUnavailableError = models.StoreUnavailableError
)

// Sentinels re-exported from models.
var (
	ErrValidation       = models.ErrValidation
	ErrNotFound         = models.ErrNotFound
	ErrAmbiguousMatch   = models.ErrAmbiguousMatch
	ErrStoreUnavailable = models.ErrStoreUnavailable
)

// unavailable classifies a driver failure as StoreUnavailableError unless
// it already carries a taxonomy error.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var re models.RecoverableError
	if errors.As(err, &re) {
		return err
	}
	return &models.StoreUnavailableError{Op: op, Err: err}
}
