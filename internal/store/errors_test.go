package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailable_WrapsDriverErrors(t *testing.T) {
	assert.NoError(t, unavailable("noop", nil))

	driverErr := errors.New("disk I/O error")
	err := unavailable("save task", driverErr)

	var su *StoreUnavailableError
	require.ErrorAs(t, err, &su)
	assert.Equal(t, "save task", su.Op)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, driverErr)
}

func TestUnavailable_KeepsTaxonomyErrors(t *testing.T) {
	nf := &NotFoundError{Entity: "task", Key: "abc"}
	err := unavailable("load task", fmt.Errorf("wrapped: %w", nf))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrStoreUnavailable))
}
