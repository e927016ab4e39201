package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError("archive", "Save", ErrIO, "cannot write", cause)

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNoData(err))
	assert.Equal(t, "archive.Save: cannot write: disk full", err.Error())
}

func TestDomainError_WrappedWithFmt(t *testing.T) {
	err := fmt.Errorf("term 2: %w", ErrDateOutsideYear)

	assert.True(t, IsDataIntegrity(err))
	assert.False(t, IsValidation(err))
	assert.True(t, IsValidation(ErrTermsNotOrdered))
	assert.True(t, IsNoData(ErrNoPages))
	assert.True(t, IsNotFound(ErrClassNotFound))
}
