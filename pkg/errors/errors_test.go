package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))

	err := Wrapf(ErrRateLimitExceeded, "call %s", "dapi/v1/order")
	assert.EqualError(t, err, "call dapi/v1/order: rate limit exceeded")
	assert.True(t, Is(err, ErrRateLimitExceeded))
}

func TestValidationError(t *testing.T) {
	err := Wrap(NewValidationError("symbol", "required", ""), "new order")

	assert.True(t, Is(err, ErrInvalidInput))

	var ve *ValidationError
	assert.True(t, As(err, &ve))
	assert.Equal(t, "symbol", ve.Field)
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.Nil(t, m.ToError())

	m.Add(nil)
	m.Add(ErrTimeout)
	m.Add(ErrInternal)

	assert.True(t, m.HasErrors())
	assert.Contains(t, m.ToError().Error(), "multiple errors (2)")
}
