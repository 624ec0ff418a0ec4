package exchanges

import (
	"coinm/pkg/errors"
)

var (
	// ErrNotSupported is returned when the exchange does not support the requested feature.
	ErrNotSupported = errors.New("operation not supported by exchange")

	// ErrInvalidRequest indicates validation failures before hitting exchange API.
	ErrInvalidRequest = errors.Wrap(errors.ErrInvalidInput, "invalid exchange request")
)
