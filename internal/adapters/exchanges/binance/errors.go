package binance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"coinm/pkg/errors"
)

// APIError is the {code, msg} record the exchange returns for a failed request, or for a
// single rejected element of a batch. HTTPStatus is zero for batch elements.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`

	// Wait is the Retry-After the exchange sent with a 429 or 418
	Wait time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("binance error %d (http %d): %s", e.Code, e.HTTPStatus, e.Msg)
	}
	return fmt.Sprintf("binance error %d: %s", e.Code, e.Msg)
}

// StatusCode exposes the HTTP status to the retry classifier.
func (e *APIError) StatusCode() int {
	return e.HTTPStatus
}

// RetryAfter exposes Wait to the retry middleware.
func (e *APIError) RetryAfter() time.Duration {
	return e.Wait
}

// Unwrap maps exchange codes onto the shared error kinds, so callers can branch with
// errors.Is(err, errors.ErrInsufficientBalance) and friends.
// https://binance-docs.github.io/apidocs/delivery/en/#error-codes
func (e *APIError) Unwrap() error {
	switch e.Code {
	case -1003, -1015:
		return errors.ErrRateLimitExceeded
	case -1001, -1016:
		return errors.ErrExchangeUnavailable
	case -1007:
		return errors.ErrTimeout
	case -1002, -1022, -2014, -2015:
		return errors.ErrUnauthorized
	case -1121:
		return errors.ErrInvalidSymbol
	case -2013:
		return errors.ErrNotFound
	case -2010, -2018, -2019:
		// -2010 is the generic new order rejection, which on this api is almost always margin
		return errors.ErrInsufficientBalance
	}

	switch {
	case e.Code <= -1100 && e.Code > -1200:
		return errors.ErrInvalidInput
	case e.Code <= -2000 && e.Code > -3000, e.Code <= -4000 && e.Code > -5000:
		return errors.ErrOrderRejected
	case e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus == http.StatusTeapot:
		return errors.ErrRateLimitExceeded
	case e.HTTPStatus >= 500:
		return errors.ErrExchangeUnavailable
	}
	return nil
}

// codeLabel renders the exchange code of err for metric labels.
func codeLabel(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code != 0 {
			return strconv.Itoa(apiErr.Code)
		}
		return "http_" + strconv.Itoa(apiErr.HTTPStatus)
	}
	return ""
}

// parseAPIError builds an *APIError from an error response. Bodies that are not a
// {code, msg} record keep the raw body as the message.
func parseAPIError(status int, payload []byte) *APIError {
	apiErr := &APIError{HTTPStatus: status}
	if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Code == 0 {
		apiErr.Code = 0
		apiErr.Msg = string(payload)
	}
	return apiErr
}
