package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")
	ErrForbidden    = errors.New("google: forbidden (insufficient permissions)")
	ErrNotFound     = errors.New("google: resource not found")
	ErrRateLimited  = errors.New("google: rate limit exceeded")
)

var statusSentinels = map[int]error{
	http.StatusUnauthorized:    ErrUnauthorized,
	http.StatusForbidden:       ErrForbidden,
	http.StatusNotFound:        ErrNotFound,
	http.StatusTooManyRequests: ErrRateLimited,
}

// WrapError tags a *googleapi.Error with the sentinel for its status code so
// callers can test it with errors.Is. The API error stays in the chain.
// Other errors, and API errors with unlisted codes, are returned unchanged.
func WrapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if sentinel, ok := statusSentinels[gerr.Code]; ok {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}
