package xero

import (
	"fmt"
	"io"
	"net/http"

	"github.com/flockpay/xero_adapter_app/internal/apperrors"
)

// maxErrorBodyBytes bounds how much of a failing response body is retained
// for error classification and logging.
const maxErrorBodyBytes = 64 * 1024

// parseError turns a non-2xx response into the error taxonomy the services
// classify on. The body is preserved verbatim because the accounting API
// reports validation failures as free text inside it.
func parseError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if readErr != nil {
		body = []byte(fmt.Sprintf("<failed to read response body: %v>", readErr))
	}

	httpErr := &apperrors.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, httpErr.Body)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperrors.ErrForbidden, httpErr.Body)
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", apperrors.ErrRateLimited, resp.Header.Get("Retry-After"))
	default:
		return httpErr
	}
}
