package relay

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingTarget  = errors.New("u is required")
	ErrInvalidTarget  = errors.New("target must be an absolute http(s) URL")
	ErrHostNotAllowed = errors.New("host is not served by this relay")
	ErrUpstream       = errors.New("upstream request failed")
)

// UpstreamStatusError carries a non-2xx status returned by the target
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

type ErrorResponse struct {
	StatusCode int
	Message    string
}

// GetErrorResponse returns appropriate HTTP response for an error
func GetErrorResponse(err error) ErrorResponse {
	var statusErr *UpstreamStatusError
	switch {
	case errors.Is(err, ErrMissingTarget):
		return ErrorResponse{http.StatusBadRequest, err.Error()}
	case errors.Is(err, ErrInvalidTarget):
		return ErrorResponse{http.StatusBadRequest, err.Error()}
	case errors.Is(err, ErrHostNotAllowed):
		return ErrorResponse{http.StatusForbidden, err.Error()}
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusForbidden {
			return ErrorResponse{statusErr.StatusCode, err.Error()}
		}
		return ErrorResponse{http.StatusBadGateway, err.Error()}
	case errors.Is(err, ErrUpstream):
		return ErrorResponse{http.StatusBadGateway, "Could not reach the file host. Please try again later."}
	default:
		return ErrorResponse{http.StatusInternalServerError, "An unexpected error occurred. Please try again."}
	}
}
