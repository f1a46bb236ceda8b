package library

import (
	"errors"
	"net/http"

	"cicloteca-backend/internal/download"
	"cicloteca-backend/internal/resolver"
)

var (
	ErrEntryNotFound   = errors.New("library entry not found")
	ErrInvalidID       = errors.New("invalid library entry id")
	ErrFileUnavailable = errors.New("file is not available right now")
	ErrInvalidCatalog  = errors.New("invalid library catalog")
)

type ErrorResponse struct {
	StatusCode int
	Message    string
}

// GetErrorResponse returns appropriate HTTP response for an error
func GetErrorResponse(err error) ErrorResponse {
	switch {
	case errors.Is(err, ErrEntryNotFound):
		return ErrorResponse{http.StatusNotFound, err.Error()}
	case errors.Is(err, ErrInvalidID):
		return ErrorResponse{http.StatusBadRequest, err.Error()}
	case errors.Is(err, resolver.ErrNoReference):
		return ErrorResponse{http.StatusBadRequest, "ref is required"}
	case errors.Is(err, ErrFileUnavailable):
		return ErrorResponse{http.StatusServiceUnavailable, "The file is not available right now. Please try again later."}
	case errors.Is(err, resolver.ErrResolutionTimeout):
		return ErrorResponse{http.StatusGatewayTimeout, "Resolving the file took too long. Please try again."}
	case errors.Is(err, download.ErrAllStrategiesFailed):
		return ErrorResponse{http.StatusBadGateway, "The file could not be downloaded. Please try again later."}
	default:
		return ErrorResponse{http.StatusInternalServerError, "An unexpected error occurred. Please try again."}
	}
}
