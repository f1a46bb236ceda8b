package library

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"cicloteca-backend/internal/download"
	"cicloteca-backend/internal/logging"
)

// Handler handles HTTP requests for the library catalog
type Handler struct {
	service  *Service
	executor Deliverer
	logger   *slog.Logger
}

// NewHandler creates a new library handler
func NewHandler(service *Service, executor Deliverer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		executor: executor,
		logger:   logger,
	}
}

// RegisterRoutes registers library routes with the Echo router
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/library", h.ListEntries)
	e.GET("/library/:id", h.GetEntry)
	e.GET("/library/:id/download", h.DownloadEntry)
	e.GET("/resolve", h.ResolveReference)
}

// ListEntries handles GET /library
func (h *Handler) ListEntries(c echo.Context) error {
	entries, err := h.service.ListEntries(c.Request().Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
	})
}

// GetEntry handles GET /library/:id
func (h *Handler) GetEntry(c echo.Context) error {
	detail, err := h.service.GetDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// DownloadEntry handles GET /library/:id/download
// It streams the file as an attachment, or redirects to it when the file
// host cannot be read from here.
func (h *Handler) DownloadEntry(c echo.Context) error {
	ctx := c.Request().Context()

	fileURL, name, err := h.service.FileTarget(ctx, c.Param("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}

	sink := download.NewResponseSink(c)
	_, err = h.executor.Deliver(ctx, download.Request{
		URL:           fileURL,
		SuggestedName: name,
		Sink:          sink,
	})
	if err != nil {
		if c.Response().Committed {
			// Headers are already sent, the client sees a truncated body
			h.logger.Error("download interrupted", slog.String("entry", c.Param("id")), logging.Err(err))
			return nil
		}
		return h.errorJSON(c, err)
	}
	return nil
}

// ResolveReference handles GET /resolve?ref=
func (h *Handler) ResolveReference(c echo.Context) error {
	ref := c.QueryParam("ref")

	url, err := h.service.Explain(c.Request().Context(), ref)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"ref": ref,
		"url": url,
	})
}

func (h *Handler) errorJSON(c echo.Context, err error) error {
	resp := GetErrorResponse(err)
	if resp.StatusCode >= http.StatusInternalServerError && !errors.Is(err, ErrFileUnavailable) {
		h.logger.Warn("library request failed", slog.String("path", c.Path()), logging.Err(err))
	}
	return c.JSON(resp.StatusCode, map[string]string{
		"error": resp.Message,
	})
}
