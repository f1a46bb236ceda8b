package storage

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/labstack/echo/v4"
)

// Handler serves files of a LocalBackend behind signed URLs
type Handler struct {
	backend *LocalBackend
}

// NewHandler creates a new storage handler
func NewHandler(backend *LocalBackend) *Handler {
	return &Handler{
		backend: backend,
	}
}

// RegisterRoutes registers storage routes with the Echo router
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/files/*", h.ServeFile)
}

// ServeFile handles GET /files/<path>?expires=..&token=..
func (h *Handler) ServeFile(c echo.Context) error {
	objectPath, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid path",
		})
	}

	if err := h.backend.Verify(objectPath, c.QueryParam("expires"), c.QueryParam("token")); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": err.Error(),
		})
	}

	f, err := h.backend.Open(objectPath)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrInvalidPath) {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]string{
			"error": err.Error(),
		})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to stat file",
		})
	}

	name := path.Base(objectPath)
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(c.Response(), c.Request(), name, info.ModTime(), f)
	return nil
}
