package relay

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.handleRelay)
	e.OPTIONS("/", h.handlePreflight)
}

// handleRelay handles GET /?u=<urlencoded target>
func (h *Handler) handleRelay(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")

	upstream, err := h.service.Fetch(c.Request().Context(), c.QueryParam("u"))
	if err != nil {
		resp := GetErrorResponse(err)
		return c.JSON(resp.StatusCode, map[string]string{
			"error": resp.Message,
		})
	}
	defer upstream.Body.Close()

	header := c.Response().Header()
	for key, values := range upstream.Header {
		header[key] = values
	}
	if header.Get(echo.HeaderContentType) == "" {
		header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	}
	header.Set("Cache-Control", "public, max-age=3600")
	header.Set(echo.HeaderAccessControlExposeHeaders, "Content-Disposition, Content-Length")
	c.Response().WriteHeader(http.StatusOK)

	// headers are gone by now, a broken copy can only drop the connection
	_, err = io.Copy(c.Response(), upstream.Body)
	return err
}

func (h *Handler) handlePreflight(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowMethods, "GET, OPTIONS")
	header.Set(echo.HeaderAccessControlAllowHeaders, "*")
	header.Set(echo.HeaderAccessControlMaxAge, "86400")
	return c.NoContent(http.StatusNoContent)
}
