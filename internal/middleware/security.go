package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// CORSConfig returns CORS middleware for the site served from domain
func CORSConfig(domain string) echo.MiddlewareFunc {
	if domain == "" {
		// Fallback to localhost for development
		return middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  []string{"http://localhost:4200", "http://localhost:3000", "http://localhost:5173"},
			AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
			MaxAge:        86400, // 24 hours
		})
	}

	// Production CORS configuration - restrict to HTTPS only for production
	allowedOrigins := []string{
		"https://" + domain,
	}

	// Only allow HTTP for explicit non-production domains
	if strings.Contains(domain, "localhost") || strings.Contains(domain, "127.0.0.1") {
		allowedOrigins = append(allowedOrigins, "http://"+domain)
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
		MaxAge:        86400, // 24 hours
	})
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(domain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Basic security headers
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "SAMEORIGIN")
			c.Response().Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// API responses and file downloads only, no script execution
			csp := "default-src 'none'; frame-ancestors 'self'"
			if domain != "" && !strings.Contains(domain, "localhost") {
				csp = "default-src 'none'; frame-ancestors https://" + domain
			}
			c.Response().Header().Set("Content-Security-Policy", csp)

			c.Response().Header().Set("Permissions-Policy",
				"geolocation=(), microphone=(), camera=(), payment=(), usb=()")

			// HSTS - only for HTTPS requests
			proto := c.Request().Header.Get("X-Forwarded-Proto")
			if proto == "https" || c.Request().TLS != nil {
				c.Response().Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}
