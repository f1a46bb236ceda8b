package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"cicloteca-backend/internal/library"
	"cicloteca-backend/internal/middleware"
	"cicloteca-backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the library API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := newAPIServer(ctx, a)
			if err != nil {
				return err
			}

			logger.Info("starting Cicloteca server", slog.String("addr", addr))
			return runServer(ctx, logger, &http.Server{Addr: addr, Handler: e})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.host:server.port from config)")
	return cmd
}

// newAPIServer builds the echo instance serving the library API
func newAPIServer(ctx context.Context, a *app) (*echo.Echo, error) {
	librarySvc, err := a.newLibrary(ctx)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.SecurityHeaders(a.cfg.Server.Domain))
	e.Use(middleware.CORSConfig(a.cfg.Server.Domain))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	libraryHandler := library.NewHandler(librarySvc, a.executor, a.logger)
	libraryHandler.RegisterRoutes(e)

	if a.local != nil {
		storageHandler := storage.NewHandler(a.local)
		storageHandler.RegisterRoutes(e)
	}
	return e, nil
}

// runServer serves until ctx is done, then shuts down gracefully
func runServer(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
