package cmd

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"cicloteca-backend/internal/config"
	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/logging"
	"cicloteca-backend/internal/relay"
	"cicloteca-backend/internal/storage"
)

func newRelayCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the CORS relay for allow-listed file hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Relay.Addr()
			}

			storageHosts := append([]string{}, cfg.Storage.PublicHosts...)
			if cfg.Storage.Backend == config.StorageFirebase {
				storageHosts = append(storageHosts, storage.NewFirebaseBackend(cfg.Storage.Bucket, cfg.Storage.BaseURL).PublicHost())
			}

			service := relay.NewService(links.NewAllowList(storageHosts...), nil, logging.WithOperation(logger, "relay"))

			e := echo.New()
			e.HideBanner = true
			e.Use(echoMiddleware.Logger())
			e.Use(echoMiddleware.Recover())
			e.GET("/healthz", func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
			})
			relay.NewHandler(service).RegisterRoutes(e)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting relay", slog.String("addr", addr))
			return runServer(ctx, logger, &http.Server{Addr: addr, Handler: e})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: relay.host:relay.port from config)")
	return cmd
}
