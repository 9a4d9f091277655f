package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pkordes/secret-santa/internal/config"
	"github.com/pkordes/secret-santa/internal/domain"
	"github.com/pkordes/secret-santa/internal/handler"
	"github.com/pkordes/secret-santa/internal/middleware"
	"github.com/pkordes/secret-santa/internal/repo"
	"github.com/pkordes/secret-santa/internal/service"
)

// NewServeCommand creates the serve command, which runs the HTTP API until
// the command context is cancelled.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return rootOpts.bindFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, newLogger(cmd.OutOrStdout(), cfg))
		},
	}

	cmd.Flags().String("port", "", "TCP port to listen on (overrides PORT)")
	cmd.Flags().String("store", "", "workshop store: memory, postgres or sqlite (overrides STORE)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	slog.SetDefault(logger)

	workshops, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, workshops, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// newRouter assembles the full middleware chain around the API routes.
//
// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer →
// CORS → MaxBodySize. RequestID generates a unique trace ID per request,
// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP, SlogLogger
// writes one structured log line per request and Recoverer turns panics
// into HTTP 500.
func newRouter(cfg config.Config, workshops repo.WorkshopRepo, logger *slog.Logger) http.Handler {
	mm := domain.NewMatchMaker()
	mm.MaxAttempts = cfg.MatchMaxAttempts
	mm.Exhaustive = cfg.MatchExhaustive

	svc := service.NewWorkshopService(workshops, mm, logger)
	srv := handler.NewServer(svc, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", srv.Routes())
	return r
}
