package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/leondli/tagserver/internal/adapter/handler"
	"github.com/leondli/tagserver/internal/adapter/repository"
	"github.com/leondli/tagserver/internal/adapter/storage"
	"github.com/leondli/tagserver/internal/infrastructure/config"
	"github.com/leondli/tagserver/internal/infrastructure/database"
	"github.com/leondli/tagserver/internal/infrastructure/middleware"
	"github.com/leondli/tagserver/internal/infrastructure/server"
	"github.com/leondli/tagserver/internal/usecase/tag"
)

// multipartOverhead is the allowance for boundaries and part headers on
// top of the image itself
const multipartOverhead = 1 << 20

// rateLimitTTL is how long an idle client bucket is kept
const rateLimitTTL = 10 * time.Minute

// NewServeCommand creates the serve command
func NewServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Wait for the database, ensure the schema exists and serve the tag API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.Config)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Starting tag server...")

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Traffic is only served once the store is reachable and migrated
	if err := database.EnsureSchema(ctx, db, cfg.Database.Retry, repository.Models()...); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	// Initialize image storage
	images, err := storage.NewLocalImageStorage(cfg.Upload.Dir)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	// Initialize repositories and use cases
	tagRepo := repository.NewTagRepository(db, repository.WithQueryTimeout(cfg.Database.QueryTimeout))
	tagUseCase := tag.NewUseCase(tagRepo, images, tag.Config{
		MaxImageSize:  cfg.Upload.MaxSize,
		VerifyContent: cfg.Upload.VerifyContent,
		StrictMAC:     cfg.Tag.StrictMAC,
	})

	// Initialize handlers
	handlers := &handler.Handlers{
		Tag: handler.NewTagHandler(tagUseCase, cfg.Server.ExposeErrors),
		Health: handler.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}, cfg.Database.QueryTimeout),
	}

	routeOpts := handler.RouteOptions{UploadBodyLimit: cfg.Upload.MaxSize + multipartOverhead}
	if cfg.RateLimit.Enabled {
		routeOpts.RateLimiter = middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst, rateLimitTTL)
		log.Info().
			Float64("rps", cfg.RateLimit.RPS).
			Int("burst", cfg.RateLimit.Burst).
			Msg("Rate limiting enabled")
	}

	// Initialize HTTP server
	srv := server.New(&cfg.Server)
	handler.RegisterRoutes(srv.Router(), handlers, routeOpts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
