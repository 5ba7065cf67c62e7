package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leondli/tagserver/internal/infrastructure/config"
)

const sqliteScheme = "sqlite://"

// Dialector selects the Gorm driver for a connection URL. sqlite:// and
// file: URLs open an embedded SQLite database; anything else is handed to
// the Postgres driver, which accepts both URL and key=value DSNs.
func Dialector(url string) gorm.Dialector {
	switch {
	case strings.HasPrefix(url, sqliteScheme):
		return sqlite.Open(strings.TrimPrefix(url, sqliteScheme))
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url)
	default:
		return postgres.Open(url)
	}
}

// Open configures a pooled connection without contacting the database.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
		// reachability is established by EnsureSchema's retry loop
		DisableAutomaticPing: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(Dialector(cfg.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns())
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info().
		Str("dialect", db.Dialector.Name()).
		Int("pool_size", cfg.PoolSize).
		Int("max_open_conns", cfg.MaxOpenConns()).
		Msg("Database pool configured")

	return db, nil
}

// EnsureSchema creates missing tables, retrying while the database starts up.
// It gives up after retry.Attempts tries or when ctx is done.
func EnsureSchema(ctx context.Context, db *gorm.DB, retry config.RetryConfig, models ...interface{}) error {
	err := Retry(ctx, retry, func(int) error {
		return db.WithContext(ctx).AutoMigrate(models...)
	})
	if err != nil {
		return fmt.Errorf("failed to create database tables after %d attempts: %w", retry.Attempts, err)
	}
	log.Info().Msg("Database tables created successfully")
	return nil
}

// Retry calls fn until it succeeds, attempts are exhausted, or ctx is done.
func Retry(ctx context.Context, retry config.RetryConfig, fn func(attempt int) error) error {
	attempts := retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", retry.Delay).
			Msg("Database connection attempt failed, retrying")

		timer := time.NewTimer(retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// Recreate drops and recreates the given tables. All data is lost.
func Recreate(ctx context.Context, db *gorm.DB, models ...interface{}) error {
	migrator := db.WithContext(ctx).Migrator()

	log.Warn().Msg("Dropping all tables...")
	if err := migrator.DropTable(models...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	log.Info().Msg("Creating all tables...")
	if err := migrator.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info().Msg("Tables recreated successfully")
	return nil
}

// Ping verifies the database is reachable
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
