// Package server initializes and runs the chat server: it opens the
// database, applies migrations, wires the auth service, registry, router,
// and archiver together, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/archive"
	"github.com/dmitrijs2005/fastchat/internal/server/auth"
	"github.com/dmitrijs2005/fastchat/internal/server/chat"
	"github.com/dmitrijs2005/fastchat/internal/server/config"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
	"github.com/dmitrijs2005/fastchat/internal/server/repositories/repomanager"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) *App {
	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return &App{config: c, logger: logging.NewSlogLogger(l)}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// openDB opens the pool and verifies reachability with bounded
// exponential backoff. An unreachable database at startup is fatal.
func (app *App) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not reachable yet", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return db, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	db, err := app.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	authService := auth.NewService(rm.Users(db), []byte(app.config.Pepper), auth.Params{
		Time:    app.config.Argon2Time,
		Memory:  app.config.Argon2Memory,
		Threads: app.config.Argon2Threads,
		KeyLen:  auth.DefaultParams().KeyLen,
		SaltLen: auth.DefaultParams().SaltLen,
	})

	messageLog := rm.Messages(db)
	reg := registry.New()
	router := chat.NewRouter(reg, messageLog, app.logger)

	srv := chat.NewServer(app.config.Addr, app.logger, authService, reg, router, chat.ServerOptions{
		MaxLineBytes: app.config.MaxLineBytes,
		IdleTimeout:  app.config.IdleTimeout,
		WriteTimeout: app.config.WriteTimeout,
		SendQueueLen: app.config.SendQueueLen,
	})

	var wg sync.WaitGroup

	if app.config.S3Bucket != "" {
		archiver, err := archive.New(messageLog, archive.Options{
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			RootUser:     app.config.S3RootUser,
			RootPassword: app.config.S3RootPassword,
			Interval:     app.config.ArchiveInterval,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("initializing archiver: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			archiver.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
	return nil
}
