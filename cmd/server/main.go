package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/app"
	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/notify"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/remote"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port to listen on")
	fs.StringVar(&cfg.LedgerDriver, "ledger-driver", cfg.LedgerDriver, "ledger database driver (sqlite or mysql)")
	fs.StringVar(&cfg.LedgerDSN, "ledger-dsn", cfg.LedgerDSN, "ledger database DSN")
	fs.BoolVar(&cfg.StrictAvailability, "strict-availability", cfg.StrictAvailability, "fail bookings when search or the ledger cannot be read")
	withConsumer := fs.Bool("consumer", false, "also run the booking event consumer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	ledger := repository.NewReservationRepo(db)

	// typed nils would defeat the service's nil checks
	var search service.DepartureSearcher
	if cfg.SearchURL != "" {
		search = remote.NewSearchClient(cfg.SearchURL, cfg.CollaboratorTimeout)
	}
	var store service.BookingStore
	if cfg.PersistenceURL != "" {
		store = remote.NewBookingClient(cfg.PersistenceURL, cfg.CollaboratorTimeout)
	}

	email := notify.NewEmailSink(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.CollaboratorTimeout, logger)
	var notifier service.Notifier
	switch cfg.NotifyMode {
	case config.NotifyAMQP:
		notifier = queue.NewPublisher(cfg.AMQPURL, cfg.CollaboratorTimeout, logger)
	case config.NotifyEmail:
		notifier = email
	default:
		notifier = notify.NewLogSink(logger)
	}

	svc := service.NewBookingService(ledger, search, store, notifier, service.Options{
		StrictAvailability: cfg.StrictAvailability,
		Timeout:            cfg.CollaboratorTimeout,
		Rows:               cfg.BusRows,
		Cols:               cfg.BusCols,
	}, logger)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, db)
	router.RegisterBookings(e, handler.NewBookingHandler(svc, logger),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	if *withConsumer {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.BookingLogDir, email, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("ledger", cfg.LedgerDriver),
			zap.Bool("strict_availability", cfg.StrictAvailability),
			zap.String("notify", cfg.NotifyMode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openLedger(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dsn := cfg.LedgerDSN
	if dsn == "" {
		switch cfg.LedgerDriver {
		case database.DriverMySQL:
			dsn = database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		default:
			if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0o755); err != nil {
				return nil, fmt.Errorf("create ledger dir: %w", err)
			}
			dsn = database.SQLiteDSN(cfg.LedgerPath)
		}
	}
	db, err := database.Open(cfg.LedgerDriver, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, cfg.LedgerDriver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
