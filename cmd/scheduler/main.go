package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/example/session-scheduler/internal/attendance"
	"github.com/example/session-scheduler/internal/booking"
	"github.com/example/session-scheduler/internal/capacity"
	"github.com/example/session-scheduler/internal/catalog"
	"github.com/example/session-scheduler/internal/config"
	"github.com/example/session-scheduler/internal/eventbus"
	"github.com/example/session-scheduler/internal/eventworker"
	"github.com/example/session-scheduler/internal/httpapi"
	"github.com/example/session-scheduler/internal/reader"
	"github.com/example/session-scheduler/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := store.Open(ctx, cfg.SQLiteDSN, migrationDir())
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()
	repo := store.NewRepository(engine)

	catalogSvc := catalog.New(repo, time.Now, nil, logger)
	ledger := capacity.New(repo)
	bookingSvc := booking.New(repo, ledger, time.Now, nil)
	readerSvc := reader.New(repo, cfg.MaxQueryWindowDays)
	attendanceSvc := attendance.New(repo, attendance.Window{
		BeforeMinutes: cfg.CheckInWindowBeforeMinutes,
		AfterMinutes:  cfg.CheckInWindowAfterMinutes,
	}, time.Now, cfg.DefaultCheckInRadiusMeters)

	publisher := eventbus.NewPublisher(cfg.EventBusRedisAddr)
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Error("failed to close event bus publisher", "error", cerr)
		}
	}()

	consumer := eventbus.NewConsumer()
	worker := eventworker.New(bookingSvc, readerSvc, publisher, logger)
	worker.Register(consumer)

	asynqServer := eventbus.NewServer(cfg.EventBusRedisAddr, cfg.EventWorkerConcurrency)
	go func() {
		if err := asynqServer.Run(consumer.Mux()); err != nil {
			logger.Error("event worker stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		asynqServer.Shutdown()
	}()

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Programs:   httpapi.NewProgramHandler(catalogSvc, logger),
		Locations:  httpapi.NewLocationHandler(catalogSvc, logger),
		Schedules:  httpapi.NewScheduleHandler(catalogSvc, logger),
		Exceptions: httpapi.NewExceptionHandler(catalogSvc, logger),
		Sessions:   httpapi.NewSessionHandler(readerSvc, logger),
		Bookings:   httpapi.NewBookingHandler(bookingSvc, repo, logger),
		Attendance: httpapi.NewAttendanceHandler(attendanceSvc, repo, logger),
		Middleware: []func(http.Handler) http.Handler{
			httpapi.RequestLogger(logger),
			httpapi.CORS,
			httpapi.DevClaimsMiddleware,
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("session-scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// migrationDir resolves the repository's migrations directory relative to
// this source file, mirroring testfixtures.NewStoreRepository's approach so
// the binary runs the same schema regardless of the process's working
// directory.
func migrationDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
