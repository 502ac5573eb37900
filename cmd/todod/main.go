package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/todo/internal/api"
	"github.com/felixgeelhaar/todo/internal/config"
	"github.com/felixgeelhaar/todo/internal/events"
	"github.com/felixgeelhaar/todo/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file (default: $TODO_CONFIG)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logging
	logFile, err := setupLogging(cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage
	backend, err := storage.Open(ctx, storage.OptionsFromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	// Domain events
	publisher, closeEvents, err := setupEvents(cfg.Events)
	if err != nil {
		backend.Close()
		return fmt.Errorf("setup events: %w", err)
	}
	defer closeEvents()

	app, err := api.NewApp(ctx, api.AppConfig{
		Config:  cfg,
		Backend: backend,
		Events:  publisher,
	})
	if err != nil {
		backend.Close()
		return fmt.Errorf("create app: %w", err)
	}
	defer app.Close()

	handler, err := api.NewRouter(app)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(cfg.RequestTimeout()),
		IdleTimeout:       2 * time.Minute,
	}

	// Expired session cleanup
	go app.Sweeper().Run(ctx)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	slog.Info("todod starting",
		"version", Version,
		"addr", server.Addr,
		"driver", backend.Driver(),
		"debug", cfg.Server.Debug,
	)

	// Start server
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// setupEvents connects to RabbitMQ when configured. Without a URL events
// are dropped.
func setupEvents(cfg config.EventsConfig) (events.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		slog.Info("event publishing disabled")
		return events.NopPublisher{}, func() {}, nil
	}

	conn, err := events.NewConnection(cfg.RabbitMQURL, cfg.Exchange)
	if err != nil {
		return nil, nil, err
	}
	publisher := events.NewBreakerPublisher(events.NewAMQPPublisher(conn), events.BreakerConfig{})

	closeFn := func() {
		if err := conn.Close(); err != nil {
			slog.Warn("close event connection", "error", err)
		}
	}
	return publisher, closeFn, nil
}

// writeTimeout leaves handlers time to write their timeout response.
func writeTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return time.Minute
	}
	return requestTimeout + 5*time.Second
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// setupLogging installs the default logger. With a log file configured,
// records go to stderr and, as JSON, to the file.
func setupLogging(cfg config.LogConfig) (*os.File, error) {
	level := parseLogLevel(cfg.Level)
	stderr := newHandler(os.Stderr, cfg.Format, level)

	if cfg.File == "" {
		slog.SetDefault(slog.New(stderr))
		return nil, nil
	}

	logFile, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	slog.SetDefault(slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			stderr,
		},
	}))

	return logFile, nil
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
