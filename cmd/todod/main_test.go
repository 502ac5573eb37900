package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/todo/internal/config"
	"github.com/felixgeelhaar/todo/internal/events"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriteTimeout(t *testing.T) {
	if got := writeTimeout(30 * time.Second); got != 35*time.Second {
		t.Errorf("writeTimeout(30s) = %v; want 35s", got)
	}
	if got := writeTimeout(0); got != time.Minute {
		t.Errorf("writeTimeout(0) = %v; want 1m", got)
	}
}

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	logger := slog.New(&multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}}).With("component", "test")

	logger.Debug("only debug")
	logger.Info("both")

	if strings.Contains(info.String(), "only debug") {
		t.Error("info handler received a debug record")
	}
	if !strings.Contains(info.String(), "component=test") {
		t.Errorf("info output missing attrs: %q", info.String())
	}
	if !strings.Contains(debug.String(), "only debug") || !strings.Contains(debug.String(), `"msg":"both"`) {
		t.Errorf("debug output = %q", debug.String())
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("multiHandler should be enabled when any handler is")
	}
}

func TestSetupEvents_Disabled(t *testing.T) {
	publisher, closeFn, err := setupEvents(config.EventsConfig{})
	if err != nil {
		t.Fatalf("setupEvents() error = %v", err)
	}
	defer closeFn()

	if _, ok := publisher.(events.NopPublisher); !ok {
		t.Errorf("publisher = %T; want NopPublisher", publisher)
	}
}
