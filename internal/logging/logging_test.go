package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"
	logger := newWithConsole(cfg, &buf)

	logger.Info().Msg("hidden")
	LogFetchFailure(logger, "AAPL", "yahoo", errors.New("timeout"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "AAPL") || !strings.Contains(out, "timeout") {
		t.Errorf("expected fetch failure fields, got %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scan.log")
	cfg := Config{Level: "info", File: true, FilePath: path, MaxSizeMB: 1}
	logger := WithComponent(New(cfg), "scanner")

	logger.Info().Msg("written")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"scanner"`) {
		t.Errorf("expected JSON line with component, got %q", data)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithContext(context.Background(), WithSymbol(logger, "NVDA"))

	l := FromContext(ctx)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"symbol":"NVDA"`) {
		t.Errorf("expected symbol field, got %q", buf.String())
	}

	// No logger stored: the no-op logger must not panic.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}
