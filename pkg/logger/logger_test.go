package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "forwarded", String("route", "markets"), Int("status", 200), Duration("took", 15*time.Millisecond))

	out := buf.String()
	for _, want := range []string{"msg=forwarded", "route=markets", "status=200", "took=15ms", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug record missing after level change: %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("forwarder").Error(context.Background(), "upstream failed", Error(errors.New("boom")))

	out := buf.String()
	if !strings.Contains(out, "component=forwarder") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error attribute, got %q", out)
	}
}

func TestLoggerFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "proxy.log")
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFile(path, 1, 1, 1)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "to file", Bool("signed", true))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) || !strings.Contains(string(data), `"signed":true`) {
		t.Errorf("unexpected file contents %q", data)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Errorf("console sink missed record: %q", buf.String())
	}
}
