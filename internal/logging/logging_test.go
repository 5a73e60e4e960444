package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToRotatingFile(t *testing.T) {
	defer log.SetOutput(os.Stdout)
	defer log.SetLevel(log.InfoLevel)

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	closer, err := Setup(Options{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	log.WithField("component", "test").Debug("hello from test")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log file missing message: %q", data)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(Options{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
