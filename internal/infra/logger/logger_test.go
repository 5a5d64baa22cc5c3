package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"use_of_force/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

func TestConfigureProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	logger.Configure(l, &buf, "debug", true)

	l.WithField("statement_id", 7).Debug("Processed statement")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Processed statement" || entry["statement_id"] != float64(7) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestConfigureFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	logger.Configure(l, &buf, "chatty", false)

	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", l.GetLevel())
	}
	if !strings.Contains(buf.String(), "Invalid log level") {
		t.Fatalf("expected a warning about the level, got %q", buf.String())
	}
}
