package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitAddsAppField(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput("prezence-test", "debug", &buf)

	Logger.WithField("unit", 7).Debug("presence toggled")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["app"] != "prezence-test" {
		t.Errorf("expected app field, got %v", entry["app"])
	}
	if entry["msg"] != "presence toggled" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["unit"] != float64(7) {
		t.Errorf("expected unit field, got %v", entry["unit"])
	}
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput("prezence-test", "loud", &buf)

	if Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %v", Logger.GetLevel())
	}
	if !bytes.Contains(buf.Bytes(), []byte("invalid LOG_LEVEL")) {
		t.Errorf("expected warning about level, got %q", buf.String())
	}
}
