package pkg

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAnonymize(t *testing.T) {
	in := "login leo@example.com token=eyJhbGciOi.abc.def password=hunter2 code=123456"
	out := Anonymize(in)
	for _, leaked := range []string{"leo@example.com", "eyJhbGciOi", "hunter2", "123456"} {
		if strings.Contains(out, leaked) {
			t.Errorf("%q leaked in %q", leaked, out)
		}
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false)
	l.Debug("x", "hidden")
	l.Error("outbox", "send to leo@example.com", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("debug should be suppressed, got %d lines", len(lines))
	}
	var entry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Level != ErrorLevel || entry.Module != "outbox" || entry.Error != "boom" {
		t.Fatalf("entry: %+v", entry)
	}
	if strings.Contains(entry.Message, "@") {
		t.Fatalf("email not redacted: %q", entry.Message)
	}

	var nilLogger *Logger
	nilLogger.Info("x", "no panic")
}
