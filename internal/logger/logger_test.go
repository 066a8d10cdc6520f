package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestPrettyFormatterLayout(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&PrettyFormatter{DisableColors: true})

	log.WithFields(logrus.Fields{"peer": "127.0.0.1:7777", "bytes": 2}).Warn("send dropped")

	line := strings.TrimSpace(buf.String())
	fields := strings.Fields(line)
	if len(fields) != 6 {
		t.Fatalf("expected 6 fields, got %d: %q", len(fields), line)
	}
	if fields[1] != "WARN" {
		t.Errorf("expected level WARN, got %q", fields[1])
	}
	// keys are sorted so output is stable
	if fields[4] != "bytes=2" || fields[5] != "peer=127.0.0.1:7777" {
		t.Errorf("unexpected fields: %q", fields[4:])
	}
}

func TestPrettyFormatterColors(t *testing.T) {
	f := &PrettyFormatter{}
	out, err := f.Format(&logrus.Entry{Level: logrus.ErrorLevel, Message: "boom", Data: logrus.Fields{}})
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(string(out), colorRed+"ERROR") {
		t.Errorf("expected red ERROR level, got %q", out)
	}
}

func TestPionFactoryScope(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&PrettyFormatter{DisableColors: true})

	PionFactory{Logger: log}.NewLogger("sctp").Infof("association %d up", 7)

	if !strings.Contains(buf.String(), "association 7 up") {
		t.Errorf("missing message: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "scope=sctp") {
		t.Errorf("missing scope field: %q", buf.String())
	}
}
