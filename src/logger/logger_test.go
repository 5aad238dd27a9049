package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestConsoleLoggerLevels(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := NewLogrusLogger(base)
	if err := log.SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel() error: %v", err)
	}

	log.Info("[Test] hidden %d", 1)
	log.Warn("[Test] slow detector %s", "AptFailure")
	log.Error("[Test] failed: %v", "boom")

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, expected 2", len(entries))
	}
	if entries[0].Level != logrus.WarnLevel || entries[0].Message != "[Test] slow detector AptFailure" {
		t.Errorf("first entry = %v %q", entries[0].Level, entries[0].Message)
	}
	if entries[1].Level != logrus.ErrorLevel {
		t.Errorf("second entry level = %v, expected error", entries[1].Level)
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	log := NewConsoleLogger()
	if err := log.SetLevel("chatty"); err == nil {
		t.Error("SetLevel(chatty) expected error, got nil")
	}
}

func TestSilentLoggerImplementsLogger(t *testing.T) {
	var l Logger = NewSilentLogger()
	l.Info("nothing")
	l.Warn("nothing")
	l.Error("nothing")
	l.Debug("nothing")
}
