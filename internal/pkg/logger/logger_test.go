package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("cart updated", "session_id", "abc", "count", 3)
	log.WithField("component", "sweeper").Warn("slow sweep")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if entries[0].Message != "cart updated" || first["session_id"] != "abc" || first["count"] != int64(3) {
		t.Fatalf("unexpected first entry: %s %+v", entries[0].Message, first)
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["component"] != "sweeper" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
