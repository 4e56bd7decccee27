package diag

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEmitsThroughLoggerAndErrorf(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prevLogger, prevErrorf := Logger, Errorf
	defer func() { Logger, Errorf = prevLogger, prevErrorf }()

	Logger = zap.New(core)
	var gotMsg string
	Errorf = func(f string, args ...any) { gotMsg = f }

	Log("kernel compiled", zap.String("key", "x 1 +"))

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "kernel compiled" {
		t.Fatalf("Logger entries = %v, want one \"kernel compiled\" entry", entries)
	}
	if gotMsg != "%s" {
		t.Fatalf("Errorf format = %q, want %q", gotMsg, "%s")
	}
}

func TestLogNoopWhenUnset(t *testing.T) {
	prevLogger, prevErrorf := Logger, Errorf
	defer func() { Logger, Errorf = prevLogger, prevErrorf }()
	Logger, Errorf = nil, nil

	// must not panic with both hooks unset.
	Log("kernel compiled", zap.String("key", "x 1 +"))
}
