package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Envs(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = l.Sync()
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}

	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFromContextOr(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core).With(zap.String("source", "fallback"))

	FromContextOr(context.Background(), fallback).Info("no request logger")

	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(reqCore).With(zap.String("request_id", "r-1")))
	FromContextOr(ctx, fallback).Info("with request logger")

	if logs.Len() != 1 || reqLogs.Len() != 1 {
		t.Fatalf("fallback entries = %d, request entries = %d", logs.Len(), reqLogs.Len())
	}
	if got := reqLogs.All()[0].ContextMap()["request_id"]; got != "r-1" {
		t.Errorf("request_id = %v", got)
	}
	if FromContextOr(context.Background(), nil) == nil {
		t.Error("expected a nop logger for nil fallback")
	}
}

func TestForIndex(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ForIndex(zap.New(core), "acme", "faq").Info("rebuilt")

	fields := logs.All()[0].ContextMap()
	if fields["client"] != "acme" || fields["category"] != "faq" {
		t.Errorf("fields = %v", fields)
	}
}
