package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), redact: true}, logs
}

func TestRedactsSecretsAndHashesUserIDs(t *testing.T) {
	log, logs := observed()
	log.Info("login", "api_key", "abc", "user_id", "u-1", "rubric", "Essay")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Fatalf("api_key: %v", fields["api_key"])
	}
	if uid, _ := fields["user_id"].(string); uid == "u-1" || len(uid) != len("hash:")+12 {
		t.Fatalf("user_id: %v", fields["user_id"])
	}
	if fields["rubric"] != "Essay" {
		t.Fatalf("rubric: %v", fields["rubric"])
	}
}

func TestRedactsJWTLookingValues(t *testing.T) {
	log, logs := observed()
	log.With("component", "test").Warn("x", "header", "aaaaaaaaaaaa.bbbbbbbbbbbb.cccc")
	if got := logs.All()[0].ContextMap()["header"]; got != "[REDACTED]" {
		t.Fatalf("header: %v", got)
	}
}

func TestWithoutRedaction(t *testing.T) {
	log, logs := observed()
	log.WithoutRedaction().Info("x", "password", "p")
	if got := logs.All()[0].ContextMap()["password"]; got != "p" {
		t.Fatalf("password: %v", got)
	}
}
