package main

import (
	"testing"
	"time"

	"itspace/internal/api"
	"itspace/internal/server"
)

func TestResolveStorageDriver(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "postgres://example")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "postgres" {
		t.Fatalf("expected DSN to imply postgres driver, got %q", driver)
	}

	driver, err = resolveStorageDriver("", "", "")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "json" {
		t.Fatalf("expected json default, got %q", driver)
	}

	driver, err = resolveStorageDriver("JSON", "postgres", "postgres://example")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "json" {
		t.Fatalf("expected flag to win over env, got %q", driver)
	}
}

func TestValidateProductionDatastore(t *testing.T) {
	if err := validateProductionDatastore("json", ""); err == nil {
		t.Fatal("expected json driver to be rejected in production")
	}
	if err := validateProductionDatastore("postgres", ""); err == nil {
		t.Fatal("expected empty DSN to be rejected in production")
	}
	if err := validateProductionDatastore("postgres", "postgres://example"); err != nil {
		t.Fatalf("expected postgres with DSN to pass, got %v", err)
	}
}

func TestResolveSessionStoreConfig(t *testing.T) {
	cfg, err := resolveSessionStoreConfig("", "", "json", "", "", "")
	if err != nil {
		t.Fatalf("resolveSessionStoreConfig returned error: %v", err)
	}
	if cfg.Driver != "memory" {
		t.Fatalf("expected memory default for json storage, got %q", cfg.Driver)
	}

	cfg, err = resolveSessionStoreConfig("", "", "postgres", "postgres://storage", "", "")
	if err != nil {
		t.Fatalf("resolveSessionStoreConfig returned error: %v", err)
	}
	if cfg.Driver != "postgres" || cfg.DSN != "postgres://storage" {
		t.Fatalf("expected postgres sessions to reuse storage DSN, got %+v", cfg)
	}

	cfg, err = resolveSessionStoreConfig("", "", "json", "", "postgres://sessions", "")
	if err != nil {
		t.Fatalf("resolveSessionStoreConfig returned error: %v", err)
	}
	if cfg.Driver != "postgres" || cfg.DSN != "postgres://sessions" {
		t.Fatalf("expected explicit session DSN to select postgres, got %+v", cfg)
	}

	if _, err := resolveSessionStoreConfig("postgres", "", "json", "", "", ""); err == nil {
		t.Fatal("expected postgres sessions without DSN to error")
	}

	if _, err := resolveSessionStoreConfig("bolt", "", "json", "", "", ""); err == nil {
		t.Fatal("expected unsupported driver to error")
	}
}

func TestResolveSessionCookieSecureMode(t *testing.T) {
	if mode := resolveSessionCookieSecureMode("production"); mode != api.SessionCookieSecureAlways {
		t.Fatalf("expected production mode to force secure cookies, got %v", mode)
	}
	if mode := resolveSessionCookieSecureMode("development"); mode != api.SessionCookieSecureAuto {
		t.Fatalf("expected development mode to keep auto secure cookies, got %v", mode)
	}
	if mode := resolveSessionCookieSecureMode(" "); mode != api.SessionCookieSecureAuto {
		t.Fatalf("expected empty mode to keep auto secure cookies, got %v", mode)
	}
}

func TestResolveListenAddr(t *testing.T) {
	if addr := resolveListenAddr(":9000", "development", ":7000"); addr != ":9000" {
		t.Fatalf("expected flag to win, got %q", addr)
	}
	if addr := resolveListenAddr("", "development", ":7000"); addr != ":7000" {
		t.Fatalf("expected env fallback, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ""); addr != ":80" {
		t.Fatalf("expected production default :80, got %q", addr)
	}
	if addr := resolveListenAddr("", "development", ""); addr != ":8080" {
		t.Fatalf("expected development default :8080, got %q", addr)
	}
}

func TestStartupSummaryArgs(t *testing.T) {
	rate := server.RateLimitConfig{
		LoginLimit:  5,
		LoginWindow: time.Minute,
		RedisAddr:   "localhost:6379",
	}
	mapped := summaryArgsToMap(t, startupSummaryArgs(":8080", "development", "json", "memory", rate, false))

	if mapped["addr"] != ":8080" {
		t.Fatalf("expected addr in summary, got %v", mapped["addr"])
	}
	datastore := mappedValueAsMap(t, mapped, "datastore")
	if datastore["driver"] != "json" {
		t.Fatalf("expected json datastore driver, got %v", datastore["driver"])
	}
	login := mappedValueAsMap(t, mapped, "login_throttle")
	if login["driver"] != "redis" {
		t.Fatalf("expected redis login throttle driver, got %v", login["driver"])
	}
	tlsSummary := mappedValueAsMap(t, mapped, "tls")
	if tlsSummary["enabled"] != false {
		t.Fatalf("expected tls disabled, got %v", tlsSummary["enabled"])
	}
}

func TestSplitAndTrim(t *testing.T) {
	origins := splitAndTrim(" https://app.example.com , ,https://admin.example.com ")
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %v", origins)
	}
	if origins[0] != "https://app.example.com" || origins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", origins)
	}
	if splitAndTrim("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func summaryArgsToMap(t *testing.T, args []any) map[string]any {
	t.Helper()
	if len(args)%2 != 0 {
		t.Fatalf("summary args must be key/value pairs, got %d values", len(args))
	}
	mapped := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			t.Fatalf("summary key at position %d was not a string", i)
		}
		mapped[key] = args[i+1]
	}
	return mapped
}

func mappedValueAsMap(t *testing.T, mapped map[string]any, key string) map[string]any {
	t.Helper()
	value, ok := mapped[key]
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	inner, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("value for %q was not a map, got %T", key, value)
	}
	return inner
}
