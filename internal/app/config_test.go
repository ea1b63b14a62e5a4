package app

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/books")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AppAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.AppAddr)
	}
	if cfg.ReportCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.ReportCacheTTL)
	}
	chart := cfg.Chart()
	if chart.BankCodePrefix != "090" || chart.ReceivableCode != "610" || chart.PayableCode != "800" || chart.RetainedEarningsCode != "960" {
		t.Fatalf("unexpected chart %+v", chart)
	}
	if cfg.IsProduction() {
		t.Fatal("development config reported as production")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REPORT_CACHE_TTL", "0s")
	t.Setenv("CHART_RECEIVABLE_CODE", " 1200 ")
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if cfg.ReportCacheTTL != 0 {
		t.Fatalf("expected cache disabled, got %s", cfg.ReportCacheTTL)
	}
	if got := cfg.Chart().ReceivableCode; got != "1200" {
		t.Fatalf("expected trimmed code, got %q", got)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Config{
		PGDSN:             "postgres://x",
		AppRequestTimeout: time.Second,
		ReportCacheTTL:    -time.Second,
		LogLevel:          "loud",
		ChartBankPrefix:   "090",
		WarmupCron:        "",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"REPORT_CACHE_TTL", "loud", "CHART_PAYABLE_CODE", "WARMUP_CRON"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warning": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("expected test mode")
	}
	t.Setenv(TestModeEnv, "false")
	RefreshTestMode()
	if InTestMode() {
		t.Fatal("expected test mode off")
	}
}
