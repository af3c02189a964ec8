// v0
// internal/config/config_test.go
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProps(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.properties")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutProperties(t *testing.T) {
	t.Setenv("DASHBOARD_PROPERTIES_PATH", filepath.Join(t.TempDir(), "missing.properties"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != ":8090" || cfg.LoadDelay != 1500*time.Millisecond || cfg.LoadFailureRate != 0.1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.EventsEnabled || cfg.SeriesConsumerEnabled || cfg.MQTTEnabled {
		t.Fatalf("transports must default to disabled")
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "kafka:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadLayersPropertiesThenEnv(t *testing.T) {
	path := writeProps(t, strings.Join([]string{
		"# dashboard",
		"; legacy comment",
		"listen_address = :9000",
		"load_delay_ms=0",
		"load_failure_rate=0.5",
		"kafka_brokers=a:9092, b:9092",
		"events_enabled=true",
		"mqtt_qos=2",
		"viewport_width=1920",
		"log_level=debug",
		"cors_origins=http://localhost:3000, https://dash.example.com",
		"unknown_key=ignored",
	}, "\n"))
	t.Setenv("DASHBOARD_PROPERTIES_PATH", path)
	t.Setenv("DASHBOARD_LISTEN_ADDRESS", ":9100")
	t.Setenv("KAFKA_BROKERS", "x:1")
	t.Setenv("DASHBOARD_KAFKA_BROKERS", "y:1,z:1")
	t.Setenv("DASHBOARD_LOAD_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PropertiesPath != path {
		t.Fatalf("expected properties path recorded")
	}
	if cfg.ListenAddress != ":9100" {
		t.Fatalf("env must override properties, got %q", cfg.ListenAddress)
	}
	if cfg.LoadDelay != 0 || cfg.LoadFailureRate != 0.5 || cfg.LoadSeed != 42 {
		t.Fatalf("unexpected load settings %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "y:1" {
		t.Fatalf("expected dashboard brokers to win, got %v", cfg.KafkaBrokers)
	}
	if !cfg.EventsEnabled || cfg.MQTTQoS != 2 || cfg.ViewportWidth != 1920 {
		t.Fatalf("unexpected transport settings %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://dash.example.com" {
		t.Fatalf("unexpected http settings %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		props string
		env   map[string]string
	}{
		{name: "malformed line", props: "listen_address"},
		{name: "negative timeout", props: "http_read_timeout_ms=-1"},
		{name: "rate above one", props: "load_failure_rate=1.5"},
		{name: "bad qos", props: "mqtt_qos=3"},
		{name: "bad bool", props: "events_enabled=maybe"},
		{name: "bad log level", props: "log_level=loud"},
		{name: "empty topic env", env: map[string]string{"DASHBOARD_EVENTS_TOPIC": " "}},
		{name: "zero viewport env", env: map[string]string{"DASHBOARD_VIEWPORT_HEIGHT": "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DASHBOARD_PROPERTIES_PATH", writeProps(t, tc.props))
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
