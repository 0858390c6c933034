package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/vshulcz/airgauge/internal/domain"
)

var exporterEnv = []string{
	"ADDRESS", "PORT", "AIRDATA_URLS", "POLL_INTERVAL", "RATE_LIMIT", "FETCH_TIMEOUT",
	"SHUTDOWN_TIMEOUT", "DATABASE_DSN", "TEXTFILE_PATH", "HOST_METRICS", "LOG_LEVEL", "CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range exporterEnv {
		t.Setenv(k, "")
	}
}

func TestLoadExporterConfig(t *testing.T) {
	tests := []struct {
		env     map[string]string
		name    string
		wantErr string
		args    []string
		want    ExporterConfig
	}{
		{
			name: "defaults with one url",
			args: []string{"-u", "http://10.0.0.5/air-data/latest"},
			want: ExporterConfig{
				Address:         defaultAddress,
				Port:            defaultPort,
				Sources:         []domain.Source{"http://10.0.0.5/air-data/latest"},
				Interval:        30 * time.Second,
				RateLimit:       1,
				FetchTimeout:    defaultFetchTimeout,
				ShutdownTimeout: defaultShutdownTimeout,
				LogLevel:        "info",
			},
		},
		{
			name: "flags",
			args: []string{
				"-a", "127.0.0.1", "-p", "9101", "-u", "http://a/x", "-u", "http://b/x,http://c/x",
				"-i", "5", "-l", "3", "-t", "2s", "-d", "file:mirror.db", "-f", "/tmp/awair.prom",
				"-host-metrics", "-log-level", "DEBUG",
			},
			want: ExporterConfig{
				Address:         "127.0.0.1",
				Port:            9101,
				Sources:         []domain.Source{"http://a/x", "http://b/x", "http://c/x"},
				Interval:        5 * time.Second,
				RateLimit:       3,
				FetchTimeout:    2 * time.Second,
				ShutdownTimeout: defaultShutdownTimeout,
				DSN:             "file:mirror.db",
				TextfilePath:    "/tmp/awair.prom",
				HostMetrics:     true,
				LogLevel:        "debug",
			},
		},
		{
			name: "env overrides flags",
			args: []string{"-a", "127.0.0.1", "-p", "9101", "-u", "http://flag/x", "-i", "5"},
			env: map[string]string{
				"ADDRESS":          "::1",
				"PORT":             "9200",
				"AIRDATA_URLS":     "https://env-a/x, https://env-b/x",
				"POLL_INTERVAL":    "1m",
				"SHUTDOWN_TIMEOUT": "3",
				"HOST_METRICS":     "yes",
			},
			want: ExporterConfig{
				Address:         "::1",
				Port:            9200,
				Sources:         []domain.Source{"https://env-a/x", "https://env-b/x"},
				Interval:        time.Minute,
				RateLimit:       1,
				FetchTimeout:    defaultFetchTimeout,
				ShutdownTimeout: 3 * time.Second,
				HostMetrics:     true,
				LogLevel:        "info",
			},
		},
		{
			name: "duplicate urls collapse",
			args: []string{"-u", "http://a/x", "-u", "http://a/x"},
			want: ExporterConfig{
				Address:         defaultAddress,
				Port:            defaultPort,
				Sources:         []domain.Source{"http://a/x"},
				Interval:        30 * time.Second,
				RateLimit:       1,
				FetchTimeout:    defaultFetchTimeout,
				ShutdownTimeout: defaultShutdownTimeout,
				LogLevel:        "info",
			},
		},
		{name: "no urls", args: []string{}, wantErr: domain.ErrNoSources.Error()},
		{name: "bad scheme", args: []string{"-u", "ftp://a/x"}, wantErr: "invalid airdata url"},
		{name: "url without host", args: []string{"-u", "http:///x"}, wantErr: "invalid airdata url"},
		{name: "port zero", args: []string{"-u", "http://a/x", "-p", "0"}, wantErr: "invalid port"},
		{name: "port too big", args: []string{"-u", "http://a/x"}, env: map[string]string{"PORT": "70000"}, wantErr: "invalid port"},
		{name: "hostname address", args: []string{"-u", "http://a/x", "-a", "localhost"}, wantErr: "invalid address"},
		{name: "zero interval", args: []string{"-u", "http://a/x", "-i", "0"}, wantErr: "poll interval must be positive"},
		{name: "garbage interval", args: []string{"-u", "http://a/x"}, env: map[string]string{"POLL_INTERVAL": "often"}, wantErr: "poll interval"},
		{name: "bad rate limit", args: []string{"-u", "http://a/x", "-l", "-2"}, wantErr: "invalid rate limit"},
		{name: "bad log level", args: []string{"-u", "http://a/x", "-log-level", "chatty"}, wantErr: "invalid log level"},
		{name: "unknown flag", args: []string{"-z"}, wantErr: "flag provided but not defined"},
		{name: "positional args", args: []string{"-u", "http://a/x", "extra"}, wantErr: "unexpected arguments"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			got, err := LoadExporterConfig(tc.args, nil)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !slices.Equal(got.Sources, tc.want.Sources) {
				t.Fatalf("Sources = %v, want %v", got.Sources, tc.want.Sources)
			}
			got.Sources, tc.want.Sources = nil, nil
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestLoadExporterConfig_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	_, err := LoadExporterConfig([]string{"-p", "0", "-log-level", "chatty"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrNoSources) {
		t.Fatalf("errors.Is(%v, ErrNoSources) = false", err)
	}
	for _, sub := range []string{"invalid port", "invalid log level"} {
		if !strings.Contains(err.Error(), sub) {
			t.Fatalf("error %q does not mention %q", err, sub)
		}
	}
}

func TestLoadExporterConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "airgauge.yaml")
	body := strings.Join([]string{
		"address: 127.0.0.1",
		"port: 9300",
		"airdata_urls: http://file-a/x,http://file-b/x",
		"poll_interval: 10s",
		"rate_limit: 2",
		"textfile_path: /var/lib/node_exporter/awair.prom",
		"log_level: warn",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RATE_LIMIT", "4")

	got, err := LoadExporterConfig([]string{"-c", path, "-p", "9400"}, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Address != "127.0.0.1" || got.Port != 9400 || got.Interval != 10*time.Second {
		t.Fatalf("file values not applied under flags: %+v", got)
	}
	if got.RateLimit != 4 {
		t.Fatalf("RateLimit = %d, want env value 4", got.RateLimit)
	}
	if got.TextfilePath != "/var/lib/node_exporter/awair.prom" || got.LogLevel != "warn" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Sources) != 2 || got.Sources[1] != "http://file-b/x" {
		t.Fatalf("Sources = %v", got.Sources)
	}
	if got.ListenAddr() != "127.0.0.1:9400" {
		t.Fatalf("ListenAddr = %q", got.ListenAddr())
	}
}

func TestLoadExporterConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := LoadExporterConfig([]string{"-u", "http://a/x"}, nil); err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("err = %v, want read config error", err)
	}
}

func TestExporterConfig_ListenAddrIPv6(t *testing.T) {
	c := ExporterConfig{Address: "::", Port: 8000}
	if got := c.ListenAddr(); got != "[::]:8000" {
		t.Fatalf("got %q, want [::]:8000", got)
	}
}
