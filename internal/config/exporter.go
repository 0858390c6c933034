// Package config resolves exporter settings from flags, environment and an optional file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/logging"
	"github.com/vshulcz/airgauge/internal/misc"
)

const (
	defaultAddress         = "0.0.0.0"
	defaultPort            = 8000
	defaultInterval        = 30
	defaultRateLimit       = 1
	defaultFetchTimeout    = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

type ExporterConfig struct {
	Address         string
	DSN             string
	TextfilePath    string
	LogLevel        string
	Sources         []domain.Source
	Port            int
	RateLimit       int
	Interval        time.Duration
	FetchTimeout    time.Duration
	ShutdownTimeout time.Duration
	HostMetrics     bool
}

// ListenAddr is Address and Port joined for net.Listen.
func (c ExporterConfig) ListenAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// urlList collects repeated -u flags; each value may itself be a comma list.
type urlList []string

func (u *urlList) String() string { return strings.Join(*u, ",") }

func (u *urlList) Set(s string) error {
	*u = append(*u, misc.SplitList(s)...)
	return nil
}

// ENV > CLI > config file > defaults
func LoadExporterConfig(args []string, out io.Writer) (ExporterConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("exporter", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		addrOpt, dsnOpt, fileOpt, levelOpt, timeoutOpt, cfgOpt string
		portOpt, ivalOpt, limitOpt                             int
		hostOpt                                                bool
		urls                                                   urlList
	)

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("Metrics server address, default: %s", defaultAddress))
	fs.IntVar(&portOpt, "p", -1, fmt.Sprintf("Metrics server port, default: %d", defaultPort))
	fs.Var(&urls, "u", "Awair air-data URL (repeatable or comma separated)")
	fs.IntVar(&ivalOpt, "i", -1, fmt.Sprintf("POLL_INTERVAL seconds, default: %d", defaultInterval))
	fs.IntVar(&limitOpt, "l", 0, fmt.Sprintf("RATE_LIMIT concurrent fetches, default: %d", defaultRateLimit))
	fs.StringVar(&timeoutOpt, "t", "", fmt.Sprintf("FETCH_TIMEOUT per request, default: %s", defaultFetchTimeout))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for the latest-reading mirror (postgres:// or sqlite file)")
	fs.StringVar(&fileOpt, "f", "", "TEXTFILE_PATH for the node_exporter textfile output")
	fs.BoolVar(&hostOpt, "host-metrics", false, "HOST_METRICS export host cpu and memory usage")
	fs.StringVar(&levelOpt, "log-level", "", fmt.Sprintf("LOG_LEVEL, default: %s", logging.DefaultLevel))
	fs.StringVar(&cfgOpt, "c", "", "CONFIG file (yaml, json or toml)")

	if err := fs.Parse(args); err != nil {
		return ExporterConfig{}, err
	}
	if fs.NArg() > 0 {
		return ExporterConfig{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	file, err := readFile(FromEnvOrFlag("CONFIG", cfgOpt, ""))
	if err != nil {
		return ExporterConfig{}, err
	}

	var errs []error

	addr := FromEnvOrFlag("ADDRESS", addrOpt, fileString(file, "ADDRESS"))
	if addr == "" {
		addr = defaultAddress
	}
	if net.ParseIP(addr) == nil {
		errs = append(errs, fmt.Errorf("invalid address: %q", addr))
	}

	portFlag := ""
	if portOpt != -1 {
		portFlag = strconv.Itoa(portOpt)
	}
	port := defaultPort
	if s := FromEnvOrFlag("PORT", portFlag, fileString(file, "PORT")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 65535 {
			errs = append(errs, fmt.Errorf("invalid port: %q", s))
		}
		port = n
	}

	rawURLs := misc.GetList("AIRDATA_URLS")
	if len(rawURLs) == 0 {
		rawURLs = urls
	}
	if len(rawURLs) == 0 {
		rawURLs = fileList(file, "AIRDATA_URLS")
	}
	sources, err := parseSources(rawURLs)
	if err != nil {
		errs = append(errs, err)
	}

	ivalFlag := ""
	if ivalOpt != -1 {
		ivalFlag = strconv.Itoa(ivalOpt)
	}
	interval := time.Duration(defaultInterval) * time.Second
	if s := FromEnvOrFlag("POLL_INTERVAL", ivalFlag, fileString(file, "POLL_INTERVAL")); s != "" {
		interval, err = positiveDuration("poll interval", s)
		if err != nil {
			errs = append(errs, err)
		}
	}

	limitFlag := ""
	if limitOpt != 0 {
		limitFlag = strconv.Itoa(limitOpt)
	}
	limit := defaultRateLimit
	if s := FromEnvOrFlag("RATE_LIMIT", limitFlag, fileString(file, "RATE_LIMIT")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("invalid rate limit: %q", s))
		}
		limit = n
	}

	timeout := defaultFetchTimeout
	if s := FromEnvOrFlag("FETCH_TIMEOUT", timeoutOpt, fileString(file, "FETCH_TIMEOUT")); s != "" {
		timeout, err = positiveDuration("fetch timeout", s)
		if err != nil {
			errs = append(errs, err)
		}
	}

	shutdown := defaultShutdownTimeout
	if s := FromEnvOrFlag("SHUTDOWN_TIMEOUT", "", fileString(file, "SHUTDOWN_TIMEOUT")); s != "" {
		shutdown, err = positiveDuration("shutdown timeout", s)
		if err != nil {
			errs = append(errs, err)
		}
	}

	level := FromEnvOrFlag("LOG_LEVEL", levelOpt, fileString(file, "LOG_LEVEL"))
	if level == "" {
		level = logging.DefaultLevel
	}
	if _, err := logging.ParseLevel(level); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return ExporterConfig{}, err
	}

	return ExporterConfig{
		Address:         addr,
		Port:            port,
		Sources:         sources,
		Interval:        interval,
		RateLimit:       limit,
		FetchTimeout:    timeout,
		ShutdownTimeout: shutdown,
		DSN:             FromEnvOrFlag("DATABASE_DSN", dsnOpt, fileString(file, "DATABASE_DSN")),
		TextfilePath:    FromEnvOrFlag("TEXTFILE_PATH", fileOpt, fileString(file, "TEXTFILE_PATH")),
		HostMetrics:     FromEnvOrFlagBool("HOST_METRICS", hostOpt, fileBool(file, "HOST_METRICS", false)),
		LogLevel:        strings.ToLower(level),
	}, nil
}

// parseSources validates every URL and drops duplicates, keeping the first occurrence.
func parseSources(raw []string) ([]domain.Source, error) {
	if len(raw) == 0 {
		return nil, domain.ErrNoSources
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.Source, 0, len(raw))
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid airdata url: %q", s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, domain.Source(s))
	}
	return out, nil
}

func positiveDuration(what, s string) (time.Duration, error) {
	d, err := parseSeconds(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", what, s)
	}
	return d, nil
}
