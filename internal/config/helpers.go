package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vshulcz/airgauge/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := misc.Getenv(envKey, ""); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagBool merges boolean values from ENV and flags (defaulting to def).
func FromEnvOrFlagBool(envKey string, flagVal, def bool) bool {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		return misc.GetBool(envKey, def)
	}
	if flagVal {
		return true
	}
	return def
}

// fileString reads key from the optional config file; the key is envKey lowercased.
func fileString(v *viper.Viper, envKey string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetString(strings.ToLower(envKey)))
}

func fileBool(v *viper.Viper, envKey string, def bool) bool {
	if v == nil || !v.IsSet(strings.ToLower(envKey)) {
		return def
	}
	return v.GetBool(strings.ToLower(envKey))
}

// fileList accepts both a YAML list and a comma separated string.
func fileList(v *viper.Viper, envKey string) []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, s := range v.GetStringSlice(strings.ToLower(envKey)) {
		out = append(out, misc.SplitList(s)...)
	}
	return out
}

// parseSeconds reads whole seconds ("30") or Go syntax ("1m30s").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// readFile loads an optional config file. An empty path yields a nil layer.
func readFile(path string) (*viper.Viper, error) {
	if path == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}
