package misc

import (
	"os"
	"strings"
)

// Getenv returns the value of key or def when it is unset or empty.
func Getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// GetBool understands 1/0, true/false, t/f, yes/no, y/n.
func GetBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "t", "yes", "y":
		return true
	case "0", "false", "f", "no", "n":
		return false
	default:
		return def
	}
}

// GetList splits a comma separated variable, dropping blanks. Unset yields nil.
func GetList(key string) []string {
	return SplitList(os.Getenv(key))
}

// SplitList splits s on commas and trims every element, dropping empty ones.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
