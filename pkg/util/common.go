// Package util provides utility functions for the application.
package util

import "go.uber.org/zap"

// na returns "N/A" if the input string is empty, otherwise it returns the input string.
func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// BuildFields returns the build version, date and commit as log fields.
func BuildFields(buildVersion, buildDate, buildCommit string) []zap.Field {
	return []zap.Field{
		zap.String("version", na(buildVersion)),
		zap.String("date", na(buildDate)),
		zap.String("commit", na(buildCommit)),
	}
}
