package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a config duration, falling back to
// defaultValue when the configured value is empty. Timeouts and backoff
// windows are kept as strings in Config so koanf layering stays uniform;
// components parse them here at init.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}
