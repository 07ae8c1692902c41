// internal/workers/resolution/classify-query/config.go
package classifyquery

import "time"

type Config struct {
	// Timeout bounds each model call. Time spent waiting on the user is not
	// counted.
	Timeout           time.Duration
	MaxClarifications int

	// Now resolves relative time references. Defaults to time.Now.
	Now func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		MaxClarifications: 3,
		Now:               time.Now,
	}
}
