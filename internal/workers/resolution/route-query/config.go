// internal/workers/resolution/route-query/config.go
package routequery

import "time"

type Config struct {
	// Timeout bounds the selected primary handler, including its provider calls.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
