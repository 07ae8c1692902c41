// internal/workers/resolution/encyclopedia-lookup/config.go
package encyclopedialookup

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
