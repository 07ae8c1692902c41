// internal/workers/resolution/financial-lookup/config.go
package financiallookup

import "time"

type Config struct {
	Timeout time.Duration

	// MaxTickerLength is the longest reply still read as a ticker symbol.
	MaxTickerLength int

	// Now supplies the date quoted in summaries. Defaults to time.Now.
	Now func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxTickerLength: 5,
	}
}
