// internal/workers/resolution/resolution-loop/config.go
package resolutionloop

type Config struct {
	// MaxAttempts bounds escalations per resolution. Zero means unbounded.
	MaxAttempts int
}

func LoadConfig() *Config {
	return &Config{
		MaxAttempts: 3,
	}
}
