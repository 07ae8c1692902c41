// internal/workers/resolution/verify-answer/config.go
package verifyanswer

import "time"

// Policy decides what happens to a candidate the searches do not support.
type Policy string

const (
	PolicyDrop Policy = "drop"
	PolicyFlag Policy = "flag"
)

type Config struct {
	Timeout       time.Duration
	SearchTimeout time.Duration
	MaxSources    int
	SnippetCount  int
	Policy        Policy
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		SearchTimeout: 15 * time.Second,
		MaxSources:    5,
		SnippetCount:  3,
		Policy:        PolicyDrop,
	}
}
