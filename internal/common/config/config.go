// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	APIs       APIsConfig              `mapstructure:"apis"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Resolution ResolutionConfig        `mapstructure:"resolution"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Metrics    MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	TTL     int         `mapstructure:"ttl"` // milliseconds
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the settings applicable to every resolution stage.
type WorkerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries int  `mapstructure:"max_retries"` // in-place provider retries
}

// ResolutionConfig bounds the resolution loop.
type ResolutionConfig struct {
	MaxAttempts          int    `mapstructure:"max_attempts"` // 0 means unbounded
	MaxClarifications    int    `mapstructure:"max_clarifications"`
	UncorroboratedPolicy string `mapstructure:"uncorroborated_policy"` // drop | flag
	MaxSources           int    `mapstructure:"max_sources"`
}

// --- External API Configuration ---

// APIsConfig holds settings for every external capability.
type APIsConfig struct {
	LLM struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Model       string  `mapstructure:"model"`
		Temperature float64 `mapstructure:"temperature"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"llm"`

	Tavily struct {
		BaseURL     string `mapstructure:"base_url"`
		APIKey      string `mapstructure:"api_key"`
		SearchDepth string `mapstructure:"search_depth"`
		MaxResults  int    `mapstructure:"max_results"`
		Timeout     int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"tavily"`

	Serper struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Num     int    `mapstructure:"num"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"serper"`

	Finance struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"finance"`

	Wikipedia struct {
		BaseURL  string `mapstructure:"base_url"`
		TopK     int    `mapstructure:"top_k"`
		MaxChars int    `mapstructure:"max_chars"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"wikipedia"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the ops HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
