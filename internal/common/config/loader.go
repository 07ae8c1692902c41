// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Stage task types, used as keys of the workers section.
const (
	StageClassifyQuery      = "classify-query"
	StageRouteQuery         = "route-query"
	StageFinancialLookup    = "financial-lookup"
	StageEncyclopediaLookup = "encyclopedia-lookup"
	StageEvaluateAnswer     = "evaluate-answer"
	StageVerifyAnswer       = "verify-answer"
	StageResolutionLoop     = "resolution-loop"
)

// DefaultMaxAttempts applies when resolution.max_attempts is not set.
const DefaultMaxAttempts = 3

// EnvFileUsed records which .env file was loaded, empty if none.
var EnvFileUsed string

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	// An explicit 0 still disables the bound.
	v.SetDefault("resolution.max_attempts", DefaultMaxAttempts)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				EnvFileUsed = path
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the provider's conventional env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.LLM.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.APIs.LLM.BaseURL, "OPENAI_BASE_URL")
	setIfEmpty(&cfg.APIs.Tavily.APIKey, "TAVILY_API_KEY")
	setIfEmpty(&cfg.APIs.Serper.APIKey, "SERPER_API_KEY")
	setIfEmpty(&cfg.Cache.Redis.Address, "REDIS_ADDRESS")
	setIfEmpty(&cfg.Cache.Redis.Password, "REDIS_PASSWORD")
}

func setIfEmpty(field *string, envVar string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envVar); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "company-assistant"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.APIs.LLM.BaseURL == "" {
		cfg.APIs.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIs.LLM.Model == "" {
		cfg.APIs.LLM.Model = "gpt-4o-mini"
	}
	if cfg.APIs.LLM.Timeout == 0 {
		cfg.APIs.LLM.Timeout = 30000
	}

	if cfg.APIs.Tavily.BaseURL == "" {
		cfg.APIs.Tavily.BaseURL = "https://api.tavily.com"
	}
	if cfg.APIs.Tavily.SearchDepth == "" {
		cfg.APIs.Tavily.SearchDepth = "advanced"
	}
	if cfg.APIs.Tavily.MaxResults == 0 {
		cfg.APIs.Tavily.MaxResults = 5
	}
	if cfg.APIs.Tavily.Timeout == 0 {
		cfg.APIs.Tavily.Timeout = 10000
	}

	if cfg.APIs.Serper.BaseURL == "" {
		cfg.APIs.Serper.BaseURL = "https://google.serper.dev"
	}
	if cfg.APIs.Serper.Num == 0 {
		cfg.APIs.Serper.Num = 10
	}
	if cfg.APIs.Serper.Timeout == 0 {
		cfg.APIs.Serper.Timeout = 10000
	}

	if cfg.APIs.Finance.BaseURL == "" {
		cfg.APIs.Finance.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.APIs.Finance.Timeout == 0 {
		cfg.APIs.Finance.Timeout = 10000
	}

	if cfg.APIs.Wikipedia.BaseURL == "" {
		cfg.APIs.Wikipedia.BaseURL = "https://en.wikipedia.org"
	}
	if cfg.APIs.Wikipedia.TopK == 0 {
		cfg.APIs.Wikipedia.TopK = 5
	}
	if cfg.APIs.Wikipedia.MaxChars == 0 {
		cfg.APIs.Wikipedia.MaxChars = 5000
	}
	if cfg.APIs.Wikipedia.Timeout == 0 {
		cfg.APIs.Wikipedia.Timeout = 10000
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 600000
	}

	if cfg.Resolution.MaxAttempts < 0 {
		cfg.Resolution.MaxAttempts = 0
	}
	if cfg.Resolution.MaxClarifications == 0 {
		cfg.Resolution.MaxClarifications = 3
	}
	if cfg.Resolution.UncorroboratedPolicy == "" {
		cfg.Resolution.UncorroboratedPolicy = "drop"
	}
	if cfg.Resolution.MaxSources == 0 {
		cfg.Resolution.MaxSources = 5
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, worker := range cfg.Workers {
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 2
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields and names every
// missing secret at once.
func validateConfig(cfg *Config) error {
	var missing []string
	if cfg.APIs.LLM.APIKey == "" {
		missing = append(missing, "apis.llm.api_key (OPENAI_API_KEY)")
	}
	if cfg.APIs.Tavily.APIKey == "" {
		missing = append(missing, "apis.tavily.api_key (TAVILY_API_KEY)")
	}
	if cfg.APIs.Serper.APIKey == "" {
		missing = append(missing, "apis.serper.api_key (SERPER_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if cfg.Cache.Enabled && cfg.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required when cache.enabled is true")
	}

	switch cfg.Resolution.UncorroboratedPolicy {
	case "drop", "flag":
	default:
		return fmt.Errorf("resolution.uncorroborated_policy must be drop or flag, got %q", cfg.Resolution.UncorroboratedPolicy)
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves stage-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, stage string) WorkerConfig {
	if worker, exists := cfg.Workers[stage]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:    true,
		Timeout:    30000,
		MaxRetries: 2,
	}
}
