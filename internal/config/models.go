package config

import (
	"os"
	"strings"
	"time"
)

// Providers and plugins accepted by Validate
var (
	ValidProviders = []string{"openai", "anthropic", "ollama"}
	ValidPlugins   = []string{PluginClinicalTrials, PluginNone}
)

const (
	PluginClinicalTrials = "clinical_trials"
	PluginNone           = "none"

	DefaultTrialsBaseURL = "https://clinicaltrials.gov/api/v2"
)

// Config is the complete application configuration
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Trials     TrialsConfig     `mapstructure:"trials" yaml:"trials"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
	Transcript TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider    string      `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama
	Model       string      `mapstructure:"model" yaml:"model"`
	APIKey      string      `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string      `mapstructure:"base_url" yaml:"base_url,omitempty"` // Optional, for compatible APIs
	Timeout     int         `mapstructure:"timeout" yaml:"timeout"`             // Timeout in seconds
	MaxTokens   int         `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64     `mapstructure:"temperature" yaml:"temperature"`
	Retry       RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// TrialsConfig holds clinicaltrials.gov API configuration
type TrialsConfig struct {
	BaseURL string      `mapstructure:"base_url" yaml:"base_url"`
	Timeout int         `mapstructure:"timeout" yaml:"timeout"` // Timeout in seconds
	Retry   RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig holds HTTP retry configuration
type RetryConfig struct {
	MaxAttempts       int `mapstructure:"max_attempts" yaml:"max_attempts"`                 // Default: 1 (no retries)
	Multiplier        int `mapstructure:"multiplier" yaml:"multiplier"`                     // Default: 1
	MaxWaitPerAttempt int `mapstructure:"max_wait_per_attempt" yaml:"max_wait_per_attempt"` // Default: 30 seconds
	MaxTotalWait      int `mapstructure:"max_total_wait" yaml:"max_total_wait"`             // Default: 120 seconds
}

// SessionConfig holds conversation behaviour
type SessionConfig struct {
	Plugin         string `mapstructure:"plugin" yaml:"plugin"` // clinical_trials, none
	MaxRounds      int    `mapstructure:"max_rounds" yaml:"max_rounds"`
	Greeting       string `mapstructure:"greeting" yaml:"greeting"`
	PromptsDir     string `mapstructure:"prompts_dir" yaml:"prompts_dir,omitempty"`
	CSVDir         string `mapstructure:"csv_dir" yaml:"csv_dir,omitempty"`
	MaxResultChars int    `mapstructure:"max_result_chars" yaml:"max_result_chars"` // 0 = unlimited
	Stream         bool   `mapstructure:"stream" yaml:"stream"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	LogDir       string `mapstructure:"log_dir" yaml:"log_dir"`
	FileLevel    string `mapstructure:"file_level" yaml:"file_level"`       // debug, info, warn, error
	ConsoleLevel string `mapstructure:"console_level" yaml:"console_level"` // debug, info, warn, error
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"` // empty disables the listener
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint,omitempty"`
	Insecure     bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// TranscriptConfig holds the SQLite transcript archive configuration
type TranscriptConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"` // empty disables archiving
}

// GetTimeout returns the timeout as a time.Duration
func (c *LLMConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 180 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetMaxTokens returns the max tokens with a default
func (c *LLMConfig) GetMaxTokens() int {
	if c.MaxTokens <= 0 {
		return 4096
	}
	return c.MaxTokens
}

// RequiresAPIKey reports whether the provider needs a credential
func (c *LLMConfig) RequiresAPIKey() bool {
	return RequiresAPIKeyFor(c.Provider)
}

// RequiresAPIKeyFor reports whether provider needs a credential
func RequiresAPIKeyFor(provider string) bool {
	return !strings.EqualFold(provider, "ollama")
}

// CredentialEnvVars lists the environment variables consulted for the API key,
// in lookup order
func (c *LLMConfig) CredentialEnvVars() []string {
	vars := []string{"TRIALCHAT_LLM_API_KEY"}
	switch strings.ToLower(c.Provider) {
	case "openai":
		vars = append(vars, "OPENAI_API_KEY")
	case "anthropic":
		vars = append(vars, "ANTHROPIC_API_KEY")
	}
	return vars
}

// HasCredential reports whether a turn may be started
func (c *LLMConfig) HasCredential() bool {
	return !c.RequiresAPIKey() || strings.TrimSpace(c.APIKey) != ""
}

// GetTimeout returns the timeout as a time.Duration
func (c *TrialsConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetMaxRounds returns the function-call round cap with a default
func (c *SessionConfig) GetMaxRounds() int {
	if c.MaxRounds <= 0 {
		return 10
	}
	return c.MaxRounds
}

// GetCSVDir returns the CSV output directory, defaulting to the working directory
func (c *SessionConfig) GetCSVDir() string {
	if c.CSVDir != "" {
		return c.CSVDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// GetWaits returns the per-attempt and total wait limits as durations
func (c *RetryConfig) GetWaits() (perAttempt, total time.Duration) {
	return time.Duration(c.MaxWaitPerAttempt) * time.Second, time.Duration(c.MaxTotalWait) * time.Second
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "***"
	}
	return c
}
