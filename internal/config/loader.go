package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/user/trialchat/internal/errors"
)

const (
	// EnvPrefix is prepended to every environment override
	EnvPrefix = "TRIALCHAT"
	// ConfigFileName is used for both the global and the project file
	ConfigFileName = ".trialchat.yaml"
)

// Options selects the sources Load reads
type Options struct {
	ProjectDir string                 // directory holding the project config, default "."
	ConfigFile string                 // explicit file merged after the project config
	Overrides  map[string]interface{} // dotted keys from CLI flags, nil values are skipped
	SkipDotEnv bool
}

// Loader handles loading configuration from multiple sources
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and environment binding in place
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 180)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.retry.max_attempts", 1)
	v.SetDefault("llm.retry.multiplier", 1)
	v.SetDefault("llm.retry.max_wait_per_attempt", 30)
	v.SetDefault("llm.retry.max_total_wait", 120)

	v.SetDefault("trials.base_url", DefaultTrialsBaseURL)
	v.SetDefault("trials.timeout", 30)
	v.SetDefault("trials.retry.max_attempts", 1)
	v.SetDefault("trials.retry.multiplier", 1)
	v.SetDefault("trials.retry.max_wait_per_attempt", 30)
	v.SetDefault("trials.retry.max_total_wait", 120)

	v.SetDefault("session.plugin", PluginClinicalTrials)
	v.SetDefault("session.max_rounds", 10)
	v.SetDefault("session.greeting", "How can I help you?")
	v.SetDefault("session.prompts_dir", "")
	v.SetDefault("session.csv_dir", "")
	v.SetDefault("session.max_result_chars", 0)
	v.SetDefault("session.stream", true)

	v.SetDefault("logging.log_dir", ".trialchat/logs")
	v.SetDefault("logging.file_level", "info")
	v.SetDefault("logging.console_level", "warn")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("transcript.path", "")
}

// Load reads every source and returns the validated configuration.
// Precedence: overrides > environment > explicit file > project file > global file > defaults.
// A missing API key is not an error here; the session refuses turns instead.
func (l *Loader) Load(opts Options) (*Config, error) {
	if !opts.SkipDotEnv {
		_ = godotenv.Load()
	}

	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}
	if err := l.loadProjectConfig(opts.ProjectDir); err != nil {
		return nil, err
	}
	if opts.ConfigFile != "" {
		if err := l.mergeFile(opts.ConfigFile, true); err != nil {
			return nil, err
		}
	}
	l.applyCLIOverrides(opts.Overrides)

	cfg := &Config{}
	if err := decode(l.v.AllSettings(), cfg); err != nil {
		return nil, err
	}

	applyCredentialFallbacks(&cfg.LLM)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Viper exposes the underlying viper instance, for `config show --keys`
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load is a shorthand for NewLoader().Load(opts)
func Load(opts Options) (*Config, error) {
	return NewLoader().Load(opts)
}

func decode(input map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return errors.WrapError(err, "failed to decode configuration", errors.ExitConfigError)
	}
	return nil
}

// loadGlobalConfig merges ~/.trialchat.yaml when present
func (l *Loader) loadGlobalConfig() error {
	path, err := GlobalConfigPath()
	if err != nil {
		return nil // no home directory is not fatal
	}
	return l.mergeFile(path, false)
}

// loadProjectConfig merges <dir>/.trialchat.yaml when present
func (l *Loader) loadProjectConfig(dir string) error {
	return l.mergeFile(ProjectConfigPath(dir), false)
}

func (l *Loader) mergeFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if required {
			return errors.NewConfigFileError(path, err)
		}
		return nil
	}

	l.v.SetConfigFile(path)
	if err := l.v.MergeInConfig(); err != nil {
		return errors.NewConfigFileError(path, err)
	}
	return nil
}

func (l *Loader) applyCLIOverrides(overrides map[string]interface{}) {
	for key, value := range overrides {
		if value != nil {
			l.v.Set(key, value)
		}
	}
}

// applyCredentialFallbacks fills the API key from the provider's conventional
// environment variable
func applyCredentialFallbacks(llm *LLMConfig) {
	if llm.APIKey != "" {
		return
	}
	for _, name := range llm.CredentialEnvVars() {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			llm.APIKey = value
			return
		}
	}
}

// Validate checks enumerated and bounded values
func Validate(cfg *Config) error {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if !slices.Contains(ValidProviders, cfg.LLM.Provider) {
		return errors.NewInvalidConfigError("llm.provider", cfg.LLM.Provider,
			"must be one of: "+strings.Join(ValidProviders, ", "))
	}
	if !slices.Contains(ValidPlugins, cfg.Session.Plugin) {
		return errors.NewInvalidConfigError("session.plugin", cfg.Session.Plugin,
			"must be one of: "+strings.Join(ValidPlugins, ", "))
	}
	if cfg.Session.MaxRounds < 1 {
		return errors.NewInvalidConfigError("session.max_rounds", cfg.Session.MaxRounds, "must be at least 1")
	}
	if cfg.Session.MaxResultChars < 0 {
		return errors.NewInvalidConfigError("session.max_result_chars", cfg.Session.MaxResultChars, "must not be negative")
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return errors.NewInvalidConfigError("tracing.sample_rate", cfg.Tracing.SampleRate, "must be between 0 and 1")
	}
	if strings.TrimSpace(cfg.Trials.BaseURL) == "" {
		return errors.NewInvalidConfigError("trials.base_url", cfg.Trials.BaseURL, "must not be empty")
	}
	return nil
}

// GlobalConfigPath returns ~/.trialchat.yaml
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectConfigPath returns <dir>/.trialchat.yaml
func ProjectConfigPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ConfigFileName)
}

// ConfigExists reports whether path names an existing file
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
