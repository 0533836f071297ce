package errors

import (
	"fmt"
	"strings"
)

// ConfigurationError is raised when configuration is invalid or missing
type ConfigurationError struct {
	*TrialChatError
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{
		TrialChatError: &TrialChatError{
			Message:  message,
			ExitCode: ExitConfigError,
		},
	}
}

// InvalidConfigError is raised when a configuration key holds an unusable value
type InvalidConfigError struct {
	*TrialChatError
}

// NewInvalidConfigError creates a new invalid configuration error
func NewInvalidConfigError(key string, value interface{}, reason string) *InvalidConfigError {
	return &InvalidConfigError{
		TrialChatError: &TrialChatError{
			Message: fmt.Sprintf("Configuration key '%s' has an invalid value", key),
			Context: &ErrorContext{
				Operation: "Validating configuration",
				Component: "Config",
				Details: map[string]interface{}{
					"key":    key,
					"value":  value,
					"reason": reason,
				},
				Suggestions: []string{
					fmt.Sprintf("Set %s in .trialchat.yaml", key),
					fmt.Sprintf("Or export %s", EnvVarForKey(key)),
				},
			},
			ExitCode: ExitConfigError,
		},
	}
}

// MissingCredentialError is raised when the LLM provider has no API key.
// It blocks the current turn only.
type MissingCredentialError struct {
	*TrialChatError
	Provider string
}

// NewMissingCredentialError creates a new missing credential error
func NewMissingCredentialError(provider string, envVars ...string) *MissingCredentialError {
	suggestions := []string{"Set llm.api_key in .trialchat.yaml"}
	for _, name := range envVars {
		suggestions = append(suggestions, fmt.Sprintf("Export the variable: export %s='your-key'", name))
	}

	return &MissingCredentialError{
		TrialChatError: &TrialChatError{
			Message: fmt.Sprintf("Please add your %s API key to continue.", ProviderDisplayName(provider)),
			Context: &ErrorContext{
				Operation:   "Starting a turn",
				Component:   "Session",
				Details:     map[string]interface{}{"provider": provider},
				Suggestions: suggestions,
				Recoverable: true,
			},
			ExitCode: ExitConfigError,
		},
		Provider: provider,
	}
}

// ConfigFileError is raised when a configuration file cannot be read or parsed
type ConfigFileError struct {
	*TrialChatError
}

// NewConfigFileError creates a new config file error
func NewConfigFileError(filePath string, cause error) *ConfigFileError {
	return &ConfigFileError{
		TrialChatError: &TrialChatError{
			Message: fmt.Sprintf("Failed to load configuration file: %s", filePath),
			Cause:   cause,
			Context: &ErrorContext{
				Operation: "Loading configuration",
				Component: "Config File",
				Details: map[string]interface{}{
					"file_path": filePath,
				},
				Suggestions: []string{
					"Check that the file exists and is readable",
					"Validate YAML syntax",
					"Check file permissions",
				},
			},
			ExitCode: ExitConfigError,
		},
	}
}

// EnvVarForKey maps a dotted config key to its environment variable.
// Example: llm.api_key -> TRIALCHAT_LLM_API_KEY
func EnvVarForKey(key string) string {
	return "TRIALCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ProviderDisplayName returns the name used in user-facing messages
func ProviderDisplayName(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	case "ollama":
		return "Ollama"
	default:
		return provider
	}
}
