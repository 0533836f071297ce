package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/trialchat/internal/config"
)

// Step is one screen of the configuration wizard
type Step int

const (
	StepProvider Step = iota
	StepAPIKey
	StepModel
	StepBaseURL
	StepConfirm
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepProvider:
		return "Provider Selection"
	case StepAPIKey:
		return "API Key"
	case StepModel:
		return "Model"
	case StepBaseURL:
		return "Base URL (Optional)"
	case StepConfirm:
		return "Confirm"
	case StepComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

type providerOption struct {
	key          string
	name         string
	defaultModel string
	hint         string
}

var providerOptions = []providerOption{
	{"1", "openai", "gpt-4o", "gpt-4o, gpt-4o-mini, etc."},
	{"2", "anthropic", "claude-sonnet-4-20250514", "claude-sonnet-4, claude-3-5-haiku, etc."},
	{"3", "ollama", "llama3.1", "any local model with tool support"},
}

func defaultModelFor(provider string) string {
	for _, p := range providerOptions {
		if p.name == provider {
			return p.defaultModel
		}
	}
	return ""
}

// SaveFunc persists the configuration and returns the path written
type SaveFunc func(cfg *config.Config) (string, error)

// WizardModel is the bubbletea model of `trialchat config init`
type WizardModel struct {
	Step     Step
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Quitting bool

	ConfigPath string
	Saved      bool
	Err        error

	base     *config.Config
	save     SaveFunc
	detected map[string]string

	APIKeyInput  textinput.Model
	ModelInput   textinput.Model
	BaseURLInput textinput.Model
}

// ConfigResult holds the outcome of a wizard run
type ConfigResult struct {
	Saved bool
	Path  string
	Error error
}

// NewWizardModel creates a wizard that edits the llm section of base
func NewWizardModel(base *config.Config, save SaveFunc) WizardModel {
	if base == nil {
		base = config.Default()
	}

	apiKeyInput := textinput.New()
	apiKeyInput.Placeholder = "sk-..."
	apiKeyInput.EchoMode = textinput.EchoPassword
	apiKeyInput.EchoCharacter = '•'
	apiKeyInput.CharLimit = 256

	modelInput := textinput.New()
	modelInput.Placeholder = "gpt-4o"
	modelInput.CharLimit = 100

	baseURLInput := textinput.New()
	baseURLInput.Placeholder = "https://api.openai.com/v1"
	baseURLInput.CharLimit = 256

	return WizardModel{
		base:         base,
		save:         save,
		detected:     detectEnvironmentVariables(),
		APIKeyInput:  apiKeyInput,
		ModelInput:   modelInput,
		BaseURLInput: baseURLInput,
	}
}

// detectEnvironmentVariables reports configuration already present in the
// environment, with secrets masked
func detectEnvironmentVariables() map[string]string {
	detected := make(map[string]string)
	for _, key := range []string{
		"TRIALCHAT_LLM_PROVIDER",
		"TRIALCHAT_LLM_MODEL",
		"TRIALCHAT_LLM_API_KEY",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
	} {
		if val := os.Getenv(key); val != "" {
			if strings.Contains(key, "API_KEY") {
				detected[key] = maskSecret(val)
			} else {
				detected[key] = val
			}
		}
	}
	return detected
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Init initializes the model
func (m WizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// hasEnvCredential reports whether a key for the chosen provider is exported
func (m WizardModel) hasEnvCredential() bool {
	llm := config.LLMConfig{Provider: m.Provider}
	for _, name := range llm.CredentialEnvVars() {
		if _, ok := m.detected[name]; ok {
			return true
		}
	}
	return false
}

func (m *WizardModel) focus(step Step) {
	m.Step = step
	m.APIKeyInput.Blur()
	m.ModelInput.Blur()
	m.BaseURLInput.Blur()
	switch step {
	case StepAPIKey:
		m.APIKeyInput.Focus()
	case StepModel:
		m.ModelInput.Focus()
	case StepBaseURL:
		m.BaseURLInput.Focus()
	}
}

// Update handles messages
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInputs(msg)
	}

	if m.Step == StepComplete {
		return m, tea.Quit
	}

	switch key.String() {
	case "ctrl+c":
		m.Quitting = true
		return m, tea.Quit
	case "enter":
		return m.advance()
	case "esc":
		switch m.Step {
		case StepModel:
			if config.RequiresAPIKeyFor(m.Provider) {
				m.focus(StepAPIKey)
			} else {
				m.focus(StepProvider)
			}
		case StepBaseURL:
			m.focus(StepModel)
		case StepAPIKey:
			m.focus(StepProvider)
		}
		return m, nil
	}

	// single-key shortcuts only apply outside the text inputs
	switch m.Step {
	case StepProvider:
		switch key.String() {
		case "q":
			m.Quitting = true
			return m, tea.Quit
		default:
			for _, p := range providerOptions {
				if key.String() == p.key {
					m.Provider = p.name
					m.Model = p.defaultModel
				}
			}
		}
		return m, nil
	case StepConfirm:
		switch key.String() {
		case "y", "Y":
			m.Saved, m.ConfigPath, m.Err = m.saveConfig()
			m.Step = StepComplete
		case "n", "N":
			m.focus(StepProvider)
		case "q":
			m.Quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m WizardModel) advance() (tea.Model, tea.Cmd) {
	switch m.Step {
	case StepProvider:
		if m.Provider == "" {
			return m, nil
		}
		if config.RequiresAPIKeyFor(m.Provider) {
			m.focus(StepAPIKey)
		} else {
			m.focus(StepModel)
		}
	case StepAPIKey:
		m.APIKey = strings.TrimSpace(m.APIKeyInput.Value())
		if m.APIKey != "" || m.hasEnvCredential() {
			m.focus(StepModel)
		}
	case StepModel:
		if v := strings.TrimSpace(m.ModelInput.Value()); v != "" {
			m.Model = v
		} else if m.Model == "" {
			m.Model = defaultModelFor(m.Provider)
		}
		m.focus(StepBaseURL)
	case StepBaseURL:
		m.BaseURL = strings.TrimSpace(m.BaseURLInput.Value())
		m.focus(StepConfirm)
	}
	return m, nil
}

func (m WizardModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.Step {
	case StepAPIKey:
		m.APIKeyInput, cmd = m.APIKeyInput.Update(msg)
	case StepModel:
		m.ModelInput, cmd = m.ModelInput.Update(msg)
	case StepBaseURL:
		m.BaseURLInput, cmd = m.BaseURLInput.Update(msg)
	}
	return m, cmd
}

// Config returns base with the wizard's answers applied
func (m WizardModel) Config() *config.Config {
	cfg := *m.base
	cfg.LLM.Provider = m.Provider
	cfg.LLM.Model = m.Model
	cfg.LLM.APIKey = m.APIKey
	cfg.LLM.BaseURL = m.BaseURL
	return &cfg
}

func (m WizardModel) saveConfig() (bool, string, error) {
	if m.save == nil {
		return false, "", fmt.Errorf("no destination for the configuration")
	}
	path, err := m.save(m.Config())
	if err != nil {
		return false, path, err
	}
	return true, path, nil
}

// View renders the UI
func (m WizardModel) View() string {
	if m.Quitting {
		return "Exiting...\n"
	}

	if m.Step == StepComplete {
		if m.Err != nil {
			return fmt.Sprintf("\n%s\n\nError saving configuration: %v\n\nPress any key to exit...",
				StyleError.Render("Configuration Failed"), m.Err)
		}
		return fmt.Sprintf("\n%s\n\nConfiguration saved to: %s\n\nPress any key to exit...",
			StyleSuccess.Render("Configuration Saved Successfully!"), m.ConfigPath)
	}

	var s strings.Builder
	s.WriteString(StyleTitle.Render(" trialchat Configuration Wizard ") + "\n\n")
	s.WriteString(fmt.Sprintf("Step %d/5: %s\n\n", int(m.Step)+1, m.Step.String()))

	switch m.Step {
	case StepProvider:
		s.WriteString(m.renderProviderSelection())
	case StepAPIKey:
		s.WriteString(m.renderAPIKeyInput())
	case StepModel:
		s.WriteString(m.renderModelInput())
	case StepBaseURL:
		s.WriteString(fmt.Sprintf("Enter base URL (optional, press Enter to skip):\n\n%s\n\nLeave empty for provider default.",
			m.BaseURLInput.View()))
	case StepConfirm:
		s.WriteString(m.renderConfirm())
	}

	s.WriteString("\n\n")
	switch m.Step {
	case StepProvider:
		s.WriteString("1-3: Select provider  |  Enter: Continue  |  q: Quit")
	case StepConfirm:
		s.WriteString("y: Yes (save)  |  n: No (start over)  |  q: Quit")
	default:
		s.WriteString("Type input  |  Enter: Continue  |  Esc: Go back  |  Ctrl+C: Quit")
	}
	return s.String() + "\n"
}

func (m WizardModel) renderProviderSelection() string {
	s := "Select your LLM provider:\n\n"
	for _, p := range providerOptions {
		prefix := " "
		if m.Provider == p.name {
			prefix = StyleHighlight.Render(IconSuccess)
		}
		s += fmt.Sprintf("%s %s. %s (%s)\n", prefix, p.key, p.name, p.hint)
	}
	if detected, ok := m.detected["TRIALCHAT_LLM_PROVIDER"]; ok {
		s += fmt.Sprintf("\nFound TRIALCHAT_LLM_PROVIDER=%s in environment\n", detected)
	}
	return s
}

func (m WizardModel) renderAPIKeyInput() string {
	s := fmt.Sprintf("Enter your API key for %s:\n\n%s\n",
		StyleHighlight.Render(m.Provider),
		m.APIKeyInput.View())

	llm := config.LLMConfig{Provider: m.Provider}
	for _, name := range llm.CredentialEnvVars() {
		if detected, ok := m.detected[name]; ok {
			s += fmt.Sprintf("\nFound %s=%s in environment\n", name, detected)
			s += "   (Will be used if you leave this empty)\n"
			break
		}
	}
	return s + "\n(Press Enter when done)"
}

func (m WizardModel) renderModelInput() string {
	defaultModel := m.Model
	if defaultModel == "" {
		defaultModel = defaultModelFor(m.Provider)
	}
	s := fmt.Sprintf("Enter model name (or press Enter for default %s):\n\n%s",
		StyleHighlight.Render(defaultModel),
		m.ModelInput.View())
	if detected, ok := m.detected["TRIALCHAT_LLM_MODEL"]; ok {
		s += fmt.Sprintf("\n\nFound TRIALCHAT_LLM_MODEL=%s in environment", detected)
	}
	return s
}

func (m WizardModel) renderConfirm() string {
	s := "Review your configuration:\n\n"
	s += fmt.Sprintf("  Provider:   %s\n", StyleHighlight.Render(m.Provider))
	s += fmt.Sprintf("  Model:      %s\n", StyleHighlight.Render(m.Model))
	if m.APIKey != "" {
		s += fmt.Sprintf("  API key:    %s\n", StyleHighlight.Render(maskSecret(m.APIKey)))
	}
	if m.BaseURL != "" {
		s += fmt.Sprintf("  Base URL:   %s\n", StyleHighlight.Render(m.BaseURL))
	}
	return s + "\nSave this configuration?"
}

// RunConfigWizard runs the wizard on the terminal
func RunConfigWizard(base *config.Config, save SaveFunc) (*ConfigResult, error) {
	final, err := tea.NewProgram(NewWizardModel(base, save)).Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	m, ok := final.(WizardModel)
	if !ok {
		return nil, fmt.Errorf("unexpected wizard state %T", final)
	}
	return &ConfigResult{Saved: m.Saved, Path: m.ConfigPath, Error: m.Err}, nil
}
