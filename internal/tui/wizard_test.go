package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/trialchat/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TRIALCHAT_LLM_PROVIDER", "TRIALCHAT_LLM_MODEL", "TRIALCHAT_LLM_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func send(t *testing.T, m WizardModel, msgs ...tea.Msg) WizardModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		if m, ok = next.(WizardModel); !ok {
			t.Fatalf("Expected WizardModel, got %T", next)
		}
	}
	return m
}

func TestWizard_OpenAIFlow(t *testing.T) {
	clearCredentialEnv(t)
	var saved *config.Config
	m := NewWizardModel(config.Default(), func(cfg *config.Config) (string, error) {
		saved = cfg
		return "/tmp/.trialchat.yaml", nil
	})

	m = send(t, m, enter)
	if m.Step != StepProvider {
		t.Fatalf("Expected to stay on provider step without a selection, got %s", m.Step)
	}

	m = send(t, m, runes("1"), enter)
	if m.Step != StepAPIKey || m.Provider != "openai" {
		t.Fatalf("Expected API key step for openai, got %s/%s", m.Step, m.Provider)
	}

	m = send(t, m, enter)
	if m.Step != StepAPIKey {
		t.Fatalf("Expected empty key to be refused, got %s", m.Step)
	}

	m.APIKeyInput.SetValue("sk-test-123456")
	m = send(t, m, enter, enter)
	if m.Step != StepBaseURL || m.Model != "gpt-4o" {
		t.Fatalf("Expected base URL step with default model, got %s/%s", m.Step, m.Model)
	}

	m = send(t, m, enter)
	if m.Step != StepConfirm {
		t.Fatalf("Expected confirm step, got %s", m.Step)
	}
	if view := m.View(); !strings.Contains(view, "sk-t...3456") {
		t.Errorf("Expected masked key in review, got %q", view)
	}

	m = send(t, m, runes("y"))
	if m.Step != StepComplete || !m.Saved {
		t.Fatalf("Expected saved configuration, got step=%s saved=%v err=%v", m.Step, m.Saved, m.Err)
	}
	if m.ConfigPath != "/tmp/.trialchat.yaml" {
		t.Errorf("Expected path to be recorded, got %s", m.ConfigPath)
	}
	if saved.LLM.Provider != "openai" || saved.LLM.APIKey != "sk-test-123456" || saved.LLM.Model != "gpt-4o" {
		t.Errorf("Unexpected saved llm section %+v", saved.LLM)
	}
	if saved.Session.GetMaxRounds() != 10 {
		t.Errorf("Expected other sections to keep defaults, got max_rounds %d", saved.Session.MaxRounds)
	}
}

func TestWizard_OllamaSkipsAPIKey(t *testing.T) {
	clearCredentialEnv(t)
	m := NewWizardModel(nil, nil)

	m = send(t, m, runes("3"), enter)
	if m.Step != StepModel {
		t.Fatalf("Expected model step for ollama, got %s", m.Step)
	}
	m.ModelInput.SetValue("qwen2.5")
	m = send(t, m, enter)
	if m.Model != "qwen2.5" {
		t.Errorf("Expected typed model, got %s", m.Model)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc}, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Step != StepProvider {
		t.Errorf("Expected esc to walk back to provider, got %s", m.Step)
	}
}

func TestWizard_EnvCredentialAllowsEmptyKey(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-abcdefgh")
	m := NewWizardModel(nil, nil)

	m = send(t, m, runes("2"), enter)
	if !strings.Contains(m.View(), "Found ANTHROPIC_API_KEY=sk-a...efgh") {
		t.Errorf("Expected detected variable in view, got %q", m.View())
	}
	m = send(t, m, enter)
	if m.Step != StepModel {
		t.Errorf("Expected empty key to be accepted, got %s", m.Step)
	}
}

func TestWizard_SaveFailure(t *testing.T) {
	clearCredentialEnv(t)
	m := NewWizardModel(nil, func(cfg *config.Config) (string, error) {
		return "", fmt.Errorf("read-only file system")
	})
	m.Provider = "ollama"
	m.Step = StepConfirm

	m = send(t, m, runes("y"))
	if m.Saved || m.Err == nil {
		t.Fatalf("Expected save failure, got saved=%v err=%v", m.Saved, m.Err)
	}
	if !strings.Contains(m.View(), "Configuration Failed") {
		t.Errorf("Expected failure view, got %q", m.View())
	}
}

func TestWizard_QuitAndDecline(t *testing.T) {
	clearCredentialEnv(t)
	m := NewWizardModel(nil, nil)

	quit := send(t, m, runes("q"))
	if !quit.Quitting {
		t.Error("Expected q to quit on the provider step")
	}

	m.Provider = "openai"
	m.Step = StepConfirm
	m = send(t, m, runes("n"))
	if m.Step != StepProvider {
		t.Errorf("Expected n to start over, got %s", m.Step)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("short"); got != "***" {
		t.Errorf("Expected ***, got %s", got)
	}
	if got := maskSecret("sk-1234567890"); got != "sk-1...7890" {
		t.Errorf("Expected sk-1...7890, got %s", got)
	}
}
