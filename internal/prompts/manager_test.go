package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/trials"
)

func TestNewManagerFromMap_Get(t *testing.T) {
	mgr := NewManagerFromMap(map[string]string{
		"test_system": "You are a test assistant",
	})

	prompt, err := mgr.Get("test_system")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prompt != "You are a test assistant" {
		t.Errorf("Expected 'You are a test assistant', got '%s'", prompt)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	mgr := NewManagerFromMap(map[string]string{"exists": "value"})

	if _, err := mgr.Get("nonexistent"); err == nil {
		t.Fatal("Expected error for non-existent prompt, got nil")
	}
}

func TestManager_Render_WithVariables(t *testing.T) {
	mgr := NewManagerFromMap(map[string]string{
		"template": "Fields: {{.FieldList}}, Rounds: {{.Rounds}}",
	})

	result, err := mgr.Render("template", map[string]interface{}{
		"FieldList": "a, b",
		"Rounds":    4,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := "Fields: a, b, Rounds: 4"
	if result != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}
}

func TestManager_Render_MissingVariable(t *testing.T) {
	mgr := NewManagerFromMap(map[string]string{
		"template": "Value: {{.Missing}}",
	})

	if _, err := mgr.Render("template", map[string]interface{}{}); err == nil {
		t.Fatal("Expected error for missing variable, got nil")
	}
}

func TestNewManager_BuiltinPrompts(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, key := range []string{ClinicalTrialsSystem, DefaultSystem} {
		if !mgr.HasPrompt(key) {
			t.Errorf("Expected built-in prompt %s", key)
		}
		if !strings.HasPrefix(mgr.GetSource(key), "builtin:") {
			t.Errorf("Expected builtin source for %s, got %s", key, mgr.GetSource(key))
		}
	}
	if len(mgr.ListOverrides()) != 0 {
		t.Errorf("Expected no overrides, got %v", mgr.ListOverrides())
	}
}

func TestManager_SystemPrompt(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	none, err := mgr.SystemPrompt(config.PluginNone)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if none != "You are a helpful assistant." {
		t.Errorf("Unexpected default prompt %q", none)
	}

	clinical, err := mgr.SystemPrompt(config.PluginClinicalTrials)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for _, want := range []string{"Essie", "AREA[InterventionName]", "LocationContactName", strings.Join(trials.FieldNames(), ", ")} {
		if !strings.Contains(clinical, want) {
			t.Errorf("Expected clinical prompt to contain %q", want)
		}
	}
	if strings.Contains(clinical, "{{") {
		t.Error("Expected template actions to be rendered")
	}
}

func TestNewManager_Overrides(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte("default_system: \"Answer in French.\"\nextra: value\n"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# README"), 0644)
	_ = os.MkdirAll(filepath.Join(dir, "subdir"), 0755)
	_ = os.WriteFile(filepath.Join(dir, "subdir", "sub.yaml"), []byte("sub_prompt: value\n"), 0644)

	mgr, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	prompt, _ := mgr.SystemPrompt(config.PluginNone)
	if prompt != "Answer in French." {
		t.Errorf("Expected overridden prompt, got %q", prompt)
	}
	if got := mgr.ListOverrides(); strings.Join(got, ",") != "default_system,extra" {
		t.Errorf("Unexpected overrides %v", got)
	}
	if mgr.HasPrompt("sub_prompt") {
		t.Error("Prompts from subdirectories should not be loaded")
	}
	if mgr.CountPrompts() != 3 {
		t.Errorf("Expected 3 prompts, got %d", mgr.CountPrompts())
	}
}

func TestNewManager_MissingOverrideDirIsIgnored(t *testing.T) {
	if _, err := NewManager("/nonexistent/directory"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestNewManager_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "invalid.yaml"), []byte("test: this is not\n  valid: yaml: structure\n"), 0644)

	if _, err := NewManager(dir); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestManager_MultilinePrompt(t *testing.T) {
	multiline := "Line 1\nLine 2\nLine 3\n"
	mgr := NewManagerFromMap(map[string]string{"multiline": multiline})

	prompt, err := mgr.Get("multiline")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if prompt != multiline {
		t.Errorf("Expected multiline prompt to be preserved")
	}
}
