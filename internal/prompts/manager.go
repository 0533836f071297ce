package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	textTemplate "text/template"

	"gopkg.in/yaml.v3"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/trials"
)

// Prompt keys
const (
	ClinicalTrialsSystem = "clinical_trials_system"
	DefaultSystem        = "default_system"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// searchAreas are the AREA[...] names the Essie grammar accepts
var searchAreas = []string{
	"NCTId", "Acronym", "BriefTitle", "OfficialTitle", "Condition",
	"InterventionName", "InterventionOtherName", "PrimaryOutcomeMeasure",
	"BriefSummary", "Keyword", "ArmGroupLabel", "SecondaryOutcomeMeasure",
	"InterventionDescription", "ArmGroupDescription", "PrimaryOutcomeDescription",
	"LeadSponsorName", "OrgStudyId", "SecondaryId", "NCTIdAlias",
	"SecondaryOutcomeDescription", "LocationFacility", "LocationState",
	"LocationCountry", "LocationCity", "BioSpecDescription",
	"ResponsiblePartyInvestigatorFullName", "ResponsiblePartyInvestigatorTitle",
	"ResponsiblePartyInvestigatorAffiliation", "ResponsiblePartyOldNameTitle",
	"ResponsiblePartyOldOrganization", "OverallOfficialAffiliation",
	"OverallOfficialName", "CentralContactName", "ConditionMeshTerm",
	"InterventionMeshTerm", "ConditionAncestorTerm", "InterventionAncestorTerm",
	"CollaboratorName", "OtherOutcomeMeasure", "OutcomeMeasureTitle",
	"OtherOutcomeDescription", "OutcomeMeasureDescription", "LocationContactName",
}

// Manager handles loading and rendering prompt templates
type Manager struct {
	prompts map[string]string
	sources map[string]string // Track which file provided each prompt (for debugging)
}

// NewManager loads the built-in prompts, then any YAML files in
// overrideDir. A missing override directory is not an error.
func NewManager(overrideDir string) (*Manager, error) {
	pm := &Manager{
		prompts: make(map[string]string),
		sources: make(map[string]string),
	}

	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("failed to open built-in prompts: %w", err)
	}
	if err := pm.loadFS(sub, "builtin"); err != nil {
		return nil, fmt.Errorf("failed to load built-in prompts: %w", err)
	}

	if overrideDir != "" {
		if _, err := os.Stat(overrideDir); err == nil {
			if err := pm.loadFS(os.DirFS(overrideDir), "project"); err != nil {
				return nil, fmt.Errorf("failed to load project prompts: %w", err)
			}
		}
	}

	if err := pm.validateRequiredPrompts(); err != nil {
		return nil, err
	}
	return pm, nil
}

// loadFS loads all YAML files at the root of fsys
func (pm *Manager) loadFS(fsys fs.FS, source string) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}

		var prompts map[string]string
		if err := yaml.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}

		// Later loads override earlier
		for key, value := range prompts {
			pm.prompts[key] = value
			pm.sources[key] = fmt.Sprintf("%s:%s", source, entry.Name())
		}
	}

	return nil
}

func (pm *Manager) validateRequiredPrompts() error {
	var missing []string
	for _, key := range []string{ClinicalTrialsSystem, DefaultSystem} {
		if _, ok := pm.prompts[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required prompts: %v", missing)
	}
	return nil
}

// NewManagerFromMap creates a prompt manager from a map (useful for testing)
func NewManagerFromMap(prompts map[string]string) *Manager {
	sources := make(map[string]string)
	for key := range prompts {
		sources[key] = "test:map"
	}
	return &Manager{
		prompts: prompts,
		sources: sources,
	}
}

// Get returns a raw prompt by name
func (pm *Manager) Get(name string) (string, error) {
	prompt, ok := pm.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt '%s' not found (available: %v)", name, pm.getAvailableNames())
	}
	return prompt, nil
}

// Render renders a prompt template with the given variables
func (pm *Manager) Render(name string, vars map[string]interface{}) (string, error) {
	promptTemplate, err := pm.Get(name)
	if err != nil {
		return "", err
	}

	tmpl, err := textTemplate.New(name).Option("missingkey=error").Parse(promptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", name, err)
	}

	return buf.String(), nil
}

// SystemPrompt renders the system prompt of a session plugin
func (pm *Manager) SystemPrompt(plugin string) (string, error) {
	if plugin == config.PluginNone {
		return pm.Render(DefaultSystem, nil)
	}
	prompt, err := pm.Render(ClinicalTrialsSystem, map[string]interface{}{
		"Areas":     strings.Join(searchAreas, ", "),
		"FieldList": strings.Join(trials.FieldNames(), ", "),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(prompt), nil
}

func (pm *Manager) getAvailableNames() []string {
	names := make([]string, 0, len(pm.prompts))
	for name := range pm.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasPrompt checks if a prompt exists
func (pm *Manager) HasPrompt(name string) bool {
	_, ok := pm.prompts[name]
	return ok
}

// GetSource returns which file provided a prompt (for debugging)
func (pm *Manager) GetSource(name string) string {
	if source, ok := pm.sources[name]; ok {
		return source
	}
	return "unknown"
}

// ListOverrides returns all prompts that were overridden from the project
func (pm *Manager) ListOverrides() []string {
	var overrides []string
	for key, source := range pm.sources {
		if strings.HasPrefix(source, "project:") {
			overrides = append(overrides, key)
		}
	}
	sort.Strings(overrides)
	return overrides
}

// CountPrompts returns the total number of loaded prompts
func (pm *Manager) CountPrompts() int {
	return len(pm.prompts)
}
