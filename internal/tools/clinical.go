package tools

import (
	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/trials"
)

// NewClinicalTrialsTools returns the three clinical trials functions in
// their declared order
func NewClinicalTrialsTools(client *trials.Client, csvDir string) []Tool {
	return []Tool{
		NewStudySearchTool(client),
		NewFieldInfoTool(client),
		NewSaveCSVTool(csvDir),
	}
}

// NewRegistryForPlugin builds the registry a session plugin exposes. The
// "none" plugin has no functions.
func NewRegistryForPlugin(plugin string, client *trials.Client, csvDir string, logger *logging.Logger) (*Registry, error) {
	if plugin == config.PluginNone {
		return NewRegistry(logger)
	}
	return NewRegistry(logger, NewClinicalTrialsTools(client, csvDir)...)
}
