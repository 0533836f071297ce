package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/tui"
)

// WizardFunc runs the interactive configuration wizard
type WizardFunc func(base *config.Config, save tui.SaveFunc) (*tui.ConfigResult, error)

// ConfigOptions configures the config subcommands
type ConfigOptions struct {
	Out        io.Writer
	ProjectDir string

	// Keys lists every known key; show prints them with their variables
	Keys []string

	// Global writes ~/.trialchat.yaml instead of the project file
	Global bool
	Wizard WizardFunc // default tui.RunConfigWizard
}

// ConfigShowHandler prints the effective configuration
type ConfigShowHandler struct {
	*BaseHandler
	opts ConfigOptions
}

// NewConfigShowHandler creates a new config show handler
func NewConfigShowHandler(cfg *config.Config, logger *logging.Logger, opts ConfigOptions) *ConfigShowHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &ConfigShowHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
	}
}

// Handle prints the sources and the redacted configuration
func (h *ConfigShowHandler) Handle(ctx context.Context) error {
	out := h.opts.Out

	if len(h.opts.Keys) > 0 {
		keys := append([]string(nil), h.opts.Keys...)
		sort.Strings(keys)
		for _, key := range keys {
			_, _ = fmt.Fprintf(out, "%-32s %s\n", key, errors.EnvVarForKey(key))
		}
		return nil
	}

	_, _ = fmt.Fprintln(out, tui.StyleSubtitle.Render("Sources"))
	if global, err := config.GlobalConfigPath(); err == nil {
		_, _ = fmt.Fprintf(out, "  %s %s\n", sourceMark(global), global)
	}
	project := config.ProjectConfigPath(h.opts.ProjectDir)
	_, _ = fmt.Fprintf(out, "  %s %s\n\n", sourceMark(project), project)

	redacted := h.Config.Redacted()
	data, err := config.Marshal(&redacted)
	if err != nil {
		return errors.WrapError(err, "failed to render configuration", errors.ExitGeneralError)
	}
	_, _ = out.Write(data)

	if !h.Config.LLM.HasCredential() {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintf(out, "%s %s\n", tui.StyleWarning.Render(tui.IconWarning),
			errors.NewMissingCredentialError(h.Config.LLM.Provider).Error())
	}
	return nil
}

func sourceMark(path string) string {
	if config.ConfigExists(path) {
		return tui.StyleSuccess.Render(tui.IconSuccess)
	}
	return tui.StyleMuted.Render("-")
}

// ConfigInitHandler runs the configuration wizard and saves its result
type ConfigInitHandler struct {
	*BaseHandler
	opts  ConfigOptions
	saver *config.Saver
}

// NewConfigInitHandler creates a new config init handler
func NewConfigInitHandler(cfg *config.Config, logger *logging.Logger, opts ConfigOptions) *ConfigInitHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Wizard == nil {
		opts.Wizard = tui.RunConfigWizard
	}
	return &ConfigInitHandler{
		BaseHandler: NewBaseHandler(cfg, logger),
		opts:        opts,
		saver:       config.NewSaver(),
	}
}

// Handle runs the wizard. Quitting without saving is not an error.
func (h *ConfigInitHandler) Handle(ctx context.Context) error {
	result, err := h.opts.Wizard(h.Config, h.save)
	if err != nil {
		return errors.WrapError(err, "configuration wizard failed", errors.ExitGeneralError)
	}
	if result.Error != nil {
		return errors.NewConfigFileError(result.Path, result.Error)
	}
	if !result.Saved {
		_, _ = fmt.Fprintln(h.opts.Out, tui.StyleMuted.Render("Configuration not saved."))
		return nil
	}

	h.Logger.Info("Configuration saved", logging.String("path", result.Path))
	_, _ = fmt.Fprintf(h.opts.Out, "%s Configuration saved to %s\n",
		tui.StyleSuccess.Render(tui.IconSuccess), result.Path)
	return nil
}

func (h *ConfigInitHandler) save(cfg *config.Config) (string, error) {
	if h.opts.Global {
		return h.saver.SaveGlobalConfig(cfg)
	}
	return h.saver.SaveProjectConfig(h.opts.ProjectDir, cfg)
}
