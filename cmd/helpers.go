package cmd

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/logging"
)

// CommandContext holds common resources used by CLI commands.
// It is the return value of LoadCommandContext and centralizes the
// configuration and the logger.
type CommandContext struct {
	// Config is the validated configuration of the command
	Config *config.Config

	// Loader produced Config; it still knows every key
	Loader *config.Loader

	// Logger is the configured logger for the command
	Logger *logging.Logger
}

// Close flushes and closes the logger
func (c *CommandContext) Close() {
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}

// LoadCommandContext loads the configuration with the given flag overrides
// and creates the logger it describes
func LoadCommandContext(overrides map[string]interface{}) (*CommandContext, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(config.Options{
		ProjectDir: ".",
		ConfigFile: configFile,
		Overrides:  overrides,
	})
	if err != nil {
		return nil, err
	}

	logger, err := InitLogger(cfg.Logging, debugFlag, verboseFlag)
	if err != nil {
		return nil, err
	}
	return &CommandContext{Config: cfg, Loader: loader, Logger: logger}, nil
}

// InitLogger creates a configured logger for CLI commands.
//   - logs go to <log_dir>/trialchat.log at the configured file level
//   - verbose mirrors them to stderr; debug lowers both levels and adds callers
//
// The caller is responsible for calling logger.Sync() when done.
func InitLogger(cfg config.LoggingConfig, debug bool, verbose bool) (*logging.Logger, error) {
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = logging.DefaultConfig().LogDir
	}

	logCfg := &logging.Config{
		LogDir:         logDir,
		FileLevel:      logging.LevelFromString(cfg.FileLevel),
		ConsoleLevel:   logging.LevelFromString(cfg.ConsoleLevel),
		EnableCaller:   debug,
		ConsoleEnabled: verbose,
	}
	if debug {
		logCfg.FileLevel = logging.LevelFromString("debug")
		logCfg.ConsoleLevel = logging.LevelFromString("debug")
	}

	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// flagBinding maps a command flag to the configuration key it overrides
type flagBinding struct {
	flag string
	key  string
}

// FlagOverrides collects the values of the flags the user actually set, so
// unset flags never mask files or the environment
func FlagOverrides(cmd *cobra.Command, bindings ...flagBinding) map[string]interface{} {
	overrides := make(map[string]interface{})
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "bool":
			v, _ := cmd.Flags().GetBool(b.flag)
			overrides[b.key] = v
		case "int":
			v, _ := cmd.Flags().GetInt(b.flag)
			overrides[b.key] = v
		default:
			overrides[b.key] = f.Value.String()
		}
	}
	return overrides
}

// HandleCommandError reports err on w, with the suggestions our errors carry,
// and returns it unchanged
func HandleCommandError(err error, w io.Writer) error {
	if err == nil {
		return nil
	}

	var userErr errors.UserMessager
	if stderrors.As(err, &userErr) {
		_, _ = fmt.Fprintf(w, "%s\n", userErr.GetUserMessage())
		return err
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return err
}

// ExitCodeFor returns the process exit code of a command error
func ExitCodeFor(err error) int {
	if err == nil {
		return errors.ExitSuccess.Int()
	}
	var coder errors.ExitCoder
	if stderrors.As(err, &coder) {
		return coder.GetExitCode().Int()
	}
	return errors.ExitGeneralError.Int()
}
