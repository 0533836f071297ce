package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/user/trialchat/internal/agents"
	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/llm"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/metrics"
	"github.com/user/trialchat/internal/observability"
	"github.com/user/trialchat/internal/prompts"
	"github.com/user/trialchat/internal/tools"
	"github.com/user/trialchat/internal/transcript"
	"github.com/user/trialchat/internal/trials"
)

var _ agents.TranscriptSink = (*transcript.Store)(nil)

// Runtime holds the resources shared by the commands that talk to the
// studies API: metrics, tracing, the trials client, the function registry
// and the optional transcript archive.
type Runtime struct {
	Config     *config.Config
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Trials     *trials.Client
	Registry   *tools.Registry
	Transcript *transcript.Store // nil unless transcript.path is set

	tracer        *observability.TracerProvider
	stopMetrics   context.CancelFunc
	metricsErrors chan error
}

// NewRuntime builds the runtime described by cfg. Close releases it.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewMetrics(),
	}

	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingCfg.Insecure = cfg.Tracing.Insecure
	tracingCfg.SampleRate = cfg.Tracing.SampleRate
	tp, err := observability.InitTracing(ctx, tracingCfg)
	if err != nil {
		return nil, errors.WrapError(err, "failed to initialize tracing", errors.ExitConfigError)
	}
	rt.tracer = tp

	if cfg.Metrics.Addr != "" {
		rt.startMetrics(ctx, cfg.Metrics.Addr)
	}

	rt.Trials = trials.NewClient(cfg.Trials, logger, rt.Metrics)
	rt.Registry, err = tools.NewRegistryForPlugin(cfg.Session.Plugin, rt.Trials, cfg.Session.GetCSVDir(), logger)
	if err != nil {
		rt.Close()
		return nil, errors.WrapError(err, "failed to build function registry", errors.ExitGeneralError)
	}

	if cfg.Transcript.Path != "" {
		store, err := transcript.Open(cfg.Transcript.Path)
		if err != nil {
			rt.Close()
			return nil, errors.WrapError(err, fmt.Sprintf("failed to open transcript %s", cfg.Transcript.Path), errors.ExitIOError)
		}
		rt.Transcript = store
	}

	logger.Debug("Runtime ready",
		logging.String("plugin", cfg.Session.Plugin),
		logging.Int("functions", rt.Registry.Len()),
		logging.String("trials_base_url", rt.Trials.BaseURL()),
	)
	return rt, nil
}

func (rt *Runtime) startMetrics(ctx context.Context, addr string) {
	ctx, cancel := context.WithCancel(ctx)
	rt.stopMetrics = cancel
	rt.metricsErrors = make(chan error, 1)
	go func() {
		err := rt.Metrics.Serve(ctx, addr)
		if err != nil {
			rt.Logger.Warn("Metrics listener stopped", logging.String("addr", addr), logging.Error(err))
		}
		rt.metricsErrors <- err
	}()
	rt.Logger.Info("Serving metrics", logging.String("addr", addr))
}

// NewSession builds an orchestrator around llmClient and starts a session.
// A nil llmClient is created from the llm configuration.
func (rt *Runtime) NewSession(llmClient llm.LLMClient) (*agents.Session, error) {
	cfg := rt.Config
	if llmClient == nil {
		client, err := llm.NewFactory(nil).CreateClient(cfg.LLM)
		if err != nil {
			return nil, errors.WrapError(err, "failed to create LLM client", errors.ExitConfigError)
		}
		llmClient = client
	}

	pm, err := prompts.NewManager(cfg.Session.PromptsDir)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to load prompts: %v", err))
	}
	systemPrompt, err := pm.SystemPrompt(cfg.Session.Plugin)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to render system prompt: %v", err))
	}

	llmCfg := cfg.LLM
	orchestrator := agents.NewOrchestrator(llmClient, rt.Registry, agents.Options{
		SystemPrompt:   systemPrompt,
		MaxRounds:      cfg.Session.GetMaxRounds(),
		MaxTokens:      llmCfg.GetMaxTokens(),
		Temperature:    llmCfg.Temperature,
		MaxResultChars: cfg.Session.MaxResultChars,
		Stream:         cfg.Session.Stream,
		Preflight: func() error {
			if !llmCfg.HasCredential() {
				return errors.NewMissingCredentialError(llmCfg.Provider, llmCfg.CredentialEnvVars()...)
			}
			return nil
		},
	}, rt.Logger, rt.Metrics)

	opts := agents.SessionOptions{
		Greeting: cfg.Session.Greeting,
		Model:    llmCfg.Model,
	}
	if rt.Transcript != nil {
		opts.Sink = rt.Transcript
	}
	return agents.NewSession(orchestrator, opts, rt.Logger), nil
}

// Close flushes traces and releases the listener and the transcript
func (rt *Runtime) Close() {
	if rt.stopMetrics != nil {
		rt.stopMetrics()
		<-rt.metricsErrors
		rt.stopMetrics = nil
	}
	if rt.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.tracer.Shutdown(ctx); err != nil {
			rt.Logger.Warn("Failed to flush traces", logging.Error(err))
		}
		cancel()
		rt.tracer = nil
	}
	if rt.Transcript != nil {
		if err := rt.Transcript.Close(); err != nil {
			rt.Logger.Warn("Failed to close transcript", logging.Error(err))
		}
		rt.Transcript = nil
	}
}
