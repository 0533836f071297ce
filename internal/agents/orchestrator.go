package agents

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/llm"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/metrics"
	"github.com/user/trialchat/internal/observability"
	"github.com/user/trialchat/internal/tools"
)

// DefaultMaxRounds bounds the function-call rounds of a single turn
const DefaultMaxRounds = 10

// Options tunes an Orchestrator
type Options struct {
	SystemPrompt string
	MaxRounds    int
	MaxTokens    int
	Temperature  float64

	// MaxResultChars truncates serialized function results; 0 = unlimited
	MaxResultChars int

	// Stream forwards text fragments to Observer.OnDelta while they arrive
	Stream bool

	// Preflight runs before every turn. A non-nil error blocks the turn and
	// leaves the history untouched.
	Preflight func() error
}

// Orchestrator drives one user turn through the LLM and the function registry
type Orchestrator struct {
	llmClient llm.LLMClient
	registry  *tools.Registry
	opts      Options
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator creates a new orchestrator. logger and m may be nil.
func NewOrchestrator(llmClient llm.LLMClient, registry *tools.Registry, opts Options, logger *logging.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		llmClient: llmClient,
		registry:  registry,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

// Provider returns the name of the LLM provider in use
func (o *Orchestrator) Provider() string {
	return o.llmClient.GetProvider()
}

// MaxRounds returns the dispatch round cap
func (o *Orchestrator) MaxRounds() int {
	return o.opts.MaxRounds
}

// RunTurn appends userText to history and loops between the model and the
// function registry until the model answers with text. The returned history
// holds every message appended so far, also when an error ends the turn.
// history itself is never modified.
func (o *Orchestrator) RunTurn(ctx context.Context, history llmtypes.History, userText string, obs Observer) (llmtypes.History, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if o.opts.Preflight != nil {
		if err := o.opts.Preflight(); err != nil {
			return history, err
		}
	}

	start := time.Now()
	rounds := 0
	defer func() {
		o.metrics.RecordTurn(rounds, time.Since(start))
	}()

	user := llmtypes.UserMessage(userText)
	h := history.Append(user)
	obs.OnMessage(user)

	for {
		resp, err := o.complete(ctx, h, rounds, obs)
		if err != nil {
			return h, errors.NewLLMConnectionError(o.Provider(), err)
		}

		if !resp.HasFunctionCalls() {
			answer := llmtypes.AssistantMessage(resp.Content)
			h = h.Append(answer)
			obs.OnMessage(answer)
			return h, nil
		}

		// text sent alongside calls was already shown to the user
		if resp.Content != "" {
			preamble := llmtypes.AssistantMessage(resp.Content)
			h = h.Append(preamble)
			obs.OnMessage(preamble)
		}

		if rounds >= o.opts.MaxRounds {
			o.logger.Warn("Maximum function-call rounds reached",
				logging.Int("rounds", rounds),
				logging.Int("pending_calls", len(resp.FunctionCalls)),
			)
			return h, errors.NewMaxRoundsError(rounds)
		}
		rounds++

		for _, call := range resp.FunctionCalls {
			h = o.dispatch(ctx, h, call, obs)
		}
	}
}

// complete runs one LLM round over the current history
func (o *Orchestrator) complete(ctx context.Context, h llmtypes.History, round int, obs Observer) (llmtypes.CompletionResponse, error) {
	ctx, span := observability.StartLLMSpan(ctx, o.Provider(), round)
	defer span.End()

	o.logger.Info("Calling LLM",
		logging.String("provider", o.Provider()),
		logging.Int("round", round),
		logging.Int("function_count", o.registry.Len()),
		logging.Int("history_messages", len(h)),
	)

	req := llmtypes.CompletionRequest{
		SystemPrompt: o.opts.SystemPrompt,
		Messages:     h,
		Functions:    o.registry.Definitions(),
		MaxTokens:    o.opts.MaxTokens,
		Temperature:  o.opts.Temperature,
	}
	if o.opts.Stream {
		req.OnDelta = obs.OnDelta
	}

	resp, err := o.llmClient.GenerateCompletion(ctx, req)
	o.metrics.RecordLLMRequest(o.Provider(), resp.Usage.InputTokens, resp.Usage.OutputTokens, err)
	if err != nil {
		observability.RecordError(span, err)
		o.logger.Error("LLM call failed",
			logging.String("provider", o.Provider()),
			logging.Error(err),
		)
		return resp, err
	}

	observability.RecordLLMUsage(span, resp.Usage.InputTokens, resp.Usage.OutputTokens, len(resp.FunctionCalls))
	o.logger.Info("LLM response received",
		logging.String("provider", o.Provider()),
		logging.Int("input_tokens", resp.Usage.InputTokens),
		logging.Int("output_tokens", resp.Usage.OutputTokens),
		logging.Int("function_calls", len(resp.FunctionCalls)),
	)
	return resp, nil
}

// dispatch runs one call and appends its notice and result to h
func (o *Orchestrator) dispatch(ctx context.Context, h llmtypes.History, call llmtypes.FunctionCall, obs Observer) llmtypes.History {
	if call.ID == "" {
		call.ID = "call_" + uuid.NewString()
	}

	notice := llmtypes.NoticeMessage(call)
	h = h.Append(notice)
	obs.OnMessage(notice)
	obs.OnDispatchStart(call)

	ctx, span := observability.StartDispatchSpan(ctx, call.Name)
	result, err := o.registry.Dispatch(ctx, call.Name, call.Arguments)
	if err != nil {
		observability.RecordError(span, err)
		o.logger.Warn("Function call failed",
			logging.String("function", call.Name),
			logging.Error(err),
		)
		result = err.Error()
	}
	span.End()
	o.metrics.RecordFunctionCall(call.Name, err)

	content, encErr := tools.EncodeResult(result)
	if encErr != nil {
		content, _ = tools.EncodeResult(errors.NewFunctionDispatchError(call.Name, encErr).Error())
	}
	content = truncateResult(content, o.opts.MaxResultChars)

	obs.OnDispatchEnd(call, err)

	msg := llmtypes.FunctionResultMessage(call, content)
	h = h.Append(msg)
	obs.OnMessage(msg)
	return h
}

// truncateResult cuts content to at most limit bytes on a rune boundary
func truncateResult(content string, limit int) string {
	if limit <= 0 || len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + fmt.Sprintf("\n[TRUNCATED - function result exceeded %d characters]", limit)
}
