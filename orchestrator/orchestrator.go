// Package orchestrator turns one inbound chat message into one reply.
//
// Each message walks a fixed state machine: the conversation window is
// built, the model is asked, and a [TOOL] block in the reply is resolved,
// executed and narrated. Every path, degraded or not, ends with exactly one
// assistant entry in the channel's history and one reply to the sender.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"slackmcp/logging"
	"slackmcp/mcp"
	"slackmcp/model"
	"slackmcp/storage"
	"slackmcp/toolcall"
)

// State is a step of the per-message pipeline.
type State string

const (
	StateReceived              State = "received"
	StateContextBuilt          State = "context-built"
	StateModelInvoked          State = "model-invoked"
	StateNoToolCall            State = "no-tool-call"
	StateToolCallDetected      State = "tool-call-detected"
	StateToolResolved          State = "tool-resolved"
	StateToolExecuted          State = "tool-executed"
	StateInterpretationInvoked State = "interpretation-invoked"
	StateResponded             State = "responded"
)

// Dispatcher resolves tool names to the provider serving them.
type Dispatcher interface {
	Resolve(name string) (mcp.ToolProvider, bool)
	ListAll() []mcp.ToolDescriptor
	Suggest(name string) (string, bool)
}

// Sender delivers a reply to a channel, threaded under threadTS when set.
type Sender interface {
	Send(ctx context.Context, channel, threadTS, text string) error
}

// Inbound is one user message handed over by the chat adapter.
type Inbound struct {
	RequestID string
	Channel   string
	User      string
	Text      string
	ThreadTS  string
}

// Outcome reports what Process did with a message.
type Outcome struct {
	Text    string
	States  []State
	Tool    string
	Ignored bool
}

// Options tunes the pipeline. Zero values fall back to defaults.
type Options struct {
	HistoryWindow int
	ModelTimeout  time.Duration
	ToolTimeout   time.Duration
	Retry         RetryPolicy
	SystemIntro   string
}

type Orchestrator struct {
	model  model.Provider
	tools  Dispatcher
	store  *storage.ConversationStore
	logger *slog.Logger
	opts   Options

	mu        sync.RWMutex
	botUserID string
}

func New(p model.Provider, tools Dispatcher, store *storage.ConversationStore, logger *slog.Logger, opts Options) *Orchestrator {
	if store == nil {
		store = storage.NewConversationStore()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = storage.DefaultHistoryWindow
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = NewRetryPolicy(1, 0, 1)
	}
	return &Orchestrator{
		model:  p,
		tools:  tools,
		store:  store,
		logger: logging.Component(logger, "orchestrator"),
		opts:   opts,
	}
}

// SetBotUserID records the bot's own user id, used to drop its own messages
// and strip mentions of it.
func (o *Orchestrator) SetBotUserID(id string) {
	o.mu.Lock()
	o.botUserID = id
	o.mu.Unlock()
}

func (o *Orchestrator) botID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.botUserID
}

// Store exposes the conversation history.
func (o *Orchestrator) Store() *storage.ConversationStore {
	return o.store
}

// Handle processes in and delivers the reply through sender. A panic inside
// the pipeline is recovered and answered with a generic apology.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound, sender Sender) error {
	logger := o.logger.With("request_id", in.RequestID, "channel", in.Channel)

	out := o.Process(ctx, in)
	if out.Ignored {
		return nil
	}

	if err := sender.Send(ctx, in.Channel, in.ThreadTS, out.Text); err != nil {
		logger.Error("failed to deliver reply", "error", err)
		return fmt.Errorf("deliver reply to %s: %w", in.Channel, err)
	}
	return nil
}

// Process runs the pipeline for one message and returns the final text
// without delivering it. A panic is turned into the generic apology while
// the channel's turn is still held, so the apology is recorded before the
// next message on the channel starts.
func (o *Orchestrator) Process(ctx context.Context, in Inbound) (out Outcome) {
	out = Outcome{States: []State{StateReceived}}
	logger := o.logger.With("request_id", in.RequestID, "channel", in.Channel)

	botID := o.botID()
	if botID != "" && in.User == botID {
		out.Ignored = true
		logger.Debug("ignoring own message")
		return out
	}

	text := stripMention(in.Text, botID)

	release := o.store.Acquire(in.Channel)
	defer release()

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("panic: %v", r)
			logger.Error("message processing panicked", "error", panicErr, "stack", string(debug.Stack()))
			out = Outcome{Text: GenericApology(panicErr), States: []State{StateReceived, StateResponded}, Tool: out.Tool}
			o.store.Append(in.Channel, model.NewMessage(model.RoleAssistant, out.Text))
		}
	}()

	o.store.Append(in.Channel, model.NewMessage(model.RoleUser, text))

	messages := o.buildRequest(in.Channel)
	out.States = append(out.States, StateContextBuilt)

	reply, err := o.complete(ctx, messages)
	out.States = append(out.States, StateModelInvoked)

	switch {
	case err != nil:
		logger.Error("model call failed", "error", err)
		out.Text = GenericApology(err)
	default:
		out.Text = o.handleReply(ctx, logger, in.Channel, reply, &out)
	}

	o.store.Append(in.Channel, model.NewMessage(model.RoleAssistant, out.Text))
	out.States = append(out.States, StateResponded)
	return out
}

func (o *Orchestrator) buildRequest(channel string) []model.Message {
	var tools []mcp.ToolDescriptor
	if o.tools != nil {
		tools = o.tools.ListAll()
	}

	window := o.store.Window(channel, o.opts.HistoryWindow)
	messages := make([]model.Message, 0, len(window)+1)
	messages = append(messages, model.NewMessage(model.RoleSystem, BuildSystemPrompt(o.opts.SystemIntro, tools)))
	return append(messages, window...)
}

func (o *Orchestrator) complete(ctx context.Context, messages []model.Message) (string, error) {
	if o.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ModelTimeout)
		defer cancel()
	}
	return model.Complete(ctx, o.model, messages)
}

// handleReply applies the parse outcome and returns the final text.
func (o *Orchestrator) handleReply(ctx context.Context, logger *slog.Logger, channel, reply string, out *Outcome) string {
	parsed := toolcall.Parse(reply)
	if !parsed.HasToolCall() {
		out.States = append(out.States, StateNoToolCall)
		return reply
	}

	out.States = append(out.States, StateToolCallDetected)
	out.Tool = parsed.ToolName
	logger = logger.With("tool", parsed.ToolName)

	switch parsed.Kind {
	case toolcall.KindPartial:
		logger.Warn("incomplete tool call")
		if parsed.ToolName == "" {
			return fmt.Sprintf(partialUnnamedTemplate, parsed.Prose)
		}
		return fmt.Sprintf(partialTemplate, parsed.ToolName, parsed.Prose)
	case toolcall.KindMalformed:
		logger.Warn("malformed tool arguments", "error", parsed.Err)
		return fmt.Sprintf(malformedTemplate, parsed.ToolName, parsed.Prose)
	}

	args, err := parsed.ArgumentMap()
	if err != nil {
		logger.Warn("tool arguments are not an object", "error", err)
		return fmt.Sprintf(malformedTemplate, parsed.ToolName, parsed.Prose)
	}

	var provider mcp.ToolProvider
	found := false
	if o.tools != nil {
		provider, found = o.tools.Resolve(parsed.ToolName)
	}
	if !found {
		logger.Warn("tool not available")
		text := fmt.Sprintf(notAvailableTemplate, parsed.ToolName, parsed.Prose)
		if o.tools != nil {
			if suggestion, ok := o.tools.Suggest(parsed.ToolName); ok {
				text += fmt.Sprintf(suggestionTemplate, suggestion)
			}
		}
		return text
	}
	out.States = append(out.States, StateToolResolved)

	result, err := o.execute(ctx, logger, provider, parsed.ToolName, args)
	if err != nil {
		logger.Error("tool execution failed", "server", provider.Name(), "error", err)
		return fmt.Sprintf(executionTemplate, parsed.ToolName, err, parsed.Prose)
	}
	out.States = append(out.States, StateToolExecuted)

	raw := resultText(result)
	o.store.Append(channel, model.NewMessage(model.RoleSystem, fmt.Sprintf(toolResultTemplate, parsed.ToolName, raw)))

	narration, err := o.complete(ctx, narrationMessages(parsed.ToolName, parsed.RawArguments, raw))
	out.States = append(out.States, StateInterpretationInvoked)
	if err != nil {
		logger.Warn("narration failed, using raw result", "error", err)
		return fallbackText(parsed.ToolName, result)
	}
	return narration
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, provider mcp.ToolProvider, name string, args map[string]any) (*mcp.ToolResult, error) {
	var result *mcp.ToolResult

	err := o.opts.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		callCtx := ctx
		if o.opts.ToolTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.opts.ToolTimeout)
			defer cancel()
		}

		res, err := provider.ExecuteTool(callCtx, name, args)
		if err != nil {
			logger.Warn("tool attempt failed", "attempt", attempt, "max_attempts", o.opts.Retry.MaxAttempts, "error", err)
			return err
		}
		if res == nil {
			return errors.New("tool returned no result")
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// stripMention removes a leading <@BOTID> token.
func stripMention(text, botID string) string {
	text = strings.TrimSpace(text)
	if botID == "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "<@"+botID+">"))
}
