// Package slack connects the orchestrator to Slack over Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"slackmcp/logging"
	"slackmcp/mcp"
	"slackmcp/orchestrator"
)

// API is the part of the Slack Web API the bot uses. *slack.Client
// satisfies it.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error)
}

// Handler processes one inbound message and replies through sender.
type Handler interface {
	Handle(ctx context.Context, in orchestrator.Inbound, sender orchestrator.Sender) error
}

// ToolLister lists the tools shown on the Home tab.
type ToolLister interface {
	ListAll() []mcp.ToolDescriptor
}

// Bot receives Slack events and hands messages to the Handler.
type Bot struct {
	api     API
	socket  *socketmode.Client
	handler Handler
	tools   ToolLister
	logger  *slog.Logger

	mu        sync.RWMutex
	botUserID string

	// tails holds, per channel, the done channel of the last message
	// dispatched there. Each message waits for its predecessor.
	queueMu sync.Mutex
	tails   map[string]chan struct{}

	inflight sync.WaitGroup
}

// NewBot creates a Socket Mode bot from a bot token (xoxb-) and an app-level
// token (xapp-).
func NewBot(botToken, appToken string, handler Handler, tools ToolLister, logger *slog.Logger, debug bool) *Bot {
	logger = logging.Component(logger, "slack")
	sdkLog := slog.NewLogLogger(logger.Handler(), slog.LevelDebug)

	api := slack.New(botToken,
		slack.OptionAppLevelToken(appToken),
		slack.OptionDebug(debug),
		slack.OptionLog(sdkLog),
	)
	socket := socketmode.New(api,
		socketmode.OptionDebug(debug),
		socketmode.OptionLog(sdkLog),
	)

	b := newBot(api, handler, tools, logger)
	b.socket = socket
	return b
}

func newBot(api API, handler Handler, tools ToolLister, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = logging.Component(nil, "slack")
	}
	return &Bot{
		api:     api,
		handler: handler,
		tools:   tools,
		logger:  logger,
		tails:   make(map[string]chan struct{}),
	}
}

// Authenticate resolves the bot's own user id with auth.test.
func (b *Bot) Authenticate(ctx context.Context) (string, error) {
	resp, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth.test failed: %w", err)
	}
	if resp.UserID == "" {
		return "", errors.New("slack auth.test returned no user id")
	}

	b.mu.Lock()
	b.botUserID = resp.UserID
	b.mu.Unlock()

	b.logger.Info("authenticated to slack", "user_id", resp.UserID, "user", resp.User, "team", resp.Team)
	return resp.UserID, nil
}

// BotUserID returns the id resolved by Authenticate.
func (b *Bot) BotUserID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.botUserID
}

// Run reads Socket Mode events until ctx is cancelled, then waits for
// in-flight messages to finish.
func (b *Bot) Run(ctx context.Context) error {
	if b.socket == nil {
		return errors.New("slack bot has no socket mode client")
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- b.socket.RunContext(ctx)
	}()

	defer b.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("socket mode stopped: %w", err)
			}
			return nil
		case evt, ok := <-b.socket.Events:
			if !ok {
				return nil
			}
			b.handleSocketEvent(ctx, evt)
		}
	}
}

func (b *Bot) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		b.logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection error, retrying")
	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			b.logger.Debug("ignored events api payload", "type", fmt.Sprintf("%T", evt.Data))
			return
		}
		if evt.Request != nil {
			b.socket.Ack(*evt.Request)
		}
		b.Dispatch(ctx, event)
	default:
		b.logger.Debug("ignored socket mode event", "type", evt.Type)
	}
}

// Dispatch routes one Events API callback. Message handling runs in its own
// goroutine; Wait blocks until those finish. It reports whether the event
// was accepted.
func (b *Bot) Dispatch(ctx context.Context, event slackevents.EventsAPIEvent) bool {
	if event.Type != slackevents.CallbackEvent {
		return false
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		b.spawn(ctx, orchestrator.Inbound{
			Channel:  ev.Channel,
			User:     ev.User,
			Text:     ev.Text,
			ThreadTS: threadOf(ev.ThreadTimeStamp, ev.TimeStamp),
		})
		return true

	case *slackevents.MessageEvent:
		if ev.ChannelType != "im" || ev.SubType != "" {
			return false
		}
		b.spawn(ctx, orchestrator.Inbound{
			Channel:  ev.Channel,
			User:     ev.User,
			Text:     ev.Text,
			ThreadTS: threadOf(ev.ThreadTimeStamp, ev.TimeStamp),
		})
		return true

	case *slackevents.AppHomeOpenedEvent:
		if ev.Tab != "" && ev.Tab != "home" {
			return false
		}
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			if err := b.PublishHome(ctx, ev.User); err != nil {
				b.logger.Error("failed to publish home view", "user", ev.User, "error", err)
			}
		}()
		return true

	default:
		b.logger.Debug("ignored inner event", "type", event.InnerEvent.Type)
		return false
	}
}

// spawn handles in on its own goroutine. Messages in the same channel are
// handled one after another in dispatch order; channels run in parallel.
func (b *Bot) spawn(ctx context.Context, in orchestrator.Inbound) {
	in.RequestID = uuid.NewString()
	b.logger.Debug("message received", "request_id", in.RequestID, "channel", in.Channel, "user", in.User)

	done := make(chan struct{})
	b.queueMu.Lock()
	prev := b.tails[in.Channel]
	b.tails[in.Channel] = done
	b.queueMu.Unlock()

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer b.finish(in.Channel, done)

		if prev != nil {
			<-prev
		}
		if err := b.handler.Handle(ctx, in, b); err != nil {
			b.logger.Error("message handling failed", "request_id", in.RequestID, "error", err)
		}
	}()
}

func (b *Bot) finish(channel string, done chan struct{}) {
	b.queueMu.Lock()
	if b.tails[channel] == done {
		delete(b.tails, channel)
	}
	b.queueMu.Unlock()
	close(done)
}

// Wait blocks until every dispatched event has been handled.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

// Send posts text to channel, in the thread rooted at threadTS when set.
// It implements orchestrator.Sender.
func (b *Bot) Send(ctx context.Context, channel, threadTS, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(ToMrkdwn(text), false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, _, err := b.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	return nil
}

// PublishHome publishes the Home tab for userID.
func (b *Bot) PublishHome(ctx context.Context, userID string) error {
	var tools []mcp.ToolDescriptor
	if b.tools != nil {
		tools = b.tools.ListAll()
	}

	if _, err := b.api.PublishViewContext(ctx, userID, HomeView(tools), ""); err != nil {
		return fmt.Errorf("views.publish: %w", err)
	}
	return nil
}

func threadOf(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}
