package slack

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"slackmcp/mcp"
	"slackmcp/orchestrator"
	"slackmcp/provider/testutil"
	"slackmcp/storage"
)

type posted struct {
	channel string
	values  url.Values
}

type fakeAPI struct {
	mu        sync.Mutex
	authErr   error
	posts     []posted
	published []string
	views     []slack.HomeTabViewRequest
}

func (f *fakeAPI) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &slack.AuthTestResponse{UserID: "UBOT", User: "mcp-assistant", Team: "acme"}, nil
}

func (f *fakeAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("xoxb-test", channelID, "https://slack.com/api/", options...)
	if err != nil {
		return "", "", err
	}
	f.mu.Lock()
	f.posts = append(f.posts, posted{channel: channelID, values: values})
	f.mu.Unlock()
	return channelID, "1.0", nil
}

func (f *fakeAPI) PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, userID)
	f.views = append(f.views, view)
	return &slack.ViewResponse{}, nil
}

type recordingHandler struct {
	mu  sync.Mutex
	got []orchestrator.Inbound
}

func (h *recordingHandler) Handle(ctx context.Context, in orchestrator.Inbound, sender orchestrator.Sender) error {
	h.mu.Lock()
	h.got = append(h.got, in)
	h.mu.Unlock()
	return sender.Send(ctx, in.Channel, in.ThreadTS, "ack")
}

func callback(data any) slackevents.EventsAPIEvent {
	return slackevents.EventsAPIEvent{
		Type:       slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{Data: data},
	}
}

// slowFirstHandler stalls on the first message so a later one would overtake
// it without per-channel ordering.
type slowFirstHandler struct {
	mu    sync.Mutex
	order []string
}

func (h *slowFirstHandler) Handle(ctx context.Context, in orchestrator.Inbound, sender orchestrator.Sender) error {
	if in.Text == "first" {
		time.Sleep(30 * time.Millisecond)
	}
	h.mu.Lock()
	h.order = append(h.order, in.Channel+":"+in.Text)
	h.mu.Unlock()
	return nil
}

func TestDispatchKeepsChannelOrder(t *testing.T) {
	handler := &slowFirstHandler{}
	b := newBot(&fakeAPI{}, handler, nil, nil)
	ctx := context.Background()

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		b.Dispatch(ctx, callback(&slackevents.MessageEvent{
			Channel: "D1", User: "U1", Text: text, ChannelType: "im",
			TimeStamp: "10" + strconv.Itoa(i) + ".0",
		}))
	}
	b.Dispatch(ctx, callback(&slackevents.AppMentionEvent{Channel: "C2", User: "U2", Text: "other", TimeStamp: "200.0"}))
	b.Wait()

	var d1 []string
	otherBeforeFirst := false
	for _, entry := range handler.order {
		switch {
		case strings.HasPrefix(entry, "D1:"):
			d1 = append(d1, strings.TrimPrefix(entry, "D1:"))
		case len(d1) == 0:
			otherBeforeFirst = true
		}
	}
	if strings.Join(d1, ",") != "first,second,third" {
		t.Errorf("expected dispatch order in D1, got %v", d1)
	}
	if !otherBeforeFirst {
		t.Errorf("expected other channel not to wait behind D1, got %v", handler.order)
	}
	if len(b.tails) != 0 {
		t.Errorf("expected channel queues to drain, got %d", len(b.tails))
	}
}

func TestAuthenticate(t *testing.T) {
	b := newBot(&fakeAPI{}, &recordingHandler{}, nil, nil)

	id, err := b.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "UBOT" || b.BotUserID() != "UBOT" {
		t.Errorf("expected UBOT, got %q / %q", id, b.BotUserID())
	}

	failing := newBot(&fakeAPI{authErr: errors.New("invalid_auth")}, &recordingHandler{}, nil, nil)
	if _, err := failing.Authenticate(context.Background()); err == nil {
		t.Error("expected auth error, got nil")
	}
}

func TestDispatchRouting(t *testing.T) {
	tests := []struct {
		name       string
		event      slackevents.EventsAPIEvent
		accepted   bool
		wantThread string
	}{
		{
			name:       "mention in channel",
			event:      callback(&slackevents.AppMentionEvent{Channel: "C1", User: "U1", Text: "<@UBOT> hi", TimeStamp: "100.1"}),
			accepted:   true,
			wantThread: "100.1",
		},
		{
			name:       "mention inside thread",
			event:      callback(&slackevents.AppMentionEvent{Channel: "C1", User: "U1", Text: "hi", TimeStamp: "100.2", ThreadTimeStamp: "99.0"}),
			accepted:   true,
			wantThread: "99.0",
		},
		{
			name:       "direct message",
			event:      callback(&slackevents.MessageEvent{Channel: "D1", User: "U1", Text: "hello", ChannelType: "im", TimeStamp: "200.1"}),
			accepted:   true,
			wantThread: "200.1",
		},
		{
			name:     "channel message without mention",
			event:    callback(&slackevents.MessageEvent{Channel: "C1", User: "U1", Text: "chatter", ChannelType: "channel"}),
			accepted: false,
		},
		{
			name:     "edited direct message",
			event:    callback(&slackevents.MessageEvent{Channel: "D1", User: "U1", Text: "x", ChannelType: "im", SubType: "message_changed"}),
			accepted: false,
		},
		{
			name:     "not a callback",
			event:    slackevents.EventsAPIEvent{Type: slackevents.URLVerification},
			accepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			handler := &recordingHandler{}
			b := newBot(api, handler, nil, nil)

			got := b.Dispatch(context.Background(), tt.event)
			b.Wait()

			if got != tt.accepted {
				t.Errorf("expected accepted=%v, got %v", tt.accepted, got)
			}
			if !tt.accepted {
				if len(handler.got) != 0 {
					t.Errorf("expected no handled messages, got %d", len(handler.got))
				}
				return
			}
			if len(handler.got) != 1 {
				t.Fatalf("expected 1 handled message, got %d", len(handler.got))
			}
			in := handler.got[0]
			if in.ThreadTS != tt.wantThread {
				t.Errorf("expected thread %q, got %q", tt.wantThread, in.ThreadTS)
			}
			if in.RequestID == "" {
				t.Error("expected request id")
			}
			if len(api.posts) != 1 || api.posts[0].values.Get("thread_ts") != tt.wantThread {
				t.Errorf("expected reply threaded at %q, got %+v", tt.wantThread, api.posts)
			}
		})
	}
}

func TestDispatchHomeOpened(t *testing.T) {
	registry := mcp.NewRegistry(nil)
	api := &fakeAPI{}
	b := newBot(api, &recordingHandler{}, registry, nil)

	if !b.Dispatch(context.Background(), callback(&slackevents.AppHomeOpenedEvent{User: "U1", Tab: "home"})) {
		t.Fatal("expected home event accepted")
	}
	b.Wait()

	if len(api.published) != 1 || api.published[0] != "U1" {
		t.Errorf("expected home published for U1, got %v", api.published)
	}

	if b.Dispatch(context.Background(), callback(&slackevents.AppHomeOpenedEvent{User: "U1", Tab: "messages"})) {
		t.Error("expected messages tab ignored")
	}
}

func TestSendConvertsMarkdown(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, &recordingHandler{}, nil, nil)

	if err := b.Send(context.Background(), "C1", "", "**done**"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(api.posts))
	}
	if got := api.posts[0].values.Get("text"); got != "*done*" {
		t.Errorf("expected mrkdwn text, got %q", got)
	}
	if _, ok := api.posts[0].values["thread_ts"]; ok {
		t.Error("expected no thread_ts for top-level reply")
	}
}

func TestEndToEndDirectMessage(t *testing.T) {
	api := &fakeAPI{}
	p := testutil.NewMockProvider("m", testutil.Texts("Hi! How can I help?")...)
	orch := orchestrator.New(p, mcp.NewRegistry(nil), storage.NewConversationStore(), nil, orchestrator.Options{})

	b := newBot(api, orch, nil, nil)
	id, err := b.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orch.SetBotUserID(id)

	b.Dispatch(context.Background(), callback(&slackevents.MessageEvent{Channel: "D1", User: "U1", Text: "hello", ChannelType: "im", TimeStamp: "1.0"}))
	b.Dispatch(context.Background(), callback(&slackevents.MessageEvent{Channel: "D1", User: "UBOT", Text: "echo", ChannelType: "im", TimeStamp: "1.1"}))
	b.Wait()

	if len(api.posts) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(api.posts))
	}
	if got := api.posts[0].values.Get("text"); got != "Hi! How can I help?" {
		t.Errorf("expected model reply, got %q", got)
	}
	if orch.Store().Len("D1") != 2 {
		t.Errorf("expected user and assistant entries, got %d", orch.Store().Len("D1"))
	}
}
