package storage

import (
	"sync"

	"slackmcp/model"
)

// DefaultHistoryWindow is how many recent entries are sent to the model when
// no window is configured.
const DefaultHistoryWindow = 5

// conversation holds one channel's history. mu guards entries; turn is held by
// the orchestrator for the whole pipeline of one inbound message.
type conversation struct {
	mu      sync.RWMutex
	turn    sync.Mutex
	entries []model.Message
}

// ConversationStore keeps per-channel conversation history in memory.
// Entries are append-only and never evicted; readers only look at a window.
type ConversationStore struct {
	mu       sync.Mutex
	channels map[string]*conversation
}

// NewConversationStore creates an empty store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		channels: make(map[string]*conversation),
	}
}

// get returns the channel's conversation, creating it on first use.
func (s *ConversationStore) get(channel string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[channel]
	if !ok {
		c = &conversation{}
		s.channels[channel] = c
	}
	return c
}

// Acquire blocks until the caller owns the channel's turn and returns the
// release function. Different channels never block each other. Waiters are
// not served in arrival order; callers that need ordering queue before
// calling Acquire, as slack.Bot does.
func (s *ConversationStore) Acquire(channel string) func() {
	c := s.get(channel)
	c.turn.Lock()

	var once sync.Once
	return func() {
		once.Do(c.turn.Unlock)
	}
}

// Append adds an entry to the end of the channel's history.
func (s *ConversationStore) Append(channel string, msg model.Message) {
	if msg.Timestamp.IsZero() {
		msg = model.NewMessage(msg.Role, msg.Content)
	}

	c := s.get(channel)
	c.mu.Lock()
	c.entries = append(c.entries, msg)
	c.mu.Unlock()
}

// Window returns a copy of the last k entries in original order, or all of
// them when fewer than k exist. k <= 0 yields nothing.
func (s *ConversationStore) Window(channel string, k int) []model.Message {
	if k <= 0 {
		return nil
	}

	c := s.get(channel)
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if len(c.entries) > k {
		start = len(c.entries) - k
	}

	out := make([]model.Message, len(c.entries)-start)
	copy(out, c.entries[start:])
	return out
}

// Len reports how many entries the channel holds.
func (s *ConversationStore) Len(channel string) int {
	c := s.get(channel)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Channels returns the number of channels with a conversation.
func (s *ConversationStore) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}
