package internal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Greeting opens every new chat.
const Greeting = "Hello! I'm the Tax Reform assistant. Ask me anything about the reform, VAT, income tax or the levy changes, or start the calculator with `taxchat calc`."

// localIDPrefix marks provisional ids for conversations the backend has
// not adopted yet.
const localIDPrefix = "local-"

// SendState tracks the lifecycle of a send on the active conversation.
type SendState int

const (
	StateIdle SendState = iota
	StateSending
	StateReconciled
	StateFailed
)

// Backend is the slice of the API client the controller needs. The
// concrete *Client satisfies it; tests substitute a fake.
type Backend interface {
	SendChat(ctx context.Context, req ChatRequest, token string) (*ChatResponse, error)
	ListChats(ctx context.Context, token string) ([]ChatListEntry, error)
	GetChat(ctx context.Context, id string, token string) ([]Message, error)
}

// Controller orchestrates the conversation state: optimistic append,
// backend round-trip, reconciliation, and list bookkeeping. The browser
// original ran single-threaded; here view code drives sends from
// goroutines, so a mutex guards the state. Reconciliation is still
// last-resolved-wins for overlapping sends; there is deliberately no
// request identity or queueing.
type Controller struct {
	backend Backend
	session *SessionStore
	cache   *ConversationCache
	store   *Store // may be nil

	language string
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	chatID   string
	messages []Message
	state    SendState
}

// NewController creates a controller starting on a fresh chat.
func NewController(backend Backend, session *SessionStore, cache *ConversationCache, store *Store) *Controller {
	c := &Controller{
		backend: backend,
		session: session,
		cache:   cache,
		store:   store,
		now:     time.Now,
		newID:   func() string { return localIDPrefix + uuid.NewString() },
	}
	c.StartNewChat()
	return c
}

// SetLanguage sets the reply language forwarded with each send ("" omits
// the field) and persists the preference.
func (c *Controller) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
	if c.store != nil && lang != "" {
		if err := c.store.SetJSON(KeyLanguage, lang); err != nil {
			LogWarn("could not persist language preference: %v", err)
		}
	}
}

// ChatID returns the active conversation id, "" for an unsent new chat.
func (c *Controller) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// State returns the state of the most recent send action.
func (c *Controller) State() SendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the active conversation's message list.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Summaries returns the cached conversation list, most recent first.
func (c *Controller) Summaries() []ChatSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Summaries()
}

// SendMessage appends the user's text optimistically, posts it to the
// assistant and reconciles the response. Empty or whitespace-only input is
// a silent no-op. On failure the optimistic message stays visible, the
// error is returned for the view to surface, and the state returns to
// Idle. Overlapping sends are not coalesced; the last response to resolve
// determines the final state.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.chatID == "" {
		c.chatID = c.newID()
	}
	sentTo := c.chatID
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text, CreatedAt: c.now()})
	c.state = StateSending

	req := ChatRequest{Message: text, Language: c.language}
	if !strings.HasPrefix(sentTo, localIDPrefix) {
		id := sentTo
		req.ChatID = &id
	}
	token := c.session.Token()
	c.mu.Unlock()

	resp, err := c.backend.SendChat(ctx, req, token)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// Keep the optimistic message; no rollback, no retry.
		c.state = StateIdle
		return err
	}

	if serverID := string(resp.ChatID); serverID != "" && serverID != c.chatID {
		// The backend adopted a locally-initiated conversation: the
		// provisional id is replaced, never duplicated.
		c.cache.Rename(c.chatID, serverID)
		c.chatID = serverID
	}

	if len(resp.Messages) > 0 {
		// The server is authoritative for ordering and content.
		c.messages = MessagesFromWire(resp.Messages, resp.Sources)
	} else {
		c.messages = append(c.messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Reply,
			CreatedAt: c.now(),
			Sources:   resp.Sources,
		})
	}

	last := resp.Reply
	if last == "" && len(c.messages) > 0 {
		last = c.messages[len(c.messages)-1].Content
	}
	conv := &Conversation{ID: c.chatID, Title: DeriveTitle(text), LastMessage: last, Messages: c.messages}
	if existing, ok := c.cache.Get(c.chatID); ok && existing.Title != "" {
		conv.Title = existing.Title
	}
	c.cache.Upsert(conv)
	c.cache.Persist(c.store)

	c.state = StateReconciled
	return nil
}

// StartNewChat resets the active conversation to a single greeting with no
// id. Idempotent; cached conversations are untouched.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatID = ""
	c.messages = []Message{{Role: RoleAssistant, Content: Greeting, CreatedAt: c.now()}}
	c.state = StateIdle
}

// LoadConversationList fetches the authoritative list from the backend; on
// any failure (missing token included) it falls back to the last persisted
// list so previously seen conversations are not lost.
func (c *Controller) LoadConversationList(ctx context.Context) []ChatSummary {
	token := c.session.Token()
	if token != "" {
		entries, err := c.backend.ListChats(ctx, token)
		if err == nil {
			c.mu.Lock()
			c.cache.MergeRemote(entries)
			c.cache.Persist(c.store)
			out := c.cache.Summaries()
			c.mu.Unlock()
			return out
		}
		LogWarn("conversation list unavailable, using local fallback: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Load(c.store)
	return c.cache.Summaries()
}

// OpenConversation makes id the active conversation and loads its history.
// When the fetch fails it degrades to the cached summary's last message as
// a single assistant line: lossy, but it never crashes the view.
func (c *Controller) OpenConversation(ctx context.Context, id string) error {
	msgs, err := c.backend.GetChat(ctx, id, c.session.Token())

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		conv, ok := c.cache.Get(id)
		if !ok || conv.LastMessage == "" {
			return err
		}
		LogWarn("history for %s unavailable, showing cached summary: %v", id, err)
		c.chatID = id
		c.messages = []Message{{Role: RoleAssistant, Content: conv.LastMessage}}
		c.state = StateIdle
		return nil
	}

	c.chatID = id
	c.messages = msgs
	c.state = StateIdle

	if conv, ok := c.cache.Get(id); ok {
		conv.Messages = msgs
		if len(msgs) > 0 {
			conv.LastMessage = msgs[len(msgs)-1].Content
		}
	}
	return nil
}

// ActiveConversation snapshots the active chat for export and display.
func (c *Controller) ActiveConversation() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := &Conversation{ID: c.chatID}
	if cached, ok := c.cache.Get(c.chatID); ok {
		conv.Title = cached.Title
		conv.LastMessage = cached.LastMessage
	}
	conv.Messages = make([]Message, len(c.messages))
	copy(conv.Messages, c.messages)
	return conv
}
