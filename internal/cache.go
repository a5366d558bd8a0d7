package internal

// titleLimit is how much of the triggering message becomes the
// conversation title.
const titleLimit = 40

// ConversationCache is the local mirror of the conversation list: a map
// from id to conversation plus a most-recently-updated-first order for
// display. Source of truth precedence is backend response, then the
// persisted fallback, then empty.
type ConversationCache struct {
	conversations map[string]*Conversation
	order         []string // ids, most recent first
}

// NewConversationCache creates an empty cache.
func NewConversationCache() *ConversationCache {
	return &ConversationCache{conversations: make(map[string]*Conversation)}
}

// Len returns the number of cached conversations.
func (c *ConversationCache) Len() int {
	return len(c.order)
}

// Get returns the conversation for id.
func (c *ConversationCache) Get(id string) (*Conversation, bool) {
	conv, ok := c.conversations[id]
	return conv, ok
}

// Upsert stores conv and moves it to the front of the display order.
// Ids are unique within the cache; an existing entry is replaced.
func (c *ConversationCache) Upsert(conv *Conversation) {
	if conv == nil || conv.ID == "" {
		return
	}
	if _, ok := c.conversations[conv.ID]; ok {
		c.removeFromOrder(conv.ID)
	}
	c.conversations[conv.ID] = conv
	c.order = append([]string{conv.ID}, c.order...)
}

// Rename moves a conversation from a local provisional id to its
// server-confirmed id. The placeholder entry is replaced, never duplicated.
func (c *ConversationCache) Rename(oldID, newID string) {
	if oldID == newID || newID == "" {
		return
	}
	conv, ok := c.conversations[oldID]
	if !ok {
		return
	}
	delete(c.conversations, oldID)
	c.removeFromOrder(oldID)
	conv.ID = newID
	c.Upsert(conv)
}

// Summaries returns the display list, most recent first.
func (c *ConversationCache) Summaries() []ChatSummary {
	out := make([]ChatSummary, 0, len(c.order))
	for _, id := range c.order {
		conv := c.conversations[id]
		out = append(out, ChatSummary{ID: conv.ID, Title: conv.Title, LastMessage: conv.LastMessage})
	}
	return out
}

// MergeRemote replaces the cache contents with the backend's authoritative
// list. Titles are not part of the backend list, so a previously cached
// title survives for a conversation the backend still reports.
func (c *ConversationCache) MergeRemote(entries []ChatListEntry) {
	old := c.conversations
	c.conversations = make(map[string]*Conversation, len(entries))
	c.order = c.order[:0]
	for _, entry := range entries {
		id := string(entry.ID)
		if id == "" {
			continue
		}
		conv := &Conversation{ID: id, LastMessage: entry.LastMessage, Title: DeriveTitle(entry.LastMessage)}
		if prev, ok := old[id]; ok {
			if prev.Title != "" {
				conv.Title = prev.Title
			}
			conv.Messages = prev.Messages
		}
		c.conversations[id] = conv
		c.order = append(c.order, id)
	}
}

// Persist writes the summary list to the fallback store. Best-effort:
// failures are logged and swallowed, never propagated.
func (c *ConversationCache) Persist(store *Store) {
	if store == nil {
		return
	}
	if err := store.SetJSON(KeySummaries, c.Summaries()); err != nil {
		LogWarn("could not persist conversation list: %v", err)
	}
}

// Load replaces the cache contents with the persisted summary list.
// Best-effort: on any failure the cache is simply left empty.
func (c *ConversationCache) Load(store *Store) {
	if store == nil {
		return
	}
	var summaries []ChatSummary
	ok, err := store.GetJSON(KeySummaries, &summaries)
	if err != nil {
		LogWarn("could not load persisted conversation list: %v", err)
		return
	}
	if !ok {
		return
	}
	c.conversations = make(map[string]*Conversation, len(summaries))
	c.order = c.order[:0]
	for _, s := range summaries {
		if s.ID == "" {
			continue
		}
		if _, dup := c.conversations[s.ID]; dup {
			continue
		}
		c.conversations[s.ID] = &Conversation{ID: s.ID, Title: s.Title, LastMessage: s.LastMessage}
		c.order = append(c.order, s.ID)
	}
}

func (c *ConversationCache) removeFromOrder(id string) {
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// DeriveTitle builds a conversation title from the first characters of the
// triggering message.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit])
}
