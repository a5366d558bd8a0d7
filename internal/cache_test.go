package internal

import (
	"path/filepath"
	"strings"
	"testing"
)

func summaryIDs(c *ConversationCache) []string {
	summaries := c.Summaries()
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	return ids
}

func TestConversationCache_UpsertMovesToFront(t *testing.T) {
	c := NewConversationCache()
	c.Upsert(&Conversation{ID: "a", LastMessage: "one"})
	c.Upsert(&Conversation{ID: "b", LastMessage: "two"})
	c.Upsert(&Conversation{ID: "c", LastMessage: "three"})

	got := summaryIDs(c)
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	// Updating an existing conversation promotes it, without duplicating.
	c.Upsert(&Conversation{ID: "a", LastMessage: "updated"})
	got = summaryIDs(c)
	want = []string{"a", "c", "b"}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after re-upsert = %v, want %v", got, want)
		}
	}
}

func TestConversationCache_UpsertIgnoresEmptyID(t *testing.T) {
	c := NewConversationCache()
	c.Upsert(&Conversation{ID: ""})
	c.Upsert(nil)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestConversationCache_Rename(t *testing.T) {
	c := NewConversationCache()
	c.Upsert(&Conversation{ID: "local-1", Title: "What is VAT?", LastMessage: "VAT is 7.5%"})
	c.Upsert(&Conversation{ID: "other"})

	c.Rename("local-1", "c1")

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (rename must not duplicate)", c.Len())
	}
	if _, ok := c.Get("local-1"); ok {
		t.Error("provisional id still present after rename")
	}
	conv, ok := c.Get("c1")
	if !ok {
		t.Fatal("renamed conversation not found under server id")
	}
	if conv.Title != "What is VAT?" || conv.LastMessage != "VAT is 7.5%" {
		t.Errorf("rename lost content: %+v", conv)
	}
	if summaryIDs(c)[0] != "c1" {
		t.Errorf("renamed conversation should lead the order, got %v", summaryIDs(c))
	}
}

func TestConversationCache_RenameUnknownIDIsNoOp(t *testing.T) {
	c := NewConversationCache()
	c.Upsert(&Conversation{ID: "a"})
	c.Rename("missing", "b")
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestConversationCache_MergeRemote(t *testing.T) {
	c := NewConversationCache()
	c.Upsert(&Conversation{
		ID:       "c1",
		Title:    "My VAT question",
		Messages: []Message{{Role: RoleUser, Content: "What is VAT?"}},
	})
	c.Upsert(&Conversation{ID: "gone", Title: "Stale"})

	c.MergeRemote([]ChatListEntry{
		{ID: FlexID("c2"), LastMessage: "CIT is 30% for large companies"},
		{ID: FlexID("c1"), LastMessage: "VAT is 7.5%"},
	})

	got := summaryIDs(c)
	if len(got) != 2 || got[0] != "c2" || got[1] != "c1" {
		t.Fatalf("order = %v, want backend order [c2 c1]", got)
	}
	if _, ok := c.Get("gone"); ok {
		t.Error("conversation the backend dropped survived the merge")
	}

	c1, _ := c.Get("c1")
	if c1.Title != "My VAT question" {
		t.Errorf("cached title lost in merge: %q", c1.Title)
	}
	if len(c1.Messages) != 1 {
		t.Errorf("cached messages lost in merge")
	}
	if c1.LastMessage != "VAT is 7.5%" {
		t.Errorf("last message = %q, want the backend's value", c1.LastMessage)
	}

	c2, _ := c.Get("c2")
	if c2.Title != "CIT is 30% for large companies" {
		t.Errorf("new entry title = %q, want derived from last message", c2.Title)
	}
}

func TestConversationCache_PersistAndLoadRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer store.Close()

	c := NewConversationCache()
	c.Upsert(&Conversation{ID: "c1", Title: "What is VAT?", LastMessage: "VAT is 7.5%"})
	c.Upsert(&Conversation{ID: "c2", Title: "Company income tax", LastMessage: "CIT is 30% for large companies"})
	c.Persist(store)

	// The stored value uses the historical JSON key names.
	raw, ok, err := store.Get(KeySummaries)
	if err != nil || !ok {
		t.Fatalf("Get(%s) ok=%v err=%v", KeySummaries, ok, err)
	}
	for _, key := range []string{`"id"`, `"title"`, `"lastMessage"`} {
		if !strings.Contains(raw, key) {
			t.Errorf("persisted JSON missing %s: %s", key, raw)
		}
	}

	fresh := NewConversationCache()
	fresh.Load(store)

	got := summaryIDs(fresh)
	if len(got) != 2 || got[0] != "c2" || got[1] != "c1" {
		t.Fatalf("reloaded order = %v, want [c2 c1]", got)
	}
	conv, _ := fresh.Get("c1")
	if conv.Title != "What is VAT?" || conv.LastMessage != "VAT is 7.5%" {
		t.Errorf("reloaded conversation = %+v", conv)
	}
}

func TestConversationCache_LoadNilStoreLeavesCacheEmpty(t *testing.T) {
	c := NewConversationCache()
	c.Load(nil)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	c.Persist(nil) // must not panic
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short stays intact", "What is VAT?", "What is VAT?"},
		{"exactly forty", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"long is cut at forty runes", strings.Repeat("a", 41), strings.Repeat("a", 40)},
		{"multibyte counts runes not bytes", strings.Repeat("é", 45), strings.Repeat("é", 40)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.in); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
