package internal_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"taxchat/internal"
	"taxchat/testutil"
)

// newEnv wires a real client and controller against the mock backend, the
// same way the command layer does.
func newEnv(t *testing.T, mock *testutil.MockBackend) (*internal.Controller, *internal.Store) {
	t.Helper()
	store, err := internal.OpenStore(filepath.Join(testutil.CreateTempDir(t), "taxchat.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	client := internal.NewClient(mock.URL)
	client.Log = func(format string, args ...interface{}) {}

	session := internal.NewSessionStore(store)
	session.Login("integration-token")

	return internal.NewController(client, session, internal.NewConversationCache(), store), store
}

func TestSendFlow_EndToEnd(t *testing.T) {
	mock := testutil.NewMockBackend(t)
	mock.HandleJSON("POST /chat", http.StatusOK, map[string]interface{}{
		"chat_id": "c1",
		"reply":   "VAT is 7.5%",
		"sources": []map[string]string{{"document": "reform.pdf", "excerpt": "7.5%"}},
	})

	ctrl, store := newEnv(t, mock)

	if err := ctrl.SendMessage(context.Background(), "What is VAT?"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if ctrl.ChatID() != "c1" {
		t.Errorf("ChatID() = %q, want c1", ctrl.ChatID())
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("backend received %d requests, want 1", len(reqs))
	}
	if reqs[0].Auth != "Bearer integration-token" {
		t.Errorf("Authorization = %q", reqs[0].Auth)
	}

	var sent internal.ChatRequest
	testutil.JSONUnmarshal(t, reqs[0].Body, &sent)
	if sent.Message != "What is VAT?" {
		t.Errorf("sent message = %q", sent.Message)
	}
	if sent.ChatID != nil {
		t.Errorf("first send carried chat_id %q, want null", *sent.ChatID)
	}

	var persisted []internal.ChatSummary
	ok, err := store.GetJSON(internal.KeySummaries, &persisted)
	if err != nil || !ok {
		t.Fatalf("persisted summaries ok=%v err=%v", ok, err)
	}
	if len(persisted) != 1 || persisted[0].ID != "c1" {
		t.Errorf("persisted = %+v", persisted)
	}
}

func TestSendFlow_BackendRejection(t *testing.T) {
	mock := testutil.NewMockBackend(t)
	mock.HandleJSON("POST /chat", http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})

	ctrl, _ := newEnv(t, mock)

	err := ctrl.SendMessage(context.Background(), "What is VAT?")
	if err == nil {
		t.Fatal("SendMessage() expected error")
	}
	if err.Error() != "Invalid token" {
		t.Errorf("error = %q, want the backend detail verbatim", err.Error())
	}
	if msgs := ctrl.Messages(); msgs[len(msgs)-1].Content != "What is VAT?" {
		t.Error("optimistic message lost after rejection")
	}
}

func TestListAndOpenFlow_EndToEnd(t *testing.T) {
	mock := testutil.NewMockBackend(t)
	mock.HandleJSON("GET /chats", http.StatusOK, map[string]interface{}{
		"chats": []map[string]string{
			{"id": "c2", "last_message": "CIT is 30% for large companies"},
			{"id": "c1", "last_message": "VAT is 7.5%"},
		},
	})
	mock.HandleJSON("GET /chats/c1", http.StatusOK, map[string]interface{}{
		"chat": map[string]interface{}{
			"id": "c1",
			"messages": []map[string]string{
				{"role": "user", "content": "What is VAT?", "created_at": "2026-03-14T09:30:00"},
				{"role": "assistant", "content": "VAT is 7.5%"},
			},
		},
	})

	ctrl, _ := newEnv(t, mock)

	summaries := ctrl.LoadConversationList(context.Background())
	if len(summaries) != 2 || summaries[0].ID != "c2" {
		t.Fatalf("summaries = %+v", summaries)
	}

	if err := ctrl.OpenConversation(context.Background(), "c1"); err != nil {
		t.Fatalf("OpenConversation() error = %v", err)
	}
	msgs := ctrl.Messages()
	if len(msgs) != 2 || msgs[1].Content != "VAT is 7.5%" {
		t.Errorf("messages = %+v", msgs)
	}
	if msgs[0].CreatedAt.IsZero() {
		t.Error("created_at not parsed through the full stack")
	}
}

func TestListFlow_OfflineFallsBackToPersisted(t *testing.T) {
	mock := testutil.NewMockBackend(t)
	// No GET /chats handler: the mock answers 404 and the controller
	// must fall back to the persisted list.

	ctrl, store := newEnv(t, mock)
	if err := store.SetJSON(internal.KeySummaries, testutil.SampleSummaries()); err != nil {
		t.Fatal(err)
	}

	summaries := ctrl.LoadConversationList(context.Background())
	want := testutil.SampleSummaries()
	if len(summaries) != len(want) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(want))
	}
	for i := range want {
		if summaries[i] != want[i] {
			t.Errorf("summaries[%d] = %+v, want %+v", i, summaries[i], want[i])
		}
	}
}
