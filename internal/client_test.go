package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.Log = func(format string, args ...interface{}) {}
	return c
}

func TestClient_Request_BearerHeader(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Request(context.Background(), http.MethodPost, "/chat", map[string]string{"message": "hi"}, "tok-123")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer tok-123")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type header = %q, want application/json", gotContentType)
	}
}

func TestClient_Request_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Request(context.Background(), http.MethodGet, "/health", nil, ""); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization header = %q, want empty", gotAuth)
	}
}

func TestClient_Request_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		contentType string
		wantMsg     string
	}{
		{
			name:    "detail wins",
			status:  401,
			body:    `{"detail":"Invalid token","message":"ignored"}`,
			wantMsg: "Invalid token",
		},
		{
			name:    "message when no detail",
			status:  400,
			body:    `{"message":"Bad things"}`,
			wantMsg: "Bad things",
		},
		{
			name:    "generic when neither",
			status:  500,
			body:    `{"error":true}`,
			wantMsg: "Request failed (500)",
		},
		{
			name:        "plain text body becomes the message",
			status:      502,
			body:        "Bad Gateway",
			contentType: "text/plain",
			wantMsg:     "Bad Gateway",
		},
		{
			name:    "empty body synthesizes a message",
			status:  503,
			body:    "",
			wantMsg: noBodyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(srv.URL)
			_, err := c.Request(context.Background(), http.MethodGet, "/x", nil, "")
			if err == nil {
				t.Fatal("Request() expected error, got nil")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Request() error type = %T, want *APIError", err)
			}
			if apiErr.Error() != tt.wantMsg {
				t.Errorf("error message = %q, want %q", apiErr.Error(), tt.wantMsg)
			}
			if apiErr.Status != tt.status {
				t.Errorf("error status = %d, want %d", apiErr.Status, tt.status)
			}
		})
	}
}

func TestClient_Request_NonJSONSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "plain text, not json")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Request(context.Background(), http.MethodGet, "/x", nil, "")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	var wrapped struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		t.Fatalf("response not wrapped as JSON: %v", err)
	}
	if wrapped.Message != "plain text, not json" {
		t.Errorf("wrapped message = %q", wrapped.Message)
	}
}

func TestClient_Request_EmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Request(context.Background(), http.MethodGet, "/x", nil, "")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	var wrapped struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		t.Fatalf("response not wrapped as JSON: %v", err)
	}
	if wrapped.Message != noBodyMessage {
		t.Errorf("wrapped message = %q, want %q", wrapped.Message, noBodyMessage)
	}
}

func TestClient_Request_TransportError(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1") // nothing listens here
	_, err := c.Request(context.Background(), http.MethodGet, "/x", nil, "")
	if err == nil {
		t.Fatal("Request() expected transport error, got nil")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure should not be an *APIError, got %v", apiErr)
	}
}

func TestClient_Request_LogsThroughHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	var lines []string
	c := NewClient(srv.URL)
	c.Log = func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	if _, err := c.Request(context.Background(), http.MethodGet, "/chats", nil, "tok"); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("log hook captured %d line(s), want request and response", len(lines))
	}
}

func TestClient_CalculateTax_ExactBody(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = readAll(t, r)
		fmt.Fprint(w, `{"tax_type":"VAT","gross_amount":100000,"tax_amount":7500,"tax_rate":0.075,"net_amount":107500}`)
	}))
	defer srv.Close()

	amount := 100000.0
	c := newTestClient(srv.URL)
	resp, err := c.CalculateTax(context.Background(), nil, &amount, "vat", "tok")
	if err != nil {
		t.Fatalf("CalculateTax() error = %v", err)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if v, present := body["gross_income"]; !present || v != nil {
		t.Errorf("gross_income = %v (present=%v), want explicit null", v, present)
	}
	if body["purchase_amount"] != 100000.0 {
		t.Errorf("purchase_amount = %v, want 100000", body["purchase_amount"])
	}
	if body["tax_type"] != "vat" {
		t.Errorf("tax_type = %v, want vat", body["tax_type"])
	}
	if len(body) != 3 {
		t.Errorf("request body has %d fields, want exactly 3: %v", len(body), body)
	}

	if resp.TaxAmount != 7500 {
		t.Errorf("TaxAmount = %v, want 7500", resp.TaxAmount)
	}
}

func TestClient_SendChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chat_id": 7, "reply": "VAT is 7.5%", "sources": [{"document":"reform.pdf","excerpt":"7.5%"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	resp, err := c.SendChat(context.Background(), ChatRequest{Message: "What is VAT?"}, "tok")
	if err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}
	if string(resp.ChatID) != "7" {
		t.Errorf("ChatID = %q, want %q (numeric id normalized)", resp.ChatID, "7")
	}
	if resp.Reply != "VAT is 7.5%" {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Document != "reform.pdf" {
		t.Errorf("Sources = %+v", resp.Sources)
	}
}

func TestClient_GetChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chats/c1" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail":"Chat not found"}`)
			return
		}
		fmt.Fprint(w, `{"chat":{"id":"c1","messages":[
			{"role":"user","content":"hi","created_at":"2026-03-14T09:30:00"},
			{"role":"assistant","content":"hello"}
		]}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	msgs, err := c.GetChat(context.Background(), "c1", "tok")
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("GetChat() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].CreatedAt.IsZero() {
		t.Error("created_at was not parsed")
	}
}

func readAll(t *testing.T, r *http.Request) []byte {
	t.Helper()
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read request body: %v", err)
	}
	return data
}
