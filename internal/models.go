package internal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Message roles as used on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source is a document citation attached to an assistant reply.
type Source struct {
	Document string `json:"document"`
	Excerpt  string `json:"excerpt"`
}

// Message is a single turn in a conversation. Once appended to a
// conversation it is never mutated; ordering is insertion order.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
}

// Conversation is an ordered sequence of messages identified by an id.
// The id is either server-confirmed or a local provisional one (see
// Controller) until the backend adopts the conversation.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	Messages    []Message `json:"messages,omitempty"`
}

// ChatSummary is the persisted sidebar entry for a conversation. The JSON
// keys match what the fallback store has always contained, so stored lists
// round-trip unchanged.
type ChatSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"lastMessage"`
}

// FlexID tolerates backends that serialize ids as JSON numbers as well as
// strings. It always normalizes to the string form.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// LoginRequest is the body of POST /auth/login and POST /auth/signup.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued by the backend.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// ChatRequest is the body of POST /chat. ChatID is a pointer so a brand-new
// conversation sends an explicit null and the backend allocates an id.
// Language is omitted entirely when not set.
type ChatRequest struct {
	Message  string  `json:"message"`
	ChatID   *string `json:"chat_id"`
	Language string  `json:"language,omitempty"`
}

// WireMessage is a message as the backend serializes it.
type WireMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ChatResponse is the body of a successful POST /chat. Messages, when
// present, is the authoritative full history for the conversation.
type ChatResponse struct {
	ChatID   FlexID        `json:"chat_id"`
	Reply    string        `json:"reply"`
	Messages []WireMessage `json:"messages,omitempty"`
	Sources  []Source      `json:"sources,omitempty"`
}

// ChatListEntry is one element of GET /chats.
type ChatListEntry struct {
	ID          FlexID `json:"id"`
	LastMessage string `json:"last_message"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// ChatListResponse is the body of GET /chats.
type ChatListResponse struct {
	Chats []ChatListEntry `json:"chats"`
}

// ChatHistoryResponse is the body of GET /chats/:id.
type ChatHistoryResponse struct {
	Chat struct {
		ID       FlexID        `json:"id"`
		Messages []WireMessage `json:"messages"`
	} `json:"chat"`
}

// CalcRequest is the body of POST /calculator. Both amount fields are
// always present on the wire; the one not used by the chosen tax type is
// an explicit null.
type CalcRequest struct {
	GrossIncome    *float64 `json:"gross_income"`
	PurchaseAmount *float64 `json:"purchase_amount"`
	TaxType        string   `json:"tax_type"`
}

// CalcResponse is the tax breakdown returned by the backend. No local
// computation happens on this side.
type CalcResponse struct {
	TaxType     string  `json:"tax_type"`
	GrossAmount float64 `json:"gross_amount"`
	TaxAmount   float64 `json:"tax_amount"`
	TaxRate     float64 `json:"tax_rate"`
	NetAmount   float64 `json:"net_amount"`
	Description string  `json:"description,omitempty"`
}

// ExportRequest is the body of POST /chats/:id/export.
type ExportRequest struct {
	ChatID string `json:"chat_id"`
	Format string `json:"format"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FromWire converts a backend message into the local representation.
// Timestamps the backend can't produce stay zero rather than failing.
func FromWire(wm WireMessage) Message {
	msg := Message{Role: wm.Role, Content: wm.Content}
	if wm.CreatedAt != "" {
		if t, err := parseWireTime(wm.CreatedAt); err == nil {
			msg.CreatedAt = t
		}
	}
	return msg
}

// MessagesFromWire maps a backend history, attaching top-level sources to
// the final assistant message (the backend reports citations per response,
// not per stored message).
func MessagesFromWire(wire []WireMessage, sources []Source) []Message {
	msgs := make([]Message, 0, len(wire))
	for _, wm := range wire {
		msgs = append(msgs, FromWire(wm))
	}
	if len(sources) > 0 {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == RoleAssistant {
				msgs[i].Sources = sources
				break
			}
		}
	}
	return msgs
}

// parseWireTime accepts the timestamp formats the backend emits.
func parseWireTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999", // naive datetime, no zone
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	var err error
	var t time.Time
	for _, layout := range layouts {
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	// Some deployments send epoch milliseconds.
	if ms, convErr := strconv.ParseInt(s, 10, 64); convErr == nil {
		return time.Unix(0, ms*int64(time.Millisecond)), nil
	}
	return time.Time{}, err
}
