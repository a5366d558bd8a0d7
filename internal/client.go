package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// noBodyMessage is the synthesized message when the backend sends nothing
// usable at all.
const noBodyMessage = "No response body"

// LogHook receives a line for every request and response/error the client
// issues. Pluggable so tests and the TUI can capture transport traffic.
type LogHook func(format string, args ...interface{})

// Client issues authenticated HTTP requests against the assistant backend
// and normalizes every failure into a single human-readable error.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        LogHook
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Log:        LogDebug,
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}

// Request performs one call and returns the parsed response body. The body
// is always valid JSON: non-JSON responses are wrapped as {"message": text}
// and empty ones synthesized, so callers never crash on an HTML error page.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, token string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log("api request: %s %s (auth=%v)", method, url, token != "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log("api transport error: %s %s: %v", method, url, err)
		return nil, fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log("api read error: %s %s: %v", method, url, err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	parsed := normalizeBody(raw)
	c.log("api response: %s %s -> %d (%d bytes)", method, url, resp.StatusCode, len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(parsed, resp.StatusCode)}
		c.log("api error: %s %s: %s", method, url, apiErr.Message)
		return nil, apiErr
	}

	return parsed, nil
}

// RequestRaw performs one call and returns the body bytes untouched, for
// binary payloads such as PDF exports.
func (c *Client) RequestRaw(ctx context.Context, method, path string, body interface{}, token string) ([]byte, string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log("api request: %s %s (auth=%v)", method, url, token != "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log("api transport error: %s %s: %v", method, url, err)
		return nil, "", fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	c.log("api response: %s %s -> %d (%d bytes)", method, url, resp.StatusCode, len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &APIError{Status: resp.StatusCode, Message: errorMessage(normalizeBody(raw), resp.StatusCode)}
	}

	return raw, resp.Header.Get("Content-Type"), nil
}

// normalizeBody degrades gracefully: valid JSON passes through, plain text
// is wrapped as a message object, and an empty body becomes a synthesized
// one. Crashing on a non-JSON error page is never acceptable.
func normalizeBody(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	text := strings.TrimSpace(string(trimmed))
	if text == "" {
		text = noBodyMessage
	}
	wrapped, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return json.RawMessage(`{"message":"` + noBodyMessage + `"}`)
	}
	return wrapped
}

// errorMessage picks the most specific message the server offered:
// detail, then message, then a generic status line.
func errorMessage(parsed json.RawMessage, status int) string {
	var envelope struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(parsed, &envelope); err == nil {
		if envelope.Detail != "" {
			return envelope.Detail
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return fmt.Sprintf("Request failed (%d)", status)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected login response: %w", err)
	}
	return &out, nil
}

// Signup registers a new account. The backend happens to return a token on
// signup as well; callers may ignore it.
func (c *Client) Signup(ctx context.Context, email, password string) (*LoginResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/auth/signup", LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Arbitrary success body is fine for signup.
		return &LoginResponse{}, nil
	}
	return &out, nil
}

// SendChat posts a user message to the assistant.
func (c *Client) SendChat(ctx context.Context, req ChatRequest, token string) (*ChatResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/chat", req, token)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected chat response: %w", err)
	}
	return &out, nil
}

// ListChats fetches the authoritative conversation list.
func (c *Client) ListChats(ctx context.Context, token string) ([]ChatListEntry, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/chats", nil, token)
	if err != nil {
		return nil, err
	}
	var out ChatListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected chat list response: %w", err)
	}
	return out.Chats, nil
}

// GetChat fetches the full message history for one conversation.
func (c *Client) GetChat(ctx context.Context, id string, token string) ([]Message, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/chats/"+id, nil, token)
	if err != nil {
		return nil, err
	}
	var out ChatHistoryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected chat history response: %w", err)
	}
	return MessagesFromWire(out.Chat.Messages, nil), nil
}

// CalculateTax forwards the chosen amount to the backend calculator.
// VAT uses the purchase amount; income and corporate tax use gross income.
// The unused field is sent as an explicit null.
func (c *Client) CalculateTax(ctx context.Context, grossIncome, purchaseAmount *float64, taxType, token string) (*CalcResponse, error) {
	req := CalcRequest{GrossIncome: grossIncome, PurchaseAmount: purchaseAmount, TaxType: taxType}
	raw, err := c.Request(ctx, http.MethodPost, "/calculator", req, token)
	if err != nil {
		return nil, err
	}
	var out CalcResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected calculator response: %w", err)
	}
	return &out, nil
}

// ExportChat asks the backend to render a conversation. Format "pdf"
// returns the binary document; anything else returns the parsed JSON body.
func (c *Client) ExportChat(ctx context.Context, id, format, token string) ([]byte, json.RawMessage, error) {
	path := "/chats/" + id + "/export"
	req := ExportRequest{ChatID: id, Format: format}
	if format == "pdf" {
		data, _, err := c.RequestRaw(ctx, http.MethodPost, path, req, token)
		if err != nil {
			return nil, nil, err
		}
		return data, nil, nil
	}
	raw, err := c.Request(ctx, http.MethodPost, path, req, token)
	if err != nil {
		return nil, nil, err
	}
	return nil, raw, nil
}

// Health reports backend readiness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unexpected health response: %w", err)
	}
	return &out, nil
}
