package testutil

import (
	"time"

	"taxchat/internal"
)

// FixedTime is a stable timestamp for deterministic tests.
var FixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// SampleConversation builds a two-message conversation for tests.
func SampleConversation(id string) *internal.Conversation {
	return &internal.Conversation{
		ID:          id,
		Title:       "What is VAT?",
		LastMessage: "VAT is 7.5%",
		Messages: []internal.Message{
			{Role: internal.RoleUser, Content: "What is VAT?", CreatedAt: FixedTime},
			{Role: internal.RoleAssistant, Content: "VAT is 7.5%", CreatedAt: FixedTime.Add(2 * time.Second)},
		},
	}
}

// SampleSummaries builds an ordered summary list for tests.
func SampleSummaries() []internal.ChatSummary {
	return []internal.ChatSummary{
		{ID: "c2", Title: "Company income tax", LastMessage: "CIT is 30% for large companies"},
		{ID: "c1", Title: "What is VAT?", LastMessage: "VAT is 7.5%"},
	}
}
