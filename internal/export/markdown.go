package export

import (
	"fmt"
	"io"

	"taxchat/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	title := conv.Title
	if title == "" {
		title = conv.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	if conv.ID != "" {
		_, _ = fmt.Fprintf(w, "**Conversation:** %s  \n", conv.ID)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range conv.Messages {
		label := "Assistant"
		if msg.Role == internal.RoleUser {
			label = "You"
		}

		timestamp := ""
		if !msg.CreatedAt.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.CreatedAt.Format("2006-01-02 15:04"))
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, msg.Content)

		if len(msg.Sources) > 0 {
			_, _ = fmt.Fprintf(w, "_Sources:_\n\n")
			for _, src := range msg.Sources {
				_, _ = fmt.Fprintf(w, "- **%s**: %s\n", src.Document, src.Excerpt)
			}
			_, _ = fmt.Fprintf(w, "\n")
		}

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
