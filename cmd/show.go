package cmd

import (
	"context"
	"fmt"

	"taxchat/internal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation's messages",
	Long: `Show the full message history of one conversation.

When the backend cannot be reached, the locally cached summary is shown
instead, so you still see what the conversation was about.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		if err := env.requireAuth(); err != nil {
			internal.LogWarn("%v", err)
		}

		// Warm the cache so the degraded path has a summary to fall
		// back on.
		env.controller.LoadConversationList(context.Background())

		if err := env.controller.OpenConversation(context.Background(), args[0]); err != nil {
			return fmt.Errorf("could not open conversation %s: %w", args[0], err)
		}

		displayConversation(args[0], env.controller.Messages())
		return nil
	},
}

func displayConversation(id string, messages []internal.Message) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Conversation %s (%d message(s))", id, len(messages))))
	fmt.Println()

	for _, msg := range messages {
		label := assistantLabelStyle.Render("Assistant")
		if msg.Role == internal.RoleUser {
			label = userLabelStyle.Render("You")
		}

		stamp := ""
		if !msg.CreatedAt.IsZero() {
			stamp = " " + timestampStyle.Render(msg.CreatedAt.Format("2006-01-02 15:04"))
		}

		fmt.Printf("%s%s\n%s\n", label, stamp, msg.Content)
		for _, src := range msg.Sources {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("  ↳ %s: %s", src.Document, src.Excerpt)))
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
