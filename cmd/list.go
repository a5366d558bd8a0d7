package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"taxchat/internal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	snippetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	Long: `List your conversations, most recent first.

The list comes from the backend when it is reachable; otherwise the
locally mirrored list from previous runs is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		summaries := env.controller.LoadConversationList(context.Background())
		displaySummaries(summaries)
		return nil
	},
}

func displaySummaries(summaries []internal.ChatSummary) {
	if len(summaries) == 0 {
		fmt.Println(headerStyle.Render("No conversations yet. Start one with `taxchat chat`"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(summaries)))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Last message")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		last := s.LastMessage
		if len(last) > 60 {
			last = last[:57] + "..."
		}
		last = strings.ReplaceAll(last, "\n", " ")

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n",
			idStyle.Render(s.ID),
			snippetStyle.Render(title),
			snippetStyle.Render(last))
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("Tip: open a conversation with `taxchat show <id>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
}
