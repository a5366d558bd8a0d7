package cmd

import (
	"context"
	"fmt"

	"taxchat/internal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check backend reachability, session and local storage",
	Long: `Check the health of taxchat by verifying:
  • Backend reachability and readiness
  • Session token presence and expiry
  • Local fallback store accessibility

Useful for debugging connectivity before filing an issue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()
		ctx := context.Background()

		fmt.Println(sectionStyle.Render("taxchat health check"))
		fmt.Println()

		healthy := true

		// Step 1: backend
		fmt.Println("Step 1: Backend...")
		if resp, err := env.client.Health(ctx); err != nil {
			fmt.Println(failStyle.Render("✗ Backend unreachable:"), err)
			healthy = false
		} else {
			fmt.Println(okStyle.Render(fmt.Sprintf("✓ Backend %s (%s)", resp.Status, env.cfg.ServerURL)))
			if resp.Status != "healthy" {
				fmt.Println(warningStyle.Render("⚠ Assistant still initializing, answers may be unavailable"))
			}
		}
		fmt.Println()

		// Step 2: session
		fmt.Println("Step 2: Session...")
		switch {
		case !env.session.Authenticated():
			fmt.Println(warningStyle.Render("⚠ Not logged in. Run `taxchat login`"))
		case env.session.Expired():
			fmt.Println(warningStyle.Render("⚠ Session token expired. Run `taxchat login`"))
		default:
			fmt.Println(okStyle.Render("✓ Session token present"))
			if exp, ok := env.session.ExpiresAt(); ok {
				fmt.Printf("   Expires: %s\n", exp.Format("2006-01-02 15:04"))
			}
		}
		fmt.Println()

		// Step 3: local store
		fmt.Println("Step 3: Local store...")
		if env.store == nil {
			fmt.Println(warningStyle.Render("⚠ Local store unavailable, history fallback disabled"))
		} else {
			var summaries []internal.ChatSummary
			if ok, err := env.store.GetJSON(internal.KeySummaries, &summaries); err != nil {
				fmt.Println(warningStyle.Render("⚠ Local store unreadable:"), err)
			} else if ok {
				fmt.Println(okStyle.Render(fmt.Sprintf("✓ Local store OK (%d cached conversation(s)) at %s", len(summaries), env.store.Path())))
			} else {
				fmt.Println(okStyle.Render(fmt.Sprintf("✓ Local store OK (empty) at %s", env.store.Path())))
			}
		}
		fmt.Println()

		if !healthy {
			return fmt.Errorf("health check failed: backend unreachable")
		}
		internal.PrintSuccess("Health check passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
