package cmd

import (
	"fmt"
	"os"

	"taxchat/internal"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	serverURL string
	dataDir   string
	language  string
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taxchat",
	Short: "Chat with the Tax Reform Q&A assistant from your terminal",
	Long: `A terminal client for the Tax Reform Q&A assistant.

Ask questions about the tax reform in an interactive chat, browse your
conversation history, run the tax calculator, and export transcripts.
Conversations are mirrored locally, so the history stays readable even
when the backend is unreachable.

Quick Start:
  taxchat register --email you@example.com   # Create an account
  taxchat login --email you@example.com      # Sign in
  taxchat chat                               # Start chatting
  taxchat list                               # Browse past conversations
  taxchat calc --type vat --amount 100000    # VAT on a purchase`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend base URL (default from config or "+internal.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Local data directory (default ~/.taxchat)")
	rootCmd.PersistentFlags().StringVar(&language, "lang", "", "Preferred reply language (e.g. en, ha, ig, yo)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
