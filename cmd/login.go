package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"taxchat/internal"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in against the backend with your email and password.

The issued token is persisted locally so subsequent commands are
authenticated until you run 'taxchat logout' or the token expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		email, password, err := gatherCredentials(loginEmail, loginPassword)
		if err != nil {
			return err
		}

		resp, err := env.client.Login(context.Background(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if resp.AccessToken == "" {
			return fmt.Errorf("login failed: server sent no token")
		}

		env.session.Login(resp.AccessToken)
		internal.PrintSuccess(fmt.Sprintf("Logged in as %s", email))
		if exp, ok := env.session.ExpiresAt(); ok {
			internal.LogDebug("session token expires %s", exp.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// gatherCredentials fills missing fields interactively. Passwords are read
// without echo when stdin is a terminal.
func gatherCredentials(email, password string) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return "", "", fmt.Errorf("email is required")
	}

	if password == "" {
		fmt.Print("Password: ")
		if term.IsTerminal(int(syscall.Stdin)) {
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return "", "", fmt.Errorf("failed to read password: %w", err)
			}
			password = string(raw)
		} else {
			line, err := reader.ReadString('\n')
			if err != nil {
				return "", "", fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
	}
	if password == "" {
		return "", "", fmt.Errorf("password is required")
	}

	return email, password, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted if omitted)")
}
