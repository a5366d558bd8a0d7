package cmd

import (
	"context"
	"fmt"

	"taxchat/internal"

	"github.com/spf13/cobra"
)

var (
	registerEmail    string
	registerPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		email, password, err := gatherCredentials(registerEmail, registerPassword)
		if err != nil {
			return err
		}

		resp, err := env.client.Signup(context.Background(), email, password)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		internal.PrintSuccess(fmt.Sprintf("Account created for %s", email))
		if resp.AccessToken != "" {
			// The backend signs you in on signup; keep the token.
			env.session.Login(resp.AccessToken)
			internal.PrintSuccess("Logged in")
		} else {
			fmt.Println("Run `taxchat login` to sign in.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Account password (prompted if omitted)")
}
