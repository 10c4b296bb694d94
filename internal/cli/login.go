package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// prompt reads one line from stdin after printing label.
func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = prompt("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt("Password: "); err != nil {
					return err
				}
			}

			pair, err := api.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if !sess.OnLogin(cmd.Context(), pair) {
				return fmt.Errorf("login succeeded but session validation failed")
			}

			fmt.Printf("Logged in as %s\n", sess.User().FullName())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess.OnLogout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newActivateCmd() *cobra.Command {
	var code, password string

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a new account with an activation code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if code == "" {
				if code, err = prompt("Activation code: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt("Choose a password: "); err != nil {
					return err
				}
			}

			pair, err := api.Activate(cmd.Context(), code, password)
			if err != nil {
				return fmt.Errorf("activate: %w", err)
			}
			if !sess.OnLogin(cmd.Context(), pair) {
				return fmt.Errorf("activation succeeded but session validation failed")
			}

			fmt.Printf("Account activated. Logged in as %s\n", sess.User().FullName())
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Activation code (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sess.Authorised() {
				fmt.Println("Not logged in.")
				return nil
			}
			u := sess.User()
			fmt.Printf("%s <%s> (%s)\n", u.FullName(), u.Email, u.Role)
			return nil
		},
	}
}
