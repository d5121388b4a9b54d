package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crucial707/dermalens/cmd/cli/client"
	"github.com/crucial707/dermalens/cmd/cli/config"
	"github.com/spf13/cobra"
)

// InitAuth registers login, logout, whoami and passwd on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd(), passwdCmd())
}

// loginCmd exchanges a username and password for a bearer token and stores it locally.
func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the DermaLens API",
		Long:  "Authenticate with the DermaLens API and store a token for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				username = prompt(in, "Username: ")
			}
			if password == "" {
				password = prompt(in, "Password: ")
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			var resp struct {
				Token string `json:"token"`
				User  struct {
					Username string `json:"username"`
				} `json:"user"`
			}
			err := client.New().PostJSON("/api/token", map[string]string{
				"username": username,
				"password": password,
			}, &resp)
			if err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}
			if resp.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}

			if err := config.SaveToken(resp.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Printf("Logged in as %s. Token stored in %s.\n", resp.User.Username, config.TokenPath())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to authenticate as")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := config.ClearToken()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("No user logged in.")
				return nil
			}
			fmt.Println("Logged out successfully.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			var me struct {
				ID       int    `json:"id"`
				Username string `json:"username"`
				Age      *int   `json:"age"`
			}
			if err := c.Get("/api/me", &me); err != nil {
				return err
			}
			if me.Age != nil {
				fmt.Printf("%s (id %d, age %d)\n", me.Username, me.ID, *me.Age)
				return nil
			}
			fmt.Printf("%s (id %d)\n", me.Username, me.ID)
			return nil
		},
	}
}

func passwdCmd() *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if current == "" {
				current = prompt(in, "Current password: ")
			}
			if next == "" {
				next = prompt(in, "New password: ")
			}

			var resp struct {
				Message string `json:"message"`
			}
			err = c.PostJSON("/api/password", map[string]string{
				"current_password": current,
				"new_password":     next,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password (prompted when omitted)")
	cmd.Flags().StringVar(&next, "new", "", "New password (prompted when omitted)")

	return cmd
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Fprint(os.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}
