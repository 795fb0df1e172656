package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/session"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var creds session.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session locally",
		Long: `Logs in against the billing API. The token and cookies are kept in the local
session store until logout or expiry. The password is read from stdin when
--password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				creds.Password = strings.TrimRight(line, "\r\n")
			}
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				user, err := c.Session.Login(ctx, creds)
				if apiclient.AsAPIError(err) != nil {
					return fmt.Errorf("login failed: %s", apiclient.MessageOr(err, "unexpected response"))
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", describeUser(user.Name, user.Role))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear local credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				if err := c.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				user, err := session.Require(c.Session)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeUser(user.Name, user.Role))
				return nil
			})
		},
	}
}

func describeUser(name, role string) string {
	if role == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, role)
}
