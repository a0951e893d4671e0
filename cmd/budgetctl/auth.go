package main

import (
	"fmt"
	"os"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	v1 "github.com/FACorreiaa/budget-tracker/pkg/api/budgetv1"
)

// credentials reads email and password from flags, BUDGET_EMAIL and
// BUDGET_PASSWORD, or the terminal.
func credentials(cmd *cobra.Command) (string, string, error) {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = viper.GetString("email")
	}
	if email == "" {
		var err error
		if email, err = p.ask("Email", ""); err != nil {
			return "", "", err
		}
	}

	password := viper.GetString("password")
	if password == "" {
		var err error
		if password, err = p.ask("Password", ""); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			user, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(SuccessIcon+" Signed in as "+user.Email))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	return cmd
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			c, err := newClient()
			if err != nil {
				return err
			}
			user, err := c.Register(cmd.Context(), &v1.RegisterRequest{
				Email:       email,
				Password:    password,
				DisplayName: name,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(SuccessIcon+" Account created for "+user.Email))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("name", "", "display name")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				fmt.Fprintln(os.Stderr, WarningStyle.Render(WarningIcon+" server logout failed: "+err.Error()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(SuccessIcon+" Signed out"))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account and budget profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.User.GetProfile(cmd.Context(), connect.NewRequest(&v1.GetProfileRequest{}))
			if err != nil {
				return err
			}
			u, p := resp.Msg.User, resp.Msg.Profile
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", BoldStyle.Render("Email:"), u.Email)
			if u.DisplayName != "" {
				fmt.Fprintf(out, "%s %s\n", BoldStyle.Render("Name:"), u.DisplayName)
			}
			if p != nil {
				fmt.Fprintf(out, "%s %s\n", BoldStyle.Render("Currency:"), p.Currency)
				fmt.Fprintf(out, "%s %s\n", BoldStyle.Render("Monthly income:"), p.MonthlyIncome)
			}
			return nil
		},
	}
}
