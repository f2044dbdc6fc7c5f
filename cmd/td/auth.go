package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskdeck/internal/api"
	"taskdeck/internal/session"
)

// seedSession stores identity state and fetches the permission grants once,
// the way the web client seeds localStorage after signin/verification.
func seedSession(ctx context.Context, client *api.Client, res api.SignInResult) error {
	client.BearerToken = res.Tokens.Access
	perms, err := client.Permissions(ctx, res.User.ID)
	if err != nil {
		return fmt.Errorf("fetch permissions: %w", err)
	}
	return sessionStore().Save(session.Session{
		AccessToken:  res.Tokens.Access,
		RefreshToken: res.Tokens.Refresh,
		UserID:       res.User.ID,
		UserName:     res.User.Name,
		Role:         res.UserRole,
		Verified:     res.IsVerified,
		Permissions:  perms,
	})
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := seedSession(cmd.Context(), client, res); err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", res.User.Name, res.UserRole)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sessionStore().Clear(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func signupCmd() *cobra.Command {
	var p api.SignUpParams
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.SignUp(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Println("signup successful, check your email for an OTP and run td verify-otp")
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Email, "email", "", "account email")
	cmd.Flags().StringVar(&p.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&p.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&p.Password, "password", "", "account password")
	cmd.Flags().StringVar(&p.Role, "role", "User", "account role (User or Admin)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func verifyOTPCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Verify the signup OTP and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.VerifyOTP(cmd.Context(), email, otp)
			if err != nil {
				return err
			}
			if err := seedSession(cmd.Context(), client, res); err != nil {
				return err
			}
			fmt.Printf("verified, logged in as %s (%s)\n", res.User.Name, res.UserRole)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "one-time code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func forgotPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.ResetPassword(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Println("reset link sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func resetPasswordCmd() *cobra.Command {
	var uid, token, newPassword string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Confirm a password reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.ConfirmResetPassword(cmd.Context(), newPassword, uid, token); err != nil {
				return err
			}
			fmt.Println("password reset successful, login with td login")
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "reset uid from the link")
	cmd.Flags().StringVar(&token, "token", "", "reset token from the link")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}
