package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

// resetPasswordCommand asks the backend to email a reset link. Setting the new
// password happens in the browser.
func (cli *commandLine) resetPasswordCommand() *cobra.Command {
	var form school.PasswordResetForm
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := cli.svc.RequestPasswordReset(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to send the reset email")
			}
			if msg == "" {
				msg = "Check your email for a link to reset your password"
			}
			cli.success("%s", msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "admin email")
	return cmd
}
