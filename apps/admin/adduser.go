package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

// registerCommand creates a school together with its first admin.
func (cli *commandLine) registerCommand() *cobra.Command {
	var form school.SignUpForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new school and its admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.newPassword(&form.Password, &form.ConfirmPassword); err != nil {
				return err
			}
			res, err := cli.svc.SignUp(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Registration failed")
			}
			if res.EmailConfirmationRequired {
				msg := res.Message
				if msg == "" {
					msg = "Please check your email to confirm your account, then sign in."
				}
				cli.notice("%s", msg)
				return nil
			}
			cli.success("Welcome! %s is registered", form.SchoolName)
			return cli.listSchools(cmd)
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&form.Name, "name", "", "admin name")
	cmd.Flags().StringVar(&form.SchoolName, "school", "", "school name")
	cmd.Flags().StringVar(&form.ContactInfo, "contact", "", "school contact information")
	cmd.Flags().StringVar(&form.Password, "password", "", "admin password, at least 6 characters")
	return cmd
}
