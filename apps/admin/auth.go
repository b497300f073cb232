package main

import (
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

func (cli *commandLine) signInCommand() *cobra.Command {
	var form school.SignInForm
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as a school admin; the password is prompted when not given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.password(form.Password, "Password")
			if err != nil {
				return err
			}
			form.Password = pwd

			res, err := cli.svc.SignIn(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Sign in failed")
			}
			cli.success("Signed in as %s", cli.sess.Current().Email)
			if res.SchoolID == "" {
				return cli.listSchools(cmd)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&form.Password, "password", "", "admin password")
	return cmd
}

func (cli *commandLine) signOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.svc.SignOut(); err != nil {
				return cli.fail(err, "Sign out failed")
			}
			cli.success("Signed out")
			return nil
		},
	}
}

func (cli *commandLine) acceptInviteCommand() *cobra.Command {
	var form school.InvitationAcceptForm
	cmd := &cobra.Command{
		Use:   "accept-invite",
		Short: "Join a school's team with an invitation token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := vala.BeginValidation().Validate(
				vala.StringNotEmpty(form.Token, "token"),
			).Check(); err != nil {
				_ = cmd.Usage()
				return errHelp
			}
			if err := cli.newPassword(&form.Password, &form.ConfirmPassword); err != nil {
				return err
			}
			if _, err := cli.svc.AcceptInvitation(cmd.Context(), form); err != nil {
				return cli.fail(err, "Failed to accept invitation")
			}
			cli.success("Welcome to the team, %s", form.Name)
			return cli.listSchools(cmd)
		},
	}
	cmd.Flags().StringVar(&form.Token, "token", "", "invitation token from the email")
	cmd.Flags().StringVar(&form.Name, "name", "", "your name")
	cmd.Flags().StringVar(&form.Password, "password", "", "new password")
	return cmd
}

// newPassword prompts for a password and its confirmation, unless pwd is already set.
func (cli *commandLine) newPassword(pwd, confirm *string) error {
	if *pwd != "" {
		*confirm = *pwd
		return nil
	}
	var err error
	if *pwd, err = cli.password("", "Password"); err != nil {
		return err
	}
	*confirm, err = cli.password("", "Confirm password")
	return err
}

func (cli *commandLine) whoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := cli.sess.Current()
			if !sess.Authenticated() {
				cli.notice("Not signed in")
				return nil
			}
			cli.printf("email:  %s\n", sess.Email)
			cli.printf("user:   %s\n", sess.UserID)
			schoolID := sess.SchoolID
			if schoolID == "" {
				schoolID = "none selected"
			}
			cli.printf("school: %s\n", schoolID)
			if exp := sess.ExpiresAt(); !exp.IsZero() {
				if sess.Expired(cli.svc.Now()) {
					cli.notice("session expired at %s", exp.Format(time.RFC1123))
				} else {
					cli.printf("expires: %s\n", exp.Format(time.RFC1123))
				}
			}
			return nil
		},
	}
}

// schools

func (cli *commandLine) schoolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schools",
		Short: "List or select the schools you manage",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your schools; the selected one is starred",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.listSchools(cmd)
			},
		},
		&cobra.Command{
			Use:   "select SCHOOL_ID",
			Short: "Manage another school",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				role, err := cli.svc.SelectSchool(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to select school")
				}
				cli.success("Now managing %s", role.DisplayName())
				return nil
			},
		},
	)
	return cmd
}

func (cli *commandLine) listSchools(cmd *cobra.Command) error {
	roles, err := cli.svc.Schools(cmd.Context())
	if err != nil {
		return cli.fail(err, "Failed to load schools")
	}
	selected := cli.sess.SchoolID()
	tw := cli.table("", "ID", "SCHOOL", "ROLE")
	for _, r := range roles {
		mark := ""
		if r.SchoolID == selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, r.SchoolID, r.DisplayName(), r.Role)
	}
	return tw.Flush()
}
