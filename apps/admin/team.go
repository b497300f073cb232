package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

func (cli *commandLine) teamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage the school admins",
	}

	var form school.TeamMemberForm
	invite := &cobra.Command{
		Use:   "invite",
		Short: "Invite a new school admin by email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cli.svc.InviteTeamMember(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to invite team member")
			}
			cli.success("Invitation sent to %s", m.Email)
			return nil
		},
	}
	invite.Flags().StringVar(&form.Name, "name", "", "admin name")
	invite.Flags().StringVar(&form.Email, "email", "", "admin email")

	var (
		name, email string
		dryRun      bool
	)
	update := &cobra.Command{
		Use:   "update MEMBER_ID",
		Short: "Change a school admin's name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cli.svc.TeamMember(cmd.Context(), args[0])
			if err != nil {
				return cli.fail(err, "Failed to load team member")
			}
			f := school.EditTeamMemberForm(m)
			if cmd.Flags().Changed("name") {
				f.Name = name
			}
			if cmd.Flags().Changed("email") {
				f.Email = email
			}
			if dryRun {
				current := map[string]string{"name": m.Name, "email": m.Email}
				return cli.dryRun("team member "+m.Identifier(), current, f.Validate,
					func() (url.Values, error) { return f.Diff(m) }, "Failed to update team member")
			}
			m, err = cli.svc.UpdateTeamMember(cmd.Context(), m, f)
			if err != nil {
				return cli.fail(err, "Failed to update team member")
			}
			cli.success("Updated %s", m.DisplayName())
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&email, "email", "", "new email")
	update.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List school admins and pending invitations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				members, err := cli.svc.TeamMembers(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load team members")
				}
				now := cli.svc.Now()
				tw := cli.table("ID", "NAME", "EMAIL", "STATUS")
				for _, m := range members {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Identifier(), m.DisplayName(), m.Email, m.Status(now))
				}
				return tw.Flush()
			},
		},
		invite,
		update,
		&cobra.Command{
			Use:   "delete MEMBER_ID",
			Short: "Remove a school admin or cancel an invitation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.svc.DeleteTeamMember(cmd.Context(), args[0]); err != nil {
					return cli.fail(err, "Failed to delete team member")
				}
				cli.success("Team member removed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle MEMBER_ID",
			Short: "Activate or deactivate a school admin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := cli.svc.TeamMember(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load team member")
				}
				active, err := cli.svc.ToggleTeamMember(cmd.Context(), m)
				if err != nil {
					return cli.fail(err, "Failed to update team member status")
				}
				cli.success("%s is now %s", m.DisplayName(), activeText(active))
				return nil
			},
		},
		&cobra.Command{
			Use:   "resend MEMBER_ID",
			Short: "Send the invitation email again",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := cli.svc.TeamMember(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load team member")
				}
				if !m.CanResendInvitation() {
					cli.notice("%s already accepted the invitation", m.DisplayName())
					return nil
				}
				if err := cli.svc.ResendTeamInvitation(cmd.Context(), m.Identifier()); err != nil {
					return cli.fail(err, "Failed to resend invitation")
				}
				cli.success("Invitation sent to %s", m.Email)
				return nil
			},
		},
	)
	return cmd
}
