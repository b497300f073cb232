package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

// dryRun validates a form and previews its diff against current.
func (cli *commandLine) dryRun(name string, current map[string]string, validate func() error, diff func() (url.Values, error), fallback string) error {
	if err := validate(); err != nil {
		return cli.fail(err, fallback)
	}
	changes, err := diff()
	if err != nil {
		return cli.fail(err, fallback)
	}
	return cli.preview(name, current, changes)
}

func teacherFields(t school.Teacher) map[string]string {
	return map[string]string{"name": t.Name, "email": t.Email, "is_active": boolString(t.Active())}
}

func (cli *commandLine) teachersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "teachers",
		Aliases: []string{"teacher"},
		Short:   "Manage teachers",
	}

	var form school.TeacherForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a teacher; an invitation email is sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := cli.svc.AddTeacher(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to add teacher")
			}
			cli.success("Added %s (%s); an invitation was sent to %s", t.Name, t.ID, t.Email)
			return nil
		},
	}
	add.Flags().StringVar(&form.Name, "name", "", "teacher name")
	add.Flags().StringVar(&form.Email, "email", "", "teacher email")

	var (
		name, email string
		dryRun      bool
	)
	update := &cobra.Command{
		Use:   "update TEACHER_ID",
		Short: "Change a teacher's name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := cli.svc.Teacher(cmd.Context(), args[0])
			if err != nil {
				return cli.fail(err, "Failed to load teacher")
			}
			f := school.EditTeacherForm(t)
			if cmd.Flags().Changed("name") {
				f.Name = name
			}
			if cmd.Flags().Changed("email") {
				f.Email = email
			}
			if dryRun {
				return cli.dryRun("teacher "+t.ID, teacherFields(t), f.Validate,
					func() (url.Values, error) { return f.Diff(t) }, "Failed to update teacher")
			}
			t, err = cli.svc.UpdateTeacher(cmd.Context(), t, f)
			if err != nil {
				return cli.fail(err, "Failed to update teacher")
			}
			cli.success("Updated %s", t.Name)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&email, "email", "", "new email")
	update.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List teachers with their invitation status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				teachers, err := cli.svc.Teachers(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load teachers")
				}
				now := cli.svc.Now()
				tw := cli.table("ID", "NAME", "EMAIL", "STATUS")
				for _, t := range teachers {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Email, t.Status(now))
				}
				return tw.Flush()
			},
		},
		add,
		update,
		&cobra.Command{
			Use:   "delete TEACHER_ID",
			Short: "Delete a teacher",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.svc.DeleteTeacher(cmd.Context(), args[0]); err != nil {
					return cli.fail(err, "Failed to delete teacher")
				}
				cli.success("Teacher deleted")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle TEACHER_ID",
			Short: "Activate or deactivate a teacher",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := cli.svc.Teacher(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load teacher")
				}
				active, err := cli.svc.ToggleTeacher(cmd.Context(), t)
				if err != nil {
					return cli.fail(err, "Failed to update teacher status")
				}
				cli.success("%s is now %s", t.Name, activeText(active))
				return nil
			},
		},
		&cobra.Command{
			Use:   "resend TEACHER_ID",
			Short: "Send the invitation email again",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := cli.svc.Teacher(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load teacher")
				}
				if !t.CanResendInvitation() {
					cli.notice("%s already accepted the invitation", t.Name)
					return nil
				}
				if err := cli.svc.ResendTeacherInvitation(cmd.Context(), t.ID); err != nil {
					return cli.fail(err, "Failed to resend invitation")
				}
				cli.success("Invitation sent to %s", t.Email)
				return nil
			},
		},
	)
	return cmd
}

func activeText(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
