package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

func classFields(c school.Class) map[string]string {
	return map[string]string{
		"name":        c.Name,
		"teacher_id":  c.TeacherID,
		"location_id": c.LocationID.String,
		"is_active":   boolString(c.Active()),
	}
}

func (cli *commandLine) classesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "classes",
		Aliases: []string{"class"},
		Short:   "Manage classes",
	}

	var form school.ClassForm
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.svc.AddClass(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to save class")
			}
			cli.success("Added %s (%s)", c.Name, c.ID)
			return nil
		},
	}
	add.Flags().StringVar(&form.Name, "name", "", "class name")
	add.Flags().StringVar(&form.TeacherID, "teacher", "", "teacher id")
	add.Flags().StringVar(&form.LocationID, "location", "", "location id")

	var (
		flagForm school.ClassForm
		dryRun   bool
	)
	update := &cobra.Command{
		Use:   "update CLASS_ID",
		Short: "Change a class; --location '' detaches it from its location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.svc.Class(cmd.Context(), args[0])
			if err != nil {
				return cli.fail(err, "Failed to load class")
			}
			f := school.EditClassForm(c)
			if cmd.Flags().Changed("name") {
				f.Name = flagForm.Name
			}
			if cmd.Flags().Changed("teacher") {
				f.TeacherID = flagForm.TeacherID
			}
			if cmd.Flags().Changed("location") {
				f.LocationID = flagForm.LocationID
			}
			if dryRun {
				return cli.dryRun("class "+c.ID, classFields(c), f.Validate,
					func() (url.Values, error) { return f.Diff(c) }, "Failed to save class")
			}
			c, err = cli.svc.UpdateClass(cmd.Context(), c, f)
			if err != nil {
				return cli.fail(err, "Failed to save class")
			}
			cli.success("Updated %s", c.Name)
			return nil
		},
	}
	update.Flags().StringVar(&flagForm.Name, "name", "", "new name")
	update.Flags().StringVar(&flagForm.TeacherID, "teacher", "", "new teacher id")
	update.Flags().StringVar(&flagForm.LocationID, "location", "", "new location id")
	update.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List classes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				classes, err := cli.svc.Classes(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load classes")
				}
				tw := cli.table("ID", "NAME", "TEACHER", "LOCATION", "ACTIVE")
				for _, c := range classes {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.TeacherName(), c.LocationID.String, yesNo(c.Active()))
				}
				return tw.Flush()
			},
		},
		add,
		update,
		&cobra.Command{
			Use:   "delete CLASS_ID",
			Short: "Delete a class",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.svc.DeleteClass(cmd.Context(), args[0]); err != nil {
					return cli.fail(err, "Failed to delete class")
				}
				cli.success("Class deleted")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle CLASS_ID",
			Short: "Activate or deactivate a class",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := cli.svc.Class(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load class")
				}
				active, err := cli.svc.ToggleClass(cmd.Context(), c)
				if err != nil {
					return cli.fail(err, "Failed to update class status")
				}
				cli.success("%s is now %s", c.Name, activeText(active))
				return nil
			},
		},
	)
	return cmd
}
