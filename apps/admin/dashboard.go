package main

import (
	"github.com/spf13/cobra"
)

func (cli *commandLine) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of the selected school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := cli.svc.Dashboard(cmd.Context())
			if err != nil {
				return cli.fail(err, "Failed to load dashboard")
			}

			activeClasses := 0
			for _, c := range ov.Classes {
				if c.Active() {
					activeClasses++
				}
			}
			pending := 0
			for _, s := range ov.Students {
				if s.Registration() == "pending" {
					pending++
				}
			}

			cli.printf("Active students:        %d\n", ov.Dashboard.SchoolLevel.ActiveStudents)
			cli.printf("Survey completion rate: %.0f%%\n", ov.Dashboard.SchoolLevel.SurveyCompletionRate)
			cli.printf("Teachers:               %d\n", ov.Dashboard.TeacherLevel.TotalTeachers)
			cli.printf("Active locations:       %d\n", len(ov.Locations))
			cli.printf("Classes:                %d (%d active)\n", len(ov.Classes), activeClasses)
			cli.printf("Students:               %d (%d pending registration)\n", len(ov.Students), pending)
			return nil
		},
	}
}
