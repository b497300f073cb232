package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core"
	"github.com/trezcool/schooladmin/core/icon"
	"github.com/trezcool/schooladmin/core/school"
	rostersvc "github.com/trezcool/schooladmin/services/roster"
)

func studentFields(s school.Student) map[string]string {
	return map[string]string{
		"name":          s.Name,
		"class_id":      s.ClassID,
		"icon_sequence": s.IconSequence.String(),
		"is_active":     boolString(s.Active()),
	}
}

func studentClass(s school.Student) string {
	if s.Class != nil && s.Class.Name != "" {
		return s.Class.Name
	}
	return s.ClassID
}

// showCode prints a generated code, warning when the backend did not vouch for it.
func (cli *commandLine) showCode(res icon.Result) {
	cli.printf("Code: %s\n", codeText(res.Sequence))
	if res.Origin == icon.OriginLocal {
		cli.notice("The platform could not propose a code; this one was drawn locally and may already be used in the school")
	}
}

func (cli *commandLine) studentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "students",
		Aliases: []string{"student"},
		Short:   "Manage students and their registration codes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List students with their registration codes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				students, err := cli.svc.Students(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load students")
				}
				tw := cli.table("ID", "NAME", "CLASS", "CODE", "REGISTRATION", "ACTIVE")
				for _, s := range students {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						s.ID, s.Name, studentClass(s), strings.Join(s.IconSequence.Glyphs(), " "), s.Registration(), yesNo(s.Active()))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "code STUDENT_NAME",
			Short: "Propose a registration code without saving anything",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := strings.TrimSpace(args[0])
				if err := vala.BeginValidation().Validate(
					vala.StringNotEmpty(name, "name"),
				).Check(); err != nil {
					_ = cmd.Usage()
					return errHelp
				}
				cli.showCode(cli.svc.GenerateCode(cmd.Context(), &icon.Tracker{}, name))
				return nil
			},
		},
		cli.addStudentCommand(),
		cli.updateStudentCommand(),
		&cobra.Command{
			Use:   "delete STUDENT_ID",
			Short: "Delete a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.svc.DeleteStudent(cmd.Context(), args[0]); err != nil {
					return cli.fail(err, "Failed to delete student")
				}
				cli.success("Student deleted")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle STUDENT_ID",
			Short: "Activate or deactivate a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := cli.svc.Student(cmd.Context(), args[0])
				if err != nil {
					return cli.fail(err, "Failed to load student")
				}
				active, err := cli.svc.ToggleStudent(cmd.Context(), s)
				if err != nil {
					return cli.fail(err, "Failed to update student status")
				}
				cli.success("%s is now %s", s.Name, activeText(active))
				return nil
			},
		},
		cli.exportStudentsCommand(),
		cli.importStudentsCommand(),
	)
	return cmd
}

func (cli *commandLine) addStudentCommand() *cobra.Command {
	var (
		form school.StudentForm
		code string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student; a registration code is generated unless --code is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := form.Validate(); err != nil {
				return cli.fail(err, "Failed to save student")
			}
			if code != "" {
				seq, err := icon.ParseSequence(code)
				if err != nil {
					return cli.fail(core.NewValidationError(err), "Invalid registration code")
				}
				if err := form.SetSequence(seq); err != nil {
					return cli.fail(err, "Failed to save student")
				}
			} else {
				res, err := cli.svc.RegenerateCode(cmd.Context(), &icon.Tracker{}, &form)
				if err != nil {
					return cli.fail(err, "Failed to generate a registration code")
				}
				cli.showCode(res)
			}

			s, err := cli.svc.AddStudent(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to save student")
			}
			seq := s.IconSequence
			if seq.Empty() {
				seq = form.IconSequence
			}
			cli.success("Added %s (%s) with code %s", s.Name, s.ID, codeText(seq))
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "student name")
	cmd.Flags().StringVar(&form.ClassID, "class", "", "class id")
	cmd.Flags().StringVar(&code, "code", "", `registration code as icon ids in order, e.g. "5,1,19,3"`)
	return cmd
}

func (cli *commandLine) updateStudentCommand() *cobra.Command {
	var (
		name, classID, code string
		newCode, dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "update STUDENT_ID",
		Short: "Change a student; the registration code only changes with --code or --new-code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code != "" && newCode {
				return cli.fail(errors.New("use either --code or --new-code"), "")
			}
			s, err := cli.svc.Student(cmd.Context(), args[0])
			if err != nil {
				return cli.fail(err, "Failed to load student")
			}
			f := school.EditStudentForm(s)
			if cmd.Flags().Changed("name") {
				f.Name = name
			}
			if cmd.Flags().Changed("class") {
				f.ClassID = classID
			}
			switch {
			case code != "":
				seq, err := icon.ParseSequence(code)
				if err != nil {
					return cli.fail(core.NewValidationError(err), "Invalid registration code")
				}
				f.Unlock()
				if err := f.SetSequence(seq); err != nil {
					return cli.fail(err, "Failed to save student")
				}
			case newCode:
				f.Unlock()
				res, err := cli.svc.RegenerateCode(cmd.Context(), &icon.Tracker{}, &f)
				if err != nil {
					return cli.fail(err, "Failed to generate a registration code")
				}
				cli.showCode(res)
			}

			if dryRun {
				return cli.dryRun("student "+s.ID, studentFields(s), f.Validate,
					func() (url.Values, error) { return f.Diff(s) }, "Failed to save student")
			}
			s, err = cli.svc.UpdateStudent(cmd.Context(), s, f)
			if err != nil {
				return cli.fail(err, "Failed to save student")
			}
			cli.success("Updated %s", s.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&classID, "class", "", "new class id")
	cmd.Flags().StringVar(&code, "code", "", "replace the registration code with these icon ids")
	cmd.Flags().BoolVar(&newCode, "new-code", false, "replace the registration code with a generated one")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")
	return cmd
}

func (cli *commandLine) exportStudentsCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the student roster to an xlsx spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			students, err := cli.svc.Students(cmd.Context())
			if err != nil {
				return cli.fail(err, "Failed to load students")
			}
			classes, err := cli.svc.Classes(cmd.Context())
			if err != nil {
				return cli.fail(err, "Failed to load classes")
			}

			var w io.Writer = cli.out
			if out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return cli.fail(err, "Failed to create the roster file")
				}
				defer file.Close()
				w = file
			}
			if err := rostersvc.Export(w, students, classes); err != nil {
				return cli.fail(err, "Failed to write the roster")
			}
			if out != "-" {
				cli.success("Exported %d students to %s", len(students), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "students.xlsx", "file to write, - for standard output")
	return cmd
}

func (cli *commandLine) importStudentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Add the students listed in an xlsx spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return cli.fail(err, "Failed to open the roster")
			}
			defer file.Close()

			classes, err := cli.svc.Classes(cmd.Context())
			if err != nil {
				return cli.fail(err, "Failed to load classes")
			}
			forms, err := rostersvc.Import(file, classes)
			if err != nil {
				return cli.fail(err, "Failed to read the roster")
			}

			failed := 0
			for _, f := range forms {
				s, err := cli.svc.AddStudent(cmd.Context(), f)
				if err != nil {
					if errors.Is(err, core.ErrUnauthenticated) || errors.Is(err, core.ErrNoSchool) {
						return cli.fail(err, "")
					}
					failed++
					cli.printf("%s: %s\n", f.Name, cli.color.Red(core.ErrorMessage(err, "Failed to save student")))
					continue
				}
				cli.printf("%s: %s\n", s.Name, codeText(s.IconSequence))
			}
			if failed > 0 {
				return cli.fail(errors.Errorf("%d of %d students were not imported", failed, len(forms)), "")
			}
			cli.success("Imported %d students", len(forms))
			return nil
		},
	}
}
