package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooladmin/core/school"
)

func locationFields(l school.Location) map[string]string {
	return map[string]string{
		"name":        l.Name,
		"address":     l.Address,
		"city":        l.City,
		"prefecture":  l.Prefecture,
		"postal_code": l.PostalCode,
		"phone":       l.Phone,
		"email":       l.Email,
		"is_active":   boolString(l.Active()),
	}
}

// locationFlags binds the location form fields to flags.
func locationFlags(cmd *cobra.Command, f *school.LocationForm, active *bool) {
	cmd.Flags().StringVar(&f.Name, "name", "", "location name")
	cmd.Flags().StringVar(&f.Address, "address", "", "street address")
	cmd.Flags().StringVar(&f.City, "city", "", "city")
	cmd.Flags().StringVar(&f.Prefecture, "prefecture", "", "prefecture or region")
	cmd.Flags().StringVar(&f.PostalCode, "postal-code", "", "postal code")
	cmd.Flags().StringVar(&f.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&f.Email, "email", "", "contact email")
	cmd.Flags().BoolVar(active, "active", true, "whether the location is in use")
}

var locationFlagFields = map[string]func(f *school.LocationForm) *string{
	"name":        func(f *school.LocationForm) *string { return &f.Name },
	"address":     func(f *school.LocationForm) *string { return &f.Address },
	"city":        func(f *school.LocationForm) *string { return &f.City },
	"prefecture":  func(f *school.LocationForm) *string { return &f.Prefecture },
	"postal-code": func(f *school.LocationForm) *string { return &f.PostalCode },
	"phone":       func(f *school.LocationForm) *string { return &f.Phone },
	"email":       func(f *school.LocationForm) *string { return &f.Email },
}

func (cli *commandLine) locationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"location"},
		Short:   "Manage school locations",
	}

	var (
		addForm   school.LocationForm
		addActive bool
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addForm.IsActive = null.BoolFrom(addActive)
			l, err := cli.svc.AddLocation(cmd.Context(), addForm)
			if err != nil {
				return cli.fail(err, "Failed to save location")
			}
			cli.success("Added %s (%s)", l.Name, l.ID)
			return nil
		},
	}
	locationFlags(add, &addForm, &addActive)

	var (
		flagForm   school.LocationForm
		flagActive bool
		dryRun     bool
	)
	update := &cobra.Command{
		Use:   "update LOCATION_ID",
		Short: "Change a location; an empty value clears the field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := cli.svc.Location(cmd.Context(), args[0])
			if err != nil {
				return cli.fail(err, "Failed to load location")
			}
			f := school.EditLocationForm(l)
			for flag, field := range locationFlagFields {
				if cmd.Flags().Changed(flag) {
					*field(&f) = *field(&flagForm)
				}
			}
			if cmd.Flags().Changed("active") {
				f.IsActive = null.BoolFrom(flagActive)
			}
			if dryRun {
				return cli.dryRun("location "+l.ID, locationFields(l), f.Validate,
					func() (url.Values, error) { return f.Diff(l) }, "Failed to save location")
			}
			l, err = cli.svc.UpdateLocation(cmd.Context(), l, f)
			if err != nil {
				return cli.fail(err, "Failed to save location")
			}
			cli.success("Updated %s", l.Name)
			return nil
		},
	}
	locationFlags(update, &flagForm, &flagActive)
	update.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				locs, err := cli.svc.Locations(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load locations")
				}
				tw := cli.table("ID", "NAME", "CITY", "PHONE", "ACTIVE")
				for _, l := range locs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.City, l.Phone, yesNo(l.Active()))
				}
				return tw.Flush()
			},
		},
		add,
		update,
		&cobra.Command{
			Use:   "delete LOCATION_ID",
			Short: "Delete a location",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := cli.svc.DeleteLocation(cmd.Context(), args[0]); err != nil {
					return cli.fail(err, "Failed to delete location")
				}
				cli.success("Location deleted")
				return nil
			},
		},
	)
	return cmd
}
