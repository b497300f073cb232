package main

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

func themeFields(t school.Theme) map[string]string {
	return map[string]string{
		"primary_color":   t.PrimaryColor,
		"secondary_color": t.SecondaryColor,
		"accent_color":    t.AccentColor,
	}
}

func (cli *commandLine) brandingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branding",
		Short: "Manage the school's colors and images",
	}

	var (
		primary, secondary, accent string
		dryRun                     bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the theme colors, as #RRGGBB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, err := cli.svc.Theme(cmd.Context())
			if err != nil {
				return cli.fail(err, "Failed to load theme")
			}
			f := school.EditThemeForm(theme)
			if cmd.Flags().Changed("primary") {
				f.PrimaryColor = primary
			}
			if cmd.Flags().Changed("secondary") {
				f.SecondaryColor = secondary
			}
			if cmd.Flags().Changed("accent") {
				f.AccentColor = accent
			}
			if dryRun {
				return cli.dryRun("theme", themeFields(theme), f.Validate, func() (url.Values, error) {
					updated, err := f.Diff(theme)
					if err != nil {
						return nil, err
					}
					vals := url.Values{}
					for k, v := range themeFields(updated) {
						vals.Set(k, v)
					}
					return vals, nil
				}, "Failed to save theme")
			}
			theme, err = cli.svc.UpdateTheme(cmd.Context(), theme, f)
			if err != nil {
				return cli.fail(err, "Failed to save theme")
			}
			cli.success("Theme saved: %s %s %s", theme.PrimaryColor, theme.SecondaryColor, theme.AccentColor)
			return nil
		},
	}
	set.Flags().StringVar(&primary, "primary", "", "primary color")
	set.Flags().StringVar(&secondary, "secondary", "", "secondary color")
	set.Flags().StringVar(&accent, "accent", "", "accent color")
	set.Flags().BoolVar(&dryRun, "dry-run", false, "show the change without saving it")

	var assetType string
	upload := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload the school's logo, favicon or banner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return cli.fail(err, "Failed to open the file")
			}
			defer file.Close()

			res, err := cli.svc.UploadBrandingAsset(cmd.Context(), school.BrandingAsset{
				Filename:  filepath.Base(args[0]),
				Reader:    file,
				AssetType: assetType,
			})
			if err != nil {
				return cli.fail(err, "Failed to upload file")
			}
			switch {
			case res.URL != "":
				cli.success("Uploaded %s: %s", assetType, res.URL)
			case res.Message != "":
				cli.success("%s", res.Message)
			default:
				cli.success("Uploaded %s", assetType)
			}
			return nil
		},
	}
	upload.Flags().StringVar(&assetType, "type", school.AssetLogo, "logo, favicon or banner")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the theme colors",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				theme, err := cli.svc.Theme(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load theme")
				}
				cli.printf("primary:   %s\n", theme.PrimaryColor)
				cli.printf("secondary: %s\n", theme.SecondaryColor)
				cli.printf("accent:    %s\n", theme.AccentColor)
				return nil
			},
		},
		set,
		upload,
	)
	return cmd
}
