package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/internal/settings"

	"github.com/spf13/cobra"
)

// newApplyCmd creates the "apply" command.
func newApplyCmd(provider *AppProvider) *cobra.Command {
	var form string

	cmd := &cobra.Command{
		Use:   "apply [name=value...]",
		Short: "Change camera settings",
		Long: `Change one or more camera settings in a single write.

Values are given in user units (minutes, seconds, kbps) and converted to
what rkipc.ini stores. All values are checked before anything is
written; one invalid value rejects the whole batch. rkipc is stopped
for the write and started again afterwards.

Use "lfcfg show" to list the setting names.

Examples:
  lfcfg apply storage_enable=1 file_duration=5
  lfcfg apply resolution=1920x1080 max_rate=1024
  lfcfg apply --form 'snapshot_enable=1&snapshot_interval=60'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := settings.ParseArgs(args)
			if err != nil {
				return err
			}
			if form != "" {
				formPairs, err := settings.ParseForm(form)
				if err != nil {
					return err
				}
				pairs = append(pairs, formPairs...)
			}
			entries, err := settings.Entries(pairs)
			if err != nil {
				return err
			}

			app, err := provider.Get()
			if err != nil {
				return err
			}

			rep, err := app.Writer.Apply(cmd.Context(), entries)
			if err != nil {
				return fmt.Errorf("applying settings: %w", err)
			}
			warnReport(app, rep)
			return printUpdated(app, entries, rep.RunID)
		},
	}

	cmd.Flags().StringVar(&form, "form", "", "URL-encoded name=value&name=value settings")

	return cmd
}

// newShowCmd creates the "show" command.
func newShowCmd(provider *AppProvider) *cobra.Command {
	var sections bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show camera settings",
		Long: `Show every camera setting in user units.

Keys missing from rkipc.ini are shown with their stock value. With
--sections, list the sections present in rkipc.ini instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			if sections {
				return showSections(app)
			}

			vals := settings.Load(app.Store)
			if app.JSON {
				return json.NewEncoder(app.Out).Encode(vals)
			}

			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			for _, f := range settings.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, vals[f.Name], f.Help)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&sections, "sections", false, "List the sections in rkipc.ini")

	return cmd
}

func showSections(app *App) error {
	names := app.Store.Sections()
	if app.JSON {
		if names == nil {
			names = []string{}
		}
		return json.NewEncoder(app.Out).Encode(map[string]interface{}{
			"path":     app.Store.Path(),
			"sections": names,
		})
	}

	fmt.Fprintf(app.Out, "%s:\n", app.Store.Path())
	for _, name := range names {
		fmt.Fprintf(app.Out, "  [%s]\n", name)
	}
	return nil
}

// warnReport prints the non-fatal problems of a safe-write run to stderr.
func warnReport(app *App, rep safewrite.Report) {
	if app.Err == nil {
		return
	}
	if rep.StopTimedOut {
		fmt.Fprintln(app.Err, app.WarnColor("warning:")+" service did not stop; the file was written anyway")
	}
	if rep.StopErr != nil {
		fmt.Fprintf(app.Err, "%s could not check the service: %v\n", app.WarnColor("warning:"), rep.StopErr)
	}
	if rep.LaunchErr != nil {
		fmt.Fprintf(app.Err, "%s service not restarted: %v\n", app.WarnColor("warning:"), rep.LaunchErr)
	}
}
