package cmd

import (
	"encoding/json"
	"fmt"

	"luckfox-webcfg/internal/migrate"
	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/internal/service"
	"luckfox-webcfg/internal/status"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "status" command.
func newStatusCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show device status",
		Long: `Show whether the stream and the recorder are running, the SD card
state and usage, uptime and memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			snap := status.NewCollector(app.Config.StatusSources(), app.Service, app.Store).Collect()
			if app.JSON {
				return json.NewEncoder(app.Out).Encode(snap)
			}

			fmt.Fprintf(app.Out, "RTSP:       %s\n", onOff(app, snap.RTSPRunning))
			fmt.Fprintf(app.Out, "Recording:  %s (%d files)\n", onOff(app, snap.RecordingActive), snap.VideoCount)
			fmt.Fprintf(app.Out, "Snapshots:  %s\n", onOff(app, snap.SnapshotEnabled))
			fmt.Fprintf(app.Out, "SD card:    %s\n", snap.SDStatus)
			fmt.Fprintf(app.Out, "Storage:    %s\n", snap.Storage)
			fmt.Fprintf(app.Out, "Uptime:     %s\n", snap.Uptime)
			fmt.Fprintf(app.Out, "Memory:     %s\n", snap.Memory)
			fmt.Fprintf(app.Out, "Time:       %s\n", snap.Time)
			return nil
		},
	}

	return cmd
}

func onOff(app *App, on bool) string {
	if on {
		return app.SuccessColor("running")
	}
	return app.WarnColor("stopped")
}

// newRestartCmd creates the "restart" command.
func newRestartCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the camera service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			if err := service.Restart(cmd.Context(), app.Service, app.Config.StopPolicy(), app.Logger.Logger); err != nil {
				return fmt.Errorf("restarting %s: %w", app.Config.Service.Name, err)
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"service":   app.Config.Service.Name,
					"restarted": true,
				})
			}
			fmt.Fprintf(app.Out, "%s %s\n", app.SuccessColor("Restarted"), app.Config.Service.Name)
			return nil
		},
	}

	return cmd
}

// newMigrateCmd creates the "migrate" command.
func newMigrateCmd(provider *AppProvider) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the stock recording and snapshot settings once",
		Long: `Write the stock recording and snapshot settings to rkipc.ini.

The migration runs once: afterwards a marker file is written and later
runs do nothing. Use --force to apply it again. The marker is not
written if the update fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			// Give rkipc longer to release the file than a plain write does.
			policy := app.Config.StopPolicy()
			policy.Settle = app.Config.Migration.Settle
			w := safewrite.New(app.Store, app.Service, policy, app.Logger.Logger)

			applied, err := migrate.Run(cmd.Context(), w, migrate.Migration{
				Marker: app.Config.Migration.Marker,
				Force:  force,
				Logger: app.Logger.Logger,
			})
			if err != nil {
				return err
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"marker":  app.Config.Migration.Marker,
					"applied": applied,
				})
			}
			if applied {
				fmt.Fprintf(app.Out, "%s (marker %s)\n", app.SuccessColor("Migration applied"), app.Config.Migration.Marker)
			} else {
				fmt.Fprintln(app.Out, "Migration already applied")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Apply even if the marker file exists")

	return cmd
}
