package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"luckfox-webcfg/internal/inistore"

	"github.com/spf13/cobra"
)

// newGetCmd creates the "get" command.
func newGetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <section> <key>",
		Short: "Print a value from rkipc.ini",
		Long: `Print the value of key in section.

Prints the bare value if the key is set, or "[section] key (not set)"
if it is missing or the file cannot be read.

Examples:
  lfcfg get storage.0 enable
  lfcfg get video.0 max_rate --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			section, key := args[0], args[1]
			value, err := app.Store.Read(section, key)
			found := err == nil
			if err != nil && !errors.Is(err, inistore.ErrNotFound) {
				return err
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]interface{}{
					"section": section,
					"key":     key,
					"value":   value,
					"found":   found,
				})
			}

			if found {
				fmt.Fprintln(app.Out, value)
			} else {
				fmt.Fprintf(app.Out, "[%s] %s (not set)\n", section, key)
			}
			return nil
		},
	}

	return cmd
}

// newSetCmd creates the "set" command.
func newSetCmd(provider *AppProvider) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Set a value in rkipc.ini",
		Long: `Set key in section to value.

By default rkipc is stopped for the write and started again afterwards,
so that it does not overwrite the change from memory. With --raw the
file is written directly and rkipc is left alone.

Missing sections and keys are created.

Examples:
  lfcfg set storage.0 enable 1
  lfcfg set --raw video.0 max_rate 1024`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			entry := inistore.Entry{Section: args[0], Key: args[1], Value: args[2]}

			if raw {
				if err := app.Store.Update(ctx, entry.Section, entry.Key, entry.Value); err != nil {
					return fmt.Errorf("updating config: %w", err)
				}
				return printUpdated(app, []inistore.Entry{entry}, "")
			}

			rep, err := app.Writer.Apply(ctx, []inistore.Entry{entry})
			if err != nil {
				return fmt.Errorf("updating config: %w", err)
			}
			warnReport(app, rep)
			return printUpdated(app, []inistore.Entry{entry}, rep.RunID)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Write the file without stopping the service")

	return cmd
}

// printUpdated reports written entries.
func printUpdated(app *App, entries []inistore.Entry, runID string) error {
	if app.JSON {
		type entryJSON struct {
			Section string `json:"section"`
			Key     string `json:"key"`
			Value   string `json:"value"`
		}
		out := struct {
			RunID   string      `json:"run_id,omitempty"`
			Updated []entryJSON `json:"updated"`
		}{RunID: runID}
		for _, e := range entries {
			out.Updated = append(out.Updated, entryJSON{e.Section, e.Key, e.Value})
		}
		return json.NewEncoder(app.Out).Encode(out)
	}

	for _, e := range entries {
		fmt.Fprintf(app.Out, "%s [%s] %s = %s\n", app.SuccessColor("Set"), e.Section, e.Key, e.Value)
	}
	return nil
}
