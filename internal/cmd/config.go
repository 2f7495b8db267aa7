package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"luckfox-webcfg/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lfcfg's own settings",
		Long: `Manage lfcfg's own settings in lfcfg.yaml.

These are the paths, timeouts and logging options lfcfg itself uses.
Camera settings live in rkipc.ini; see "lfcfg show".

Subcommands:
  init  Write a config file with the defaults
  get   Get a configuration value
  set   Set a configuration value
  list  List all configuration values`,
	}

	cmd.AddCommand(newConfigInitCmd(provider))
	cmd.AddCommand(newConfigGetCmd(provider))
	cmd.AddCommand(newConfigSetCmd(provider))
	cmd.AddCommand(newConfigListCmd(provider))

	return cmd
}

// newConfigInitCmd creates the "config init" subcommand.
func newConfigInitCmd(provider *AppProvider) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(provider.ConfigPath)
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := config.WriteDefault(path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			if provider.JSONOutput {
				return json.NewEncoder(provider.Out).Encode(map[string]string{"path": path})
			}
			fmt.Fprintf(provider.Out, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

// newConfigGetCmd creates the "config get" subcommand.
func newConfigGetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the value of a configuration key, after environment overrides.

Prints the bare value, or "key (not set)" for an unknown key.

Examples:
  lfcfg config get ini_file
  lfcfg config get service.stop_max_polls`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			key := args[0]
			value, ok := app.Config.Get(key)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{
					"key":   key,
					"value": value,
				})
			}

			if ok {
				fmt.Fprintln(app.Out, value)
			} else {
				fmt.Fprintf(app.Out, "%s (not set)\n", key)
			}
			return nil
		},
	}

	return cmd
}

// newConfigSetCmd creates the "config set" subcommand.
func newConfigSetCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration key in lfcfg.yaml. The file is created if needed.
The new configuration must pass validation before it is written.

Examples:
  lfcfg config set log.level debug
  lfcfg config set lock_timeout 2s`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(provider.ConfigPath)
			key, value := args[0], args[1]

			// Edit the file as stored, without environment overrides.
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return fmt.Errorf("setting config: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Write(path, cfg); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			if provider.JSONOutput {
				return json.NewEncoder(provider.Out).Encode(map[string]string{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(provider.Out, "Set %s = %s\n", key, value)
			return nil
		},
	}

	return cmd
}

// newConfigListCmd creates the "config list" subcommand.
func newConfigListCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration key-value pairs in effect.

Entries are sorted alphabetically by key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			all := app.Config.All()
			if app.JSON {
				return json.NewEncoder(app.Out).Encode(all)
			}

			fmt.Fprintf(app.Out, "Configuration (%s):\n", app.ConfigPath)
			for _, k := range config.Keys() {
				fmt.Fprintf(app.Out, "  %s = %s\n", k, all[k])
			}
			return nil
		},
	}

	return cmd
}
