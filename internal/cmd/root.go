// Package cmd implements the lfcfg command-line interface.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"luckfox-webcfg/internal/config"
	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/logging"
	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/internal/service"

	"github.com/spf13/cobra"
)

// AppProvider lazily initializes the App on first use.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	// Config captured from flags before Execute()
	ConfigPath string
	JSONOutput bool
	Verbose    bool
	Out        io.Writer
	Err        io.Writer
}

// Get returns the App, initializing it on first call.
func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider creates a provider pre-initialized with the given App.
// Used for testing commands with a fake service and a temporary ini file.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{
		app:        app,
		ConfigPath: app.ConfigPath,
		JSONOutput: app.JSON,
		Out:        app.Out,
		Err:        app.Err,
	}
}

func (p *AppProvider) init() (*App, error) {
	cfg, path, err := config.LoadResolved(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := p.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	opts := logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Level:      cfg.Log.Level,
	}
	if p.Verbose {
		opts.Tee = errOut
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, err
	}

	store := inistore.New(cfg.IniFile,
		inistore.WithLockTimeout(cfg.LockTimeout),
		inistore.WithLogger(logger.Logger),
	)
	ctrl := service.NewProcController(cfg.ServiceSpec(), service.WithLogger(logger.Logger))

	return &App{
		Config:     cfg,
		ConfigPath: path,
		Store:      store,
		Service:    ctrl,
		Writer:     safewrite.New(store, ctrl, cfg.StopPolicy(), logger.Logger),
		Logger:     logger,
		Out:        out,
		Err:        errOut,
		JSON:       p.JSONOutput,
	}, nil
}

// Close releases what the App holds, if it was created.
func (p *AppProvider) Close() error {
	if p.app == nil || p.app.Logger == nil {
		return nil
	}
	return p.app.Logger.Close()
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := &AppProvider{
		Out: os.Stdout,
		Err: os.Stderr,
	}
	defer provider.Close()

	return execute(ctx, provider, os.Args[1:])
}

func execute(ctx context.Context, provider *AppProvider, args []string) error {
	rootCmd := newRootCmd(provider)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lfcfg",
		Short: "Safely read and edit the camera's rkipc.ini",
		Long: `lfcfg reads and edits rkipc.ini, the configuration file of the rkipc
camera service on the Luckfox Pico.

Writes take an advisory lock and replace the file atomically, so the
file is never seen half written. Setting changes stop rkipc first and
start it again afterwards, because rkipc rewrites the file from memory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags - these populate the provider config
	rootCmd.PersistentFlags().BoolVar(&provider.JSONOutput, "json", envBool(config.EnvJSON), "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&provider.ConfigPath, "config", "", "Path to lfcfg.yaml (default: $LFCFG_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&provider.Verbose, "verbose", "v", false, "Also write log records to stderr")

	rootCmd.AddCommand(newGetCmd(provider))
	rootCmd.AddCommand(newSetCmd(provider))
	rootCmd.AddCommand(newApplyCmd(provider))
	rootCmd.AddCommand(newShowCmd(provider))
	rootCmd.AddCommand(newStatusCmd(provider))
	rootCmd.AddCommand(newRestartCmd(provider))
	rootCmd.AddCommand(newMigrateCmd(provider))
	rootCmd.AddCommand(newConfigCmd(provider))
	rootCmd.AddCommand(newVersionCmd(provider))

	return rootCmd
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
