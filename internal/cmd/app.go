package cmd

import (
	"io"
	"os"

	"luckfox-webcfg/internal/config"
	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/logging"
	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/internal/service"

	"golang.org/x/term"
)

// App holds application state shared across commands.
type App struct {
	Config     config.Config
	ConfigPath string // path of the lfcfg.yaml in use
	Store      *inistore.Store
	Service    service.Controller
	Writer     *safewrite.Writer
	Logger     *logging.Logger
	Out        io.Writer
	Err        io.Writer
	JSON       bool // output in JSON format
}

// SuccessColor returns the string wrapped in green ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) SuccessColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor returns the string wrapped in orange ANSI codes if stdout is a terminal,
// otherwise returns the string unchanged.
func (a *App) WarnColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}
