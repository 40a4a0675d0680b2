package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgnotify/internal/app"
	"tgnotify/internal/config"
	logx "tgnotify/pkg/logx"
)

var version = "dev"

type rootFlags struct {
	stats bool
	test  bool

	configPath string
	envPath    string
	noProcEnv  bool

	transport  string
	apiURL     string
	workers    int
	rate       float64
	allowEmpty bool
	escape     bool

	logLevel string
	logFile  string
	logJSON  bool
}

func (f *rootFlags) options() app.Options {
	return app.Options{
		StructuredPath:   f.configPath,
		EnvPath:          f.envPath,
		IgnoreProcessEnv: f.noProcEnv,
		Transport:        f.transport,
		APIURL:           f.apiURL,
		Workers:          f.workers,
		RatePerSec:       f.rate,
		AllowEmpty:       f.allowEmpty,
		Escape:           f.escape,
		Log: logx.Config{
			Level:   f.logLevel,
			Console: true,
			JSON:    f.logJSON,
			File:    logx.FileConfig{Enabled: f.logFile != "", Path: f.logFile},
		},
	}
}

// exitError carries an operation's exit code through cobra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	cancel()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return app.ExitOK
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// flag parsing, unknown commands and bad options
	fmt.Fprintln(logx.Stderr(), "error:", err)
	return app.ExitInvalid
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "tgnotify",
		Short: "Send notifications to Telegram chats",
		Long: `tgnotify delivers a text message to every chat listed in its configuration.

Configuration is read from a JSON/YAML file and a .env file; the structured file
wins field by field and the .env file fills the gaps. Running without a
subcommand sends the test message.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.stats && f.test {
				return errors.New("--stats and --test are mutually exclusive")
			}
			return withApp(f, func(a *app.App) int {
				if f.stats {
					return a.Stats()
				}
				return a.Test(cmd.Context())
			})
		},
	}

	root.Flags().BoolVar(&f.stats, "stats", false, "print the effective configuration and exit")
	root.Flags().BoolVar(&f.test, "test", false, "send the test message")

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", config.DefaultStructuredPath, "structured config file (.json, .yaml)")
	pf.StringVar(&f.envPath, "env-file", config.DefaultEnvPath, "flat KEY=VALUE config file")
	pf.BoolVar(&f.noProcEnv, "no-process-env", false, "ignore TELEGRAM_* variables of the environment")
	pf.StringVar(&f.transport, "transport", app.TransportHTTP, "transport: http or telebot")
	pf.StringVar(&f.apiURL, "api-url", "", "Bot API base URL (default https://api.telegram.org)")
	pf.IntVar(&f.workers, "workers", 0, "concurrent recipients (default 8)")
	pf.Float64Var(&f.rate, "rate", 0, "max send attempts per second, 0 = unlimited")
	pf.BoolVar(&f.allowEmpty, "allow-empty", false, "succeed when no chat ids are configured")
	pf.BoolVar(&f.escape, "escape", false, "treat messages as plain text and escape them for the parse mode")
	pf.StringVar(&f.logLevel, "log-level", "info", "trace|debug|info|warn|error")
	pf.StringVar(&f.logFile, "log-file", "", "also append logs to this file")
	pf.BoolVar(&f.logJSON, "log-json", false, "write console logs as JSON lines")

	root.AddCommand(sendCmd(f), pipeCmd(f))
	return root
}

// withApp builds the app from flags, runs op and converts its exit code.
func withApp(f *rootFlags, op func(*app.App) int) error {
	a, err := app.New(f.options(), logx.Stdout())
	if err != nil {
		return err
	}
	defer a.Close()

	if code := op(a); code != app.ExitOK {
		return exitError{code: code}
	}
	return nil
}
