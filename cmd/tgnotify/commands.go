package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tgnotify/internal/app"
)

func sendCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send [message...]",
		Short: "Send a message to every configured chat",
		Long:  "Arguments are joined with spaces. With no arguments, or a single \"-\", the message is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := messageFrom(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(f, func(a *app.App) int {
				return a.Send(cmd.Context(), text)
			})
		},
	}
}

func pipeCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pipe",
		Short: "Send every stdin line as its own message, reloading config on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(f, func(a *app.App) int {
				return a.Pipe(cmd.Context(), cmd.InOrStdin())
			})
		},
	}
}

func messageFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
