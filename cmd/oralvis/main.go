package main

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "oralvis",
		Short:         "OralVis healthcare scan upload and review",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(scansCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(signOutCmd())
	rootCmd.AddCommand(seedCmd())
	return rootCmd
}

// newLogger writes JSON to out, switching to the console writer in
// development or when out is a terminal.
func newLogger(out io.Writer, env string) zerolog.Logger {
	if env == "development" || isTerminal(out) {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
