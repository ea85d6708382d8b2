package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	inkerrors "github.com/inkwell-dev/inkwell/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦┌┐┌┬┌─┬ ┬┌─┐┬  ┬
  ║│││├┴┐│││├┤ │  │
  ╩┘└┘┴ ┴└┴┘└─┘┴─┘┴─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Interactive widget runtime for notebook frontends",
		Long: `Inkwell keeps interactive notebook widgets in sync.

It serves a WebSocket endpoint for notebook clients, holds every
session's widget values in a per-session registry, debounces rapid
user edits, and relays settled values to the execution kernel.

  • One shared value per widget identity, many rendered instances
  • Debounced edit broadcast with remount survival
  • Kernel link with batched ready notifications
  • Snapshot persistence for session resume`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var ie *inkerrors.Error
		if errors.As(err, &ie) {
			fmt.Fprint(os.Stderr, ie.Format())
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

// printBanner prints the Inkwell ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
