package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd(out io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "profiler",
		Short: "Researcher profile site with a publication browser",
		Long: `profiler serves a researcher's profile (education, research interests,
contact details) and lets visitors upload a CSV of publications to filter
and chart by year.

Configuration comes from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newServeCmd(&envFile),
		newInspectCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "profiler %s\n", version)
			},
		},
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
