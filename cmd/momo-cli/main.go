package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "momo-cli",
		Short:        "Command line client for the MoMo transactions API",
		SilenceUsage: true,
	}
	initRootCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
