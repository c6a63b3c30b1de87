package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information
const version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func versionInfo() string {
	return fmt.Sprintf("screen-capture %s (%s %s/%s)", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
