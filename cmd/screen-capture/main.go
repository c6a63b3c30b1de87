// Command screen-capture runs chunked screen and audio capture sessions.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "screen-capture",
	Short:         "Chunked screen, system audio and microphone capture",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `screen-capture records the screen (full display or one window) together with
system audio and, optionally, the microphone. Raw samples are cut into
fixed-duration chunks per stream and either logged or written to disk
(debug save) as raw bytes plus a JSON sidecar.

Settings come from screen-capture.yaml (working directory or user config
dir), CAPTURE_* environment variables and command-line flags, in increasing
order of precedence.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: ./screen-capture.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.SetVersionTemplate(versionInfo() + "\n")
}

// loadConfig loads the effective configuration, applies the persistent
// logging flags and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
