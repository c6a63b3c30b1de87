package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-care-sensor/modules/screen-capture/internal/debugsave"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "List debug-saved chunks and verify them against their sidecars",
	Long:  `Reads every <start>_<id>_<stream>.json sidecar in dir (default: the configured debug_dir), loads the raw file next to it and checks the byte length.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var inspectJSON bool

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print sidecars as JSON lines")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir := cfg.DebugDir
	if len(args) == 1 {
		dir = args[0]
	}

	bad, err := inspectDir(cmd.OutOrStdout(), dir, inspectJSON)
	if err != nil {
		return err
	}
	if bad > 0 {
		return fmt.Errorf("%d chunk(s) in %s failed verification", bad, dir)
	}
	return nil
}

// inspectDir prints one entry per chunk in dir and returns how many failed
// to load or verify.
func inspectDir(w io.Writer, dir string, asJSON bool) (int, error) {
	bases, err := debugsave.List(dir)
	if err != nil {
		return 0, err
	}

	var (
		bad int
		enc = json.NewEncoder(w)
		tw  = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	)

	if !asJSON {
		fmt.Fprintln(tw, "STREAM\tID\tSTART\tDURATION_MS\tBYTES\tSTATUS")
	}

	for _, base := range bases {
		sc, _, err := debugsave.Read(dir, base)
		status := "ok"
		if err != nil {
			bad++
			status = err.Error()
		}

		if asJSON {
			if err := enc.Encode(sc); err != nil {
				return bad, err
			}
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			sc.Kind, sc.ID, sc.StartTimestamp, sc.DurationMs, sc.ByteLength, status)
	}

	if !asJSON {
		fmt.Fprintf(tw, "\n%d chunk(s) in %s\n", len(bases), dir)
		if err := tw.Flush(); err != nil {
			return bad, err
		}
	}

	return bad, nil
}
