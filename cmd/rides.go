package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fuelbuddy/core/tracker"
	"github.com/kilianp07/fuelbuddy/pkg/export"
)

var (
	ridesLimit  int
	ridesFormat string
	ridesOutput string
)

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "Inspect the ride history",
}

var ridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent rides, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tr, closeFn, err := openTracker(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		conv := tr.Converter()
		pref := tr.Settings().Preference()
		out := cmd.OutOrStdout()
		for _, r := range tr.RecentRides(ridesLimit) {
			if _, err := fmt.Fprintf(out, "%s  %s  %s\n", r.StartTime.Format("2006-01-02 15:04"), conv.FormatDistance(r.Distance, pref, 2), r.ID); err != nil {
				return err
			}
		}
		return nil
	},
}

var ridesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full ride history as json, yaml or csv",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tr, closeFn, err := openTracker(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		rides := tr.Rides()
		if ridesOutput == "" || ridesOutput == "-" {
			return export.Write(cmd.OutOrStdout(), ridesFormat, rides)
		}
		f, err := os.Create(ridesOutput)
		if err != nil {
			return err
		}
		return writeAndClose(f, func(w io.Writer) error {
			return export.Write(w, ridesFormat, rides)
		})
	},
}

// writeAndClose runs write against wc and always closes it. A failed close
// is reported when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()
	return write(wc)
}

func init() {
	ridesListCmd.Flags().IntVarP(&ridesLimit, "limit", "n", tracker.DefaultRecentRides, "number of rides")
	ridesExportCmd.Flags().StringVarP(&ridesFormat, "format", "f", export.FormatJSON, "json, yaml or csv")
	ridesExportCmd.Flags().StringVarP(&ridesOutput, "output", "o", "", "output file (default stdout)")
	ridesCmd.AddCommand(ridesListCmd, ridesExportCmd)
	rootCmd.AddCommand(ridesCmd)
}
