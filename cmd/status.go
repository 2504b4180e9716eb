package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fuelbuddy/core/tracker"
	"github.com/kilianp07/fuelbuddy/core/widget"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the range estimate from the stored state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tr, closeFn, err := openTracker(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	st := tr.Status()
	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	return printStatus(cmd.OutOrStdout(), st)
}

func printStatus(w io.Writer, st tracker.Status) error {
	_, err := fmt.Fprintf(w, "%s\nremaining   %s of %s\nsince fill  %s\nride        %s (%s)\nfuel        %s\n",
		st.StatusText, st.Remaining, st.TotalRange, st.SinceFill, st.State, st.CurrentRide,
		widget.Gauge(st.FillFraction, 20))
	return err
}
