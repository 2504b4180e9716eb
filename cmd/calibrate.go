package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/tracker"
)

var (
	calFuel       float64
	calDistance   float64
	calReserve    float64
	calApply      bool
	calUpdateTank bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Derive the fuel economy from a fill-up, the reserve point or the fill-up log",
	Long: "Computes a fuel economy from the stored state. With --apply the result is " +
		"persisted; a running service keeps its own copy until it is restarted, so " +
		"prefer the HTTP calibration endpoints while it runs.",
}

var calibratePumpCmd = &cobra.Command{
	Use:   "pump",
	Short: "Economy from the fuel it took to fill the tank",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return calibrate(cmd, func(tr *tracker.Tracker) (tracker.Calibration, float64, error) {
			c, err := tr.CalibratePump(calFuel, calDistance)
			tank := 0.0
			if calUpdateTank {
				tank = c.SuggestedTank
			}
			return c, tank, err
		})
	},
}

var calibrateReserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Economy from the distance covered when the reserve kicked in",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return calibrate(cmd, func(tr *tracker.Tracker) (tracker.Calibration, float64, error) {
			c, err := tr.CalibrateReserve(calDistance, calReserve)
			return c, 0, err
		})
	},
}

var calibrateAverageCmd = &cobra.Command{
	Use:   "average",
	Short: "Economy averaged over every logged fill-up, weighted by fuel added",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return calibrate(cmd, func(tr *tracker.Tracker) (tracker.Calibration, float64, error) {
			c, err := tr.CalibrateAverage()
			return c, 0, err
		})
	},
}

func init() {
	calibrateCmd.PersistentFlags().BoolVar(&calApply, "apply", false, "store the new fuel economy")
	calibrateCmd.PersistentFlags().Float64Var(&calDistance, "distance", 0, "distance in miles (defaults to the distance since fill)")
	calibratePumpCmd.Flags().Float64Var(&calFuel, "fuel", 0, "fuel added in gallons")
	calibratePumpCmd.Flags().BoolVar(&calUpdateTank, "update-tank", false, "also use the fuel added as the tank capacity")
	calibrateReserveCmd.Flags().Float64Var(&calReserve, "reserve", fuel.DefaultReserveCapacity, "reserve capacity in gallons")
	calibrateCmd.AddCommand(calibratePumpCmd, calibrateReserveCmd, calibrateAverageCmd)
	rootCmd.AddCommand(calibrateCmd)
}

func calibrate(cmd *cobra.Command, compute func(*tracker.Tracker) (tracker.Calibration, float64, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	tr, closeFn, err := openTracker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	c, tank, err := compute(tr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%s calibration over %.1f mi: %.2f mpg\n", c.Method, c.Distance, c.FuelEconomy); err != nil {
		return err
	}
	if !calApply {
		return nil
	}
	if err := tr.ApplyEconomy(ctx, c.FuelEconomy, tank); err != nil {
		return err
	}
	s := tr.Settings()
	_, err = fmt.Fprintf(out, "applied: tank %.2f gal, economy %.2f mpg, range %.1f mi\n", s.TankCapacity, s.FuelEconomy, s.TotalRange())
	return err
}
