package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fuelbuddy/core/widget"
	"github.com/kilianp07/fuelbuddy/infra/logger"
	infrasnapshot "github.com/kilianp07/fuelbuddy/infra/snapshot"
)

var (
	widgetOnce bool
	widgetFile string
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Render the range widget from the shared snapshot file",
	RunE:  runWidget,
}

func init() {
	widgetCmd.Flags().BoolVar(&widgetOnce, "once", false, "render one entry and exit")
	widgetCmd.Flags().StringVar(&widgetFile, "file", "", "snapshot file (default: first file medium in the config)")
	rootCmd.AddCommand(widgetCmd)
}

func runWidget(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := widgetFile
	if path == "" {
		p, ok := cfg.Snapshot.FilePath()
		if !ok {
			return fmt.Errorf("no file snapshot medium configured; pass --file")
		}
		path = p
	}
	medium := infrasnapshot.NewFileMedium(path)
	interval := cfg.Snapshot.RefreshInterval()
	out := cmd.OutOrStdout()
	log := logger.New("widget")

	if widgetOnce {
		e := widget.Load(context.Background(), medium, time.Now(), interval, log)
		_, err := fmt.Fprintln(out, e.String())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	render := func(e widget.Entry) { _, _ = fmt.Fprintln(out, e.String()) }
	reloads := medium.Watch(ctx, infrasnapshot.DefaultWatchInterval)
	if err := widget.NewRefresher(medium, reloads, interval, render, log).Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
