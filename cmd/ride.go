package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fuelbuddy/core/events"
	"github.com/kilianp07/fuelbuddy/core/monitoring"
	"github.com/kilianp07/fuelbuddy/infra/logger"
	"github.com/kilianp07/fuelbuddy/infra/mqtt"
)

const sendTimeout = 10 * time.Second

var fuelAdded float64

var rideCmd = &cobra.Command{
	Use:   "ride",
	Short: "Start or stop a ride on the running service",
}

var rideStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking a ride",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sendCommand(cmd, events.CommandRequest{Command: events.StartRide})
	},
}

var rideStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the ride in progress",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sendCommand(cmd, events.CommandRequest{Command: events.StopRide})
	},
}

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Log a fill-up and reset the distance since fill",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return sendCommand(cmd, events.CommandRequest{Command: events.FillUp, FuelAdded: fuelAdded})
	},
}

func init() {
	fillCmd.Flags().Float64Var(&fuelAdded, "fuel", 0, "fuel added in gallons (optional)")
	rideCmd.AddCommand(rideStartCmd, rideStopCmd)
	rootCmd.AddCommand(rideCmd, fillCmd)
}

// sendCommand publishes req on the command topic of the running service.
func sendCommand(cmd *cobra.Command, req events.CommandRequest) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-cli-%d", mqttCfg.ClientID, time.Now().UnixNano())
	mqttCfg.LWTTopic = ""
	cli, err := mqtt.NewPahoClient(mqttCfg, logger.New("cli"), monitoring.NopMonitor{})
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer cli.Disconnect()

	topics := mqtt.TopicsFromConfig(cfg.MQTT, cfg.Telemetry.CommandTopic, cfg.Telemetry.SampleTopic)
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	req.Source = "cli"
	if err := mqtt.NewCommandSender(cli, topics.Command, topics.CommandQoS).Send(ctx, req); err != nil {
		return fmt.Errorf("send %s: %w", req.Command, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", req.Command)
	return err
}
