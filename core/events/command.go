package events

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for command names outside the three supported.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one of the external rider commands.
type Command string

const (
	StartRide Command = "startRide"
	StopRide  Command = "stopRide"
	FillUp    Command = "fillUp"
)

// ParseCommand accepts the command names case-insensitively, with or without
// separators ("start_ride", "start-ride", "startRide").
func ParseCommand(s string) (Command, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	switch norm {
	case "startride":
		return StartRide, nil
	case "stopride":
		return StopRide, nil
	case "fillup":
		return FillUp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// CommandRequest carries a command and its optional arguments. FuelAdded is
// only meaningful for FillUp and is zero when the rider did not log it.
type CommandRequest struct {
	Command   Command `json:"command"`
	FuelAdded float64 `json:"fuel_added,omitempty"`
	Source    string  `json:"source,omitempty"`
}
