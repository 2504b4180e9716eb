package fuel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidCalibration is returned when a calibration input would divide by a
// non-positive quantity.
var ErrInvalidCalibration = errors.New("invalid calibration")

// DefaultReserveCapacity is the reserve volume of the stock tank in gallons.
const DefaultReserveCapacity = 0.26

// PumpResult is the outcome of a pump calibration.
type PumpResult struct {
	Economy float64 `json:"fuel_economy"`
	// SuggestedTank is the fuel it took to fill the tank, which is the
	// usable capacity when the rider filled from empty.
	SuggestedTank float64 `json:"suggested_tank"`
}

// PumpEconomy derives miles per gallon from the distance ridden since the last
// fill and the fuel it took to top up.
func PumpEconomy(distanceSinceLastFill, fuelAdded float64) (PumpResult, error) {
	if fuelAdded <= 0 {
		return PumpResult{}, fmt.Errorf("%w: fuel added must be positive, got %v", ErrInvalidCalibration, fuelAdded)
	}
	return PumpResult{Economy: distanceSinceLastFill / fuelAdded, SuggestedTank: fuelAdded}, nil
}

// ReserveEconomy derives miles per gallon from the distance covered when the
// engine went onto reserve: distance / (tank - reserve).
func ReserveEconomy(distanceAtReserve, tankCapacity, reserveCapacity float64) (float64, error) {
	if distanceAtReserve <= 0 {
		return 0, fmt.Errorf("%w: distance at reserve must be positive, got %v", ErrInvalidCalibration, distanceAtReserve)
	}
	if reserveCapacity < 0 {
		return 0, fmt.Errorf("%w: reserve capacity must not be negative, got %v", ErrInvalidCalibration, reserveCapacity)
	}
	usable := math.Max(0, tankCapacity-reserveCapacity)
	if usable <= 0 {
		return 0, fmt.Errorf("%w: usable capacity %v is not positive", ErrInvalidCalibration, usable)
	}
	return distanceAtReserve / usable, nil
}

// FillUp is one logged visit to the pump.
type FillUp struct {
	Time      time.Time `json:"time"`
	Distance  float64   `json:"distance"`
	FuelAdded float64   `json:"fuel_added"`
}

// AverageEconomy is the fuel-weighted mean economy over the fill-ups that
// carry a usable pump reading. Entries without fuel or distance are skipped.
func AverageEconomy(fills []FillUp) (float64, error) {
	econ := make([]float64, 0, len(fills))
	weights := make([]float64, 0, len(fills))
	for _, f := range fills {
		if f.FuelAdded <= 0 || f.Distance <= 0 {
			continue
		}
		econ = append(econ, f.Distance/f.FuelAdded)
		weights = append(weights, f.FuelAdded)
	}
	if len(econ) == 0 {
		return 0, fmt.Errorf("%w: no fill-ups with fuel and distance", ErrInvalidCalibration)
	}
	return stat.Mean(econ, weights), nil
}
