package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	coremetrics "github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/kilianp07/fuelbuddy/infra/logger"
)

// InfluxSink writes fuel tracking events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRangeState writes one range_state point.
func (s *InfluxSink) RecordRangeState(ev coremetrics.RangeState) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := ev.Evaluation
	p := write.NewPointWithMeasurement("range_state").
		AddTag("band", e.Band.String()).
		AddTag("tracking", strconv.FormatBool(e.Tracking)).
		AddField("total_range", round3(e.TotalRange)).
		AddField("distance_since_fill", round3(e.EffectiveDistanceSinceFill)).
		AddField("remaining", round3(e.RemainingDistance)).
		AddField("fill_fraction", round3(e.FillFraction)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRide writes a completed ride.
func (s *InfluxSink) RecordRide(ev coremetrics.RideEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	end := ev.Time
	if ev.Ride.EndTime != nil {
		end = *ev.Ride.EndTime
	}
	p := write.NewPointWithMeasurement("ride_completed").
		AddTag("ride_id", ev.Ride.ID).
		AddField("distance", round3(ev.Ride.Distance)).
		AddField("duration_s", round3(end.Sub(ev.Ride.StartTime).Seconds())).
		SetTime(end)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFillUp writes a fill-up.
func (s *InfluxSink) RecordFillUp(f fuel.FillUp) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fill_up").
		AddField("distance", round3(f.Distance)).
		AddField("fuel_added", round3(f.FuelAdded)).
		SetTime(f.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBandAlert writes a band alert.
func (s *InfluxSink) RecordBandAlert(ev coremetrics.BandAlertEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("band_alert").
		AddTag("kind", string(ev.Notification.Kind)).
		AddField("remaining", round3(ev.Remaining)).
		AddField("message", ev.Notification.Message()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
