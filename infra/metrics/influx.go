package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/stationfinder/core/metrics"
	"github.com/kilianp07/stationfinder/infra/logger"
)

// InfluxSink writes station finder records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
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

// RecordTripSummary writes the summary of a finished trip.
func (s *InfluxSink) RecordTripSummary(ev coremetrics.TripSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sum := ev.Summary
	p := write.NewPointWithMeasurement("trip_summary").
		AddTag("vehicle_id", sum.VehicleID).
		AddTag("final_phase", sum.FinalPhase.String()).
		AddTag("component", "stationfinder")
	if sum.ChargingStation != "" {
		p = p.AddTag("charging_station", sum.ChargingStation)
	}
	p = p.AddField("detours", sum.Detours).
		AddField("detour_distance_m", round3(sum.DetourDistance)).
		AddField("detour_time_s", round3(sum.DetourTime.Seconds())).
		AddField("admission_warnings", sum.AdmissionWarnings).
		AddField("last_resort_attempts", sum.LastResortAttempts).
		AddField("modeling_failure", sum.ModelingFailure).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPhaseTransition writes a controller phase change.
func (s *InfluxSink) RecordPhaseTransition(ev coremetrics.PhaseTransition) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("phase_transition").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("from", ev.From.String()).
		AddTag("to", ev.To.String()).
		AddTag("component", "stationfinder")
	if ev.StationID != "" {
		p = p.AddTag("station_id", ev.StationID)
	}
	p = p.AddField("tick", ev.Tick).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWarning writes a device warning.
func (s *InfluxSink) RecordWarning(ev coremetrics.Warning) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("device_warning").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("kind", ev.Kind).
		AddTag("component", "stationfinder")
	if ev.StationID != "" {
		p = p.AddTag("station_id", ev.StationID)
	}
	p = p.AddField("message", ev.Message).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

var (
	_ coremetrics.MetricsSink     = (*InfluxSink)(nil)
	_ coremetrics.PhaseRecorder   = (*InfluxSink)(nil)
	_ coremetrics.WarningRecorder = (*InfluxSink)(nil)
)
