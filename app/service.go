// Package app wires the configured observers around a simulation run: the
// event bus, metrics sinks, the Prometheus endpoint, the MQTT publisher and
// the trip-info store.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/stationfinder/config"
	coremetrics "github.com/kilianp07/stationfinder/core/metrics"
	"github.com/kilianp07/stationfinder/core/status"
	"github.com/kilianp07/stationfinder/core/tripinfo"
	"github.com/kilianp07/stationfinder/infra/logger"
	"github.com/kilianp07/stationfinder/infra/metrics"
	"github.com/kilianp07/stationfinder/infra/mqtt"
	"github.com/kilianp07/stationfinder/internal/eventbus"
	"github.com/kilianp07/stationfinder/simulation"
)

// Service runs scenarios with the configured observers attached.
type Service struct {
	cfg       *config.Config
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	trips     tripinfo.Store
	status    *status.MemoryStore
	client    *mqtt.PahoClient
	publisher *mqtt.EventPublisher
	log       logger.Logger
	// optErr is the first error raised by an Option.
	optErr error
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher replaces the MQTT client built from the configuration.
func WithPublisher(p mqtt.Publisher) Option {
	return func(s *Service) {
		pub, err := mqtt.NewEventPublisher(p, s.cfg.MQTT.TopicPrefix, logger.New("mqtt-publisher"))
		if err != nil {
			if s.optErr == nil {
				s.optErr = fmt.Errorf("mqtt publisher: %w", err)
			}
			return
		}
		s.publisher = pub
	}
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	logg := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	trips, err := tripinfo.NewStore(cfg.TripInfo)
	if err != nil {
		return nil, fmt.Errorf("tripinfo store: %w", err)
	}
	svc := &Service{
		cfg:    cfg,
		bus:    eventbus.NewTypedWithBuffer[eventbus.Event](cfg.Simulation.EventBuffer),
		sink:   sink,
		trips:  trips,
		status: status.NewMemoryStore(),
		log:    logg,
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.optErr != nil {
		_ = trips.Close()
		return nil, svc.optErr
	}
	if svc.publisher == nil && cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = trips.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.publisher, err = mqtt.NewEventPublisher(client, cfg.MQTT.TopicPrefix, logger.New("mqtt-publisher"))
		if err != nil {
			_ = trips.Close()
			return nil, err
		}
	}
	return svc, nil
}

// Status returns the per-vehicle snapshots of the current or last run.
func (s *Service) Status() status.Store { return s.status }

// TripInfo returns the configured trip-info store.
func (s *Service) TripInfo() tripinfo.Store { return s.trips }

// Run steps the scenario to completion, or until the configured tick limit
// or ctx ends it, and returns the trip records. Observers are drained before
// Run returns.
func (s *Service) Run(ctx context.Context, sc simulation.Scenario) ([]tripinfo.Record, error) {
	start, err := s.cfg.Simulation.Start()
	if err != nil {
		return nil, err
	}
	loop, err := simulation.NewLoop(sc, simulation.Options{
		Device:      s.cfg.StationFinder,
		Catalog:     s.cfg.Catalog,
		Reservation: s.cfg.Reservation,
		Bus:         s.bus,
		Status:      s.status,
		TripInfo:    s.trips,
		Logger:      logger.New("simulation"),
		Start:       start,
	})
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var workers []<-chan struct{}
	workers = append(workers, metrics.StartEventCollector(workerCtx, s.bus, s.sink, logger.New("metrics-collector")))
	if s.publisher != nil {
		workers = append(workers, s.publisher.Start(workerCtx, s.bus))
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	s.log.Infof("running scenario: %d stations, %d vehicles", len(sc.Stations), len(sc.Vehicles))
	recs, runErr := loop.Run(ctx, s.cfg.Simulation.MaxTicks)

	s.bus.Close()
	for _, done := range workers {
		<-done
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d events dropped by slow observers", n)
	}
	s.log.Infof("run finished at tick %d with %d trip records", loop.Tick(), len(recs))
	return recs, runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if err := s.trips.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	return errors.Join(errs...)
}
