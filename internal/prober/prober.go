// Package prober refreshes station occupancy on a fixed cadence. Probing is
// pluggable; the default implementation treats a station as occupied when its
// host accepts a TCP connection, which is how the lab consoles behave while a
// session is logged in.
package prober

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"lab-status-backend/config"
	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/metrics"
	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/schedule"
	"lab-status-backend/internal/store"
)

// Prober checks a single station and reports whether it is occupied.
type Prober interface {
	Probe(ctx context.Context, station registry.Station) (bool, error)
}

// TCPProber probes by dialing the station host.
type TCPProber struct {
	timeout time.Duration
}

// NewTCPProber creates a TCP prober with the given per-dial timeout.
func NewTCPProber(timeout time.Duration) *TCPProber {
	return &TCPProber{timeout: timeout}
}

// Probe dials the station host. A successful dial means a session is live and
// the station is occupied; a refused or timed-out dial means it is free.
func (p *TCPProber) Probe(ctx context.Context, station registry.Station) (bool, error) {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", station.Host)
	if err != nil {
		if opErr, ok := err.(*net.OpError); ok && !opErr.Timeout() {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	conn.Close()
	return true, nil
}

// Service drives periodic probe cycles and writes the results to the store.
type Service struct {
	cfg    config.ProberConfig
	reg    *registry.Registry
	store  store.Store
	guard  *lock.Guard
	sched  *schedule.Source
	prober Prober
}

// NewService creates the probe service.
func NewService(cfg config.ProberConfig, reg *registry.Registry, s store.Store, guard *lock.Guard, sched *schedule.Source, prober Prober) *Service {
	return &Service{
		cfg:    cfg,
		reg:    reg,
		store:  s,
		guard:  guard,
		sched:  sched,
		prober: prober,
	}
}

// Run probes until the context is cancelled. While the schedule reports no
// active lab session the cadence drops to the idle interval; nobody is
// watching the board closely when the lab is dark.
func (s *Service) Run(ctx context.Context) {
	log.Println("Starting occupancy prober...")

	timer := time.NewTimer(s.interval(time.Now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Occupancy prober shutting down.")
			return
		case <-timer.C:
			if err := s.ProbeOnce(ctx); err != nil {
				log.Printf("Error in probe cycle: %v", err)
			}
			timer.Reset(s.interval(time.Now()))
		}
	}
}

const (
	probeAttempts   = 3
	probeRetryDelay = 200 * time.Millisecond
)

// probe retries transient failures; the occupied-on-error policy applies only
// once every attempt has failed.
func (s *Service) probe(ctx context.Context, station registry.Station) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < probeAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		occupied, err := s.prober.Probe(probeCtx, station)
		cancel()
		if err == nil {
			return occupied, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return false, lastErr
		case <-time.After(probeRetryDelay):
		}
	}
	return false, lastErr
}

func (s *Service) interval(now time.Time) time.Duration {
	if s.sched.Resolve(now) == schedule.SignalNone {
		return s.cfg.IdleInterval
	}
	return s.cfg.Interval
}

// ProbeOnce probes every registered station concurrently and persists the
// results in one locked span. A probe failure counts the station as occupied:
// showing a free station as busy is a delay, showing a busy one as free sends
// someone to a taken seat.
func (s *Service) ProbeOnce(ctx context.Context) error {
	ids := s.reg.IDs()
	results := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		station, err := s.reg.Station(id)
		if err != nil {
			continue
		}
		i, station := i, station
		g.Go(func() error {
			occupied, err := s.probe(gctx, station)
			if err != nil {
				log.Printf("Probe failed for station %d (%s): %v", station.ID, station.Host, err)
				metrics.IncProbeError(strconv.Itoa(station.ID))
				occupied = true
			}
			results[i] = occupied
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	observedAt := time.Now().UTC()
	err := s.guard.Do(ctx, func() error {
		for i, id := range ids {
			if err := s.store.SetOccupancy(ctx, id, results[i], observedAt); err != nil {
				return err
			}
		}
		return nil
	}, lock.KeyOccupancy)
	if err != nil {
		return err
	}

	metrics.IncProbeCycle()
	return nil
}
