// Package health checks that the inventory API answers on its lookup
// collections and exposes the result through the gRPC health service.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Prober interface {
	Probe(ctx context.Context, path string) (int, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Check struct {
	Target string `json:"target"`
	OK     bool   `json:"ok"`
	Items  int    `json:"items,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	OK        bool      `json:"ok"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

type Checker struct {
	service string
	prober  Prober
	paths   []string
	db      Pinger
	hs      *health.Server

	mu   sync.RWMutex
	last Report
}

// NewChecker probes paths through p; db may be nil.
func NewChecker(service string, p Prober, paths []string, db Pinger) *Checker {
	c := &Checker{service: service, prober: p, paths: paths, db: db, hs: health.NewServer()}
	c.hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	c.hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Register adds the health service and reflection to s.
func (c *Checker) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, c.hs)
	reflection.Register(s)
}

// Run probes every target once and updates the serving status.
func (c *Checker) Run(ctx context.Context) Report {
	r := Report{OK: true, CheckedAt: time.Now().UTC()}
	if c.db != nil {
		ch := Check{Target: "store", OK: true}
		if err := c.db.Ping(ctx); err != nil {
			ch.OK, ch.Error = false, err.Error()
		}
		r.Checks = append(r.Checks, ch)
	}
	for _, p := range c.paths {
		ch := Check{Target: p, OK: true}
		n, err := c.prober.Probe(ctx, p)
		if err != nil {
			ch.OK, ch.Error = false, err.Error()
			log.Warn().Err(err).Str("endpoint", p).Msg("health: probe failed")
		} else {
			ch.Items = n
			log.Debug().Str("endpoint", p).Int("items", n).Msg("health: probe ok")
		}
		r.Checks = append(r.Checks, ch)
	}
	for _, ch := range r.Checks {
		r.OK = r.OK && ch.OK
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !r.OK {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.hs.SetServingStatus("", status)
	c.hs.SetServingStatus(c.service, status)

	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
	return r
}

func (c *Checker) Last() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Loop runs the checks now and then every interval until ctx ends.
func (c *Checker) Loop(ctx context.Context, every time.Duration) {
	c.Run(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.hs.Shutdown()
			return
		case <-t.C:
			c.Run(ctx)
		}
	}
}
