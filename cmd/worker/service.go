package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// Probe is one dependency that must answer before consumers start.
type Probe struct {
	Name string
	Ping func(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Probes    []Probe
	Consumers map[string]consumer
	Heartbeat time.Duration
}

// Service runs every subscription consumer side by side; the first one to fail
// stops the rest.
type Service struct {
	logg      *logger.Logger
	probes    []Probe
	consumers map[string]consumer
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %q is nil", name)
		}
	}
	for _, p := range params.Probes {
		if p.Ping == nil {
			return nil, fmt.Errorf("probe %q has no ping", p.Name)
		}
	}
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	return &Service{
		logg:      params.Logger,
		probes:    params.Probes,
		consumers: params.Consumers,
		heartbeat: heartbeat,
	}, nil
}

// ready pings every probe at once and reports all that failed.
func (s *Service) ready(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Ping(ctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s ping failed: %w", p.Name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if errs != nil {
		s.logg.Error(ctx, "worker dependencies not ready", errs)
		return errs
	}
	s.logg.Info(ctx, "worker dependencies ready")
	return nil
}

// Run blocks until every consumer returns, one fails, or ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var running sync.WaitGroup
	for name, c := range s.consumers {
		running.Add(1)
		g.Go(func() error {
			defer running.Done()
			cctx := s.logg.WithField(gctx, "consumer", name)
			err := c.Run(cctx)
			if err == nil || gctx.Err() != nil {
				return err
			}
			s.logg.Error(cctx, "consumer stopped unexpectedly", err)
			return fmt.Errorf("%s consumer: %w", name, err)
		})
	}

	idle := make(chan struct{})
	go func() {
		running.Wait()
		close(idle)
	}()
	g.Go(func() error { return s.beat(gctx, idle) })

	return g.Wait()
}

func (s *Service) beat(ctx context.Context, idle <-chan struct{}) error {
	started := time.Now()
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
			return nil
		case <-ticker.C:
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"consumers": len(s.consumers),
				"uptime_s":  int(time.Since(started).Seconds()),
			}), "worker heartbeat")
		}
	}
}
