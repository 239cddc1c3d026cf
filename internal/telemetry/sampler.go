package telemetry

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// SamplerConfig tunes the latency sampler.
type SamplerConfig struct {
	Interval   time.Duration
	Window     int
	ForceAfter int
}

// DefaultSamplerConfig samples every second, keeps 100 samples and forces
// a sample after 42 unchanged readings.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{Interval: time.Second, Window: 100, ForceAfter: 42}
}

// Stats summarises the retained samples.
type Stats struct {
	Current time.Duration
	Min     time.Duration
	Median  time.Duration
	Max     time.Duration
	Samples int
}

// Sampler records gateway latency readings. Only changed values are kept,
// plus one forced sample after ForceAfter unchanged readings.
type Sampler struct {
	source   func() time.Duration
	onSample func(time.Duration)
	cfg      SamplerConfig

	mu        sync.Mutex
	samples   []time.Duration
	unchanged int
}

// NewSampler creates a Sampler reading from source. onSample, if set, runs
// for every stored sample.
func NewSampler(source func() time.Duration, cfg SamplerConfig, onSample func(time.Duration)) *Sampler {
	def := DefaultSamplerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ForceAfter <= 0 {
		cfg.ForceAfter = def.ForceAfter
	}
	return &Sampler{source: source, onSample: onSample, cfg: cfg}
}

// Run samples until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick takes one reading and reports whether it was stored.
func (s *Sampler) Tick() bool {
	v := s.source()

	s.mu.Lock()
	store := len(s.samples) == 0 || s.samples[len(s.samples)-1] != v
	if !store {
		s.unchanged++
		store = s.unchanged >= s.cfg.ForceAfter
	}
	if store {
		s.unchanged = 0
		s.samples = append(s.samples, v)
		if over := len(s.samples) - s.cfg.Window; over > 0 {
			s.samples = slices.Delete(s.samples, 0, over)
		}
	}
	s.mu.Unlock()

	if store && s.onSample != nil {
		s.onSample(v)
	}
	return store
}

// Stats returns the current reading and the retained sample summary. ok is
// false before the first sample.
func (s *Sampler) Stats() (Stats, bool) {
	current := s.source()

	s.mu.Lock()
	samples := slices.Clone(s.samples)
	s.mu.Unlock()

	if len(samples) == 0 {
		return Stats{Current: current}, false
	}
	sorted := slices.Sorted(slices.Values(samples))
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return Stats{
		Current: current,
		Min:     lo.Min(samples),
		Median:  median,
		Max:     lo.Max(samples),
		Samples: len(samples),
	}, true
}
