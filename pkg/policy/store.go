package policy

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ReloadRecorder receives the outcome of every reload attempt.
type ReloadRecorder interface {
	RecordPolicyReload(outcome string)
}

// Store publishes the current Tables snapshot. Reads are lock-free; reloads are
// serialised and swap in a fully built snapshot, so a request sees either the
// old or the new tables in their entirety.
type Store struct {
	loader  Loader
	current atomic.Pointer[Tables]
	logger  zerolog.Logger

	mu          sync.Mutex
	generation  int64
	lastReload  time.Time
	metrics     ReloadRecorder
	subscribers []chan *Tables
}

// NewStore loads the initial snapshot. A load failure is fatal to the caller.
func NewStore(loader Loader, logger zerolog.Logger) (*Store, error) {
	tables, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load policy tables: %w", err)
	}

	s := &Store{
		loader: loader,
		logger: logger.With().Str("component", "policy").Logger(),
	}
	s.publish(tables)

	s.logger.Info().
		Int("object_types", len(tables.Types())).
		Msg("Policy tables loaded")

	return s, nil
}

// SetMetrics sets the recorder for reload outcomes.
func (s *Store) SetMetrics(metrics ReloadRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// Current returns the snapshot in effect.
func (s *Store) Current() *Tables {
	return s.current.Load()
}

// Reload rebuilds every table. On failure the previous snapshot stays in
// effect.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	tables, err := s.loader.Load()
	if err != nil {
		s.logger.Error().Err(err).Int64("generation", s.generation).Msg("Policy reload failed, keeping current tables")
		if s.metrics != nil {
			s.metrics.RecordPolicyReload("failed")
		}
		return fmt.Errorf("policy reload failed: %w", err)
	}

	s.publish(tables)
	s.lastReload = time.Now()

	s.logger.Info().
		Int64("generation", s.generation).
		Dur("duration", time.Since(start)).
		Msg("Policy tables reloaded")

	if s.metrics != nil {
		s.metrics.RecordPolicyReload("success")
	}
	return nil
}

// Subscribe returns a channel that receives every published snapshot,
// starting with the current one. Slow subscribers miss intermediate snapshots.
func (s *Store) Subscribe() <-chan *Tables {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *Tables, 1)
	ch <- s.current.Load()
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// ReloadStats returns the current generation and the time of the last reload.
func (s *Store) ReloadStats() (int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation, s.lastReload
}

// publish must be called with mu held, or before the store is shared.
func (s *Store) publish(tables *Tables) {
	s.generation++
	tables.generation = s.generation
	s.current.Store(tables)

	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- tables:
		default:
		}
	}
}
