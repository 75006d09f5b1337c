package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/store"
)

// Harness is the scenario execution engine.
// Each scenario runs against a fresh in-memory store for isolation.
type Harness struct {
	store  *store.MemStore
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes replay logging to logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load every patch and device frontier into a MemStore
// 2. Replay the union frontier through a repository
// 3. Flatten the aggregate and derive segments
// 4. Evaluate assertions against the result
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	result := NewResult()
	result.patches = make(map[patch.PatchRef]*patch.Patch, len(scenario.Patches))

	h.store = store.NewMemStore("harness")
	for _, spec := range scenario.Patches {
		p := spec.build()
		result.patches[p.Ref] = p
		h.store.WithPatches(p)
	}
	for device, frontier := range scenario.Devices {
		h.store.WithMeta(device, refs(frontier)...)
	}

	repoOpts := []repository.Option{repository.WithLogger(h.logger)}
	if scenario.MaxIterations > 0 {
		repoOpts = append(repoOpts, repository.WithMaxIterations(scenario.MaxIterations))
	}
	repo, err := repository.Open(ctx, h.store, repoOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	ts, err := repo.Load(ctx)
	loadErrs := repository.AsErrors(err)
	if err != nil && len(loadErrs) == 0 {
		return nil, fmt.Errorf("failed to replay: %w", err)
	}
	flat, flatErr := ts.Flatten()

	result.aggregate = ts
	if applied := ts.Patches(); applied != nil {
		result.Applied = applied
	}
	result.addProblems(loadErrs)
	result.addProblems(repository.AsErrors(flatErr))
	result.addSegments(flat.Segments(scenarioNow(scenario)))

	h.logger.Info("scenario replayed",
		"scenario", scenario.Name,
		"applied", len(result.Applied),
		"events", len(result.Events),
		"problems", len(result.Problems),
	)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// scenarioNow returns the scenario's clock, or one hour after the latest
// start it mentions.
func scenarioNow(s *Scenario) time.Time {
	if !s.Now.IsZero() {
		return patch.Instant(s.Now)
	}
	var starts []time.Time
	for _, p := range s.Patches {
		for _, op := range p.CreateEvents {
			starts = append(starts, op.Start)
		}
		for _, op := range p.AddStarts {
			starts = append(starts, op.Time)
		}
	}
	if len(starts) == 0 {
		return time.Unix(0, 0).UTC()
	}
	latest := slices.MaxFunc(starts, func(a, b time.Time) int { return a.Compare(b) })
	return patch.Instant(latest.Add(time.Hour))
}
