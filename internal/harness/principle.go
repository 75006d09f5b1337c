package harness

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
)

// ConvergenceError is returned when replaying the same patches in another
// causal order, or a second time, changes the flattened timesheet.
type ConvergenceError struct {
	Stage    string // "reordered" or "reapplied"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("replay did not converge (%s): expected %s, got %s", e.Stage, e.Expected, e.Actual)
}

// CheckConvergence replays every applied patch into a fresh aggregate,
// always choosing the highest ref that is ready (the opposite of a FIFO
// worklist over a sorted frontier), applies every patch once more, and
// compares each flattened outcome with the original.
func CheckConvergence(result *Result) error {
	if result.aggregate == nil {
		return fmt.Errorf("result holds no replay")
	}

	ts, err := reorderedReplay(result)
	if err != nil {
		return err
	}
	if err := sameOutcome(result, ts, "reordered"); err != nil {
		return err
	}

	for _, ref := range result.Applied {
		if err := ts.Apply(result.patches[ref]); err != nil {
			return fmt.Errorf("reapplying %s: %w", ref, err)
		}
	}
	return sameOutcome(result, ts, "reapplied")
}

// reorderedReplay applies the applied patches highest-ref-first among those
// whose parents are already in.
func reorderedReplay(result *Result) (*repository.PatchedTimesheet, error) {
	pending := slices.Clone(result.Applied)
	slices.Sort(pending)
	slices.Reverse(pending)

	ts := repository.NewPatchedTimesheet()
	for len(pending) > 0 {
		i := slices.IndexFunc(pending, func(ref patch.PatchRef) bool {
			return ready(ts, result.patches[ref])
		})
		if i < 0 {
			return nil, fmt.Errorf("no applicable patch among %v", pending)
		}
		if err := ts.Apply(result.patches[pending[i]]); err != nil {
			return nil, fmt.Errorf("applying %s: %w", pending[i], err)
		}
		pending = slices.Delete(pending, i, i+1)
	}
	return ts, nil
}

func ready(ts *repository.PatchedTimesheet, p *patch.Patch) bool {
	for _, parent := range p.Parents() {
		if !ts.Applied(parent) {
			return false
		}
	}
	return len(ts.Validate(p)) == 0
}

func sameOutcome(result *Result, ts *repository.PatchedTimesheet, stage string) error {
	flat, flatErr := ts.Flatten()
	want, wantErr := result.aggregate.Flatten()

	if !reflect.DeepEqual(want.Events(), flat.Events()) {
		return &ConvergenceError{
			Stage:    stage,
			Expected: fmt.Sprintf("%v", want.Events()),
			Actual:   fmt.Sprintf("%v", flat.Events()),
		}
	}
	wantCodes := repository.AsErrors(wantErr).Codes()
	gotCodes := repository.AsErrors(flatErr).Codes()
	if !slices.Equal(wantCodes, gotCodes) {
		return &ConvergenceError{
			Stage:    stage,
			Expected: fmt.Sprintf("flatten errors %v", wantCodes),
			Actual:   fmt.Sprintf("flatten errors %v", gotCodes),
		}
	}
	return nil
}
