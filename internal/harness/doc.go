// Package harness runs conformance scenarios against the replication
// engine.
//
// A scenario describes a patch history as it would sit in a store: the
// patches themselves plus the frontier each device last saved. The harness
// loads it into an in-memory store, replays it through a repository,
// flattens the result and evaluates the scenario's assertions.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_b
//	description: "A second patch moves lunch and tags the work event"
//	now: 2019-07-23T18:00:00Z
//	devices:
//	  laptop: [p2]
//	patches:
//	  - id: p1
//	    create_event:
//	      - { event: a, start: 2019-07-23T12:00:00Z, tags: [lunch, food] }
//	  - id: p2
//	    remove_start:
//	      - { patch: p1, event: a, time: 2019-07-23T12:00:00Z }
//	    add_start:
//	      - { event: a, time: 2019-07-23T12:30:00Z, parents: [p1] }
//	assertions:
//	  - type: event
//	    event: a
//	    start: 2019-07-23T12:30:00Z
//	    tags: [lunch]
//
// A frontier may name patches the scenario does not define; replaying them
// reports PATCH_NOT_FOUND just as a store missing a synced file would.
//
// # Assertion Types
//
//   - applied: exactly the listed patches were applied
//   - event: the flattened event has the given start and tags
//   - segment: the event's segment lasts the given duration
//   - event_count: the flattened timesheet holds N events
//   - problem: a replay or flatten error with the given code (and optionally
//     patch, event, other_event) was reported
//   - no_problems: replay and flatten were clean
//   - converges: replaying the applied patches in a different causal order,
//     and then once more on top, flattens to the same events
//
// # Golden Snapshots
//
// RunWithGolden and AssertGolden compare a JSON snapshot of the outcome
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
