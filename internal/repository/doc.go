// Package repository replays stored patches into the merged, multi-valued
// view of a timesheet and flattens that view into a single answer.
//
// ARCHITECTURE:
//
// Replication Engine:
// Repository.Load reads the frontier (Meta) once, then walks it with a FIFO
// worklist. A patch is applied only after every parent it declares has been
// applied; otherwise its missing parents are queued behind it and the patch
// is retried later. The caller never has to pre-sort patches.
//
// Load Flow:
// 1. Queue every frontier ref
// 2. Pop, fetch (once), check parents
// 3. Missing parents queued, patch requeued (deferral)
// 4. Validate against current state, then apply all-or-nothing
// 5. Repeat until the queue drains or every queued ref is stuck
//
// Merge Rule:
// Each PatchedEvent keeps added and removed (origin patch, value) pairs for
// its start time and its tags. The surviving values are added minus removed,
// computed at read time, so replay order never changes the result.
//
// Conflicts:
// The engine never picks a winner. An event with zero or several surviving
// starts, or two events with the same start, is reported by Flatten as an
// Error alongside the partial Timesheet.
//
// Determinism:
// Frontier refs, event refs and set members are always visited in sorted
// order. No randomness, no concurrency.
package repository
