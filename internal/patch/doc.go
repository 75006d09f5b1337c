// Package patch defines the immutable change records that devices exchange.
//
// A Patch is a bundle of operations against timesheet events plus the set of
// patches it supersedes. Patches are identified solely by their randomly
// assigned PatchRef; two structurally identical patches with different refs
// are different patches.
//
// This package contains value types only. Every other internal package
// imports patch; patch imports nothing internal.
//
// Key constraints:
//   - Times are stored as UTC instants without monotonic readings (see Instant)
//   - Tags are NFC normalized and trimmed (see NormalizeTag)
//   - Operation sets have set semantics; adding an identical op twice is a no-op
package patch
