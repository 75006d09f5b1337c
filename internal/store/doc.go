// Package store provides durable storage for patches and device frontiers.
//
// Every backend implements the four-operation Store contract consumed by the
// replication engine:
//
//	GetMeta   - union of the frontiers of every known device
//	SaveMeta  - replace this device's frontier
//	GetPatch  - fetch one immutable patch by ref
//	AddPatch  - append a new patch; never overwrites
//
// # Backends
//
//   - FolderStore: one TOML file per patch and per device meta inside a
//     folder that an external tool (Syncthing, Dropbox, ...) replicates.
//   - SQLiteStore: the same data in a single SQLite database.
//   - MemStore: in-memory, for tests and conformance scenarios.
//
// # Persisted Layout (FolderStore)
//
//	<root>/meta/<device-id>.toml     patches = ["<ref>", ...]
//	<root>/patches/<patch-ref>.toml  one immutable file per patch
//
// There is no locking protocol between devices. Patch files are written
// exclusively (a ref collision fails with ErrPatchExists). Meta files are
// per-device and replaced atomically via rename, so concurrent writers on
// one device are last-writer-wins.
package store
