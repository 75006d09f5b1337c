package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/augr/internal/patch"
)

const (
	metaDir    = "meta"
	patchesDir = "patches"
	fileExt    = ".toml"
)

// FolderStore keeps one TOML file per patch and one per device frontier
// inside a sync folder. The folder itself is replicated between devices by an
// external tool; FolderStore only ever writes its own device's meta file and
// new patch files.
type FolderStore struct {
	root     string
	deviceID string
}

// NewFolderStore returns a store rooted at root writing meta for deviceID.
// Directories are created lazily on first write.
func NewFolderStore(root, deviceID string) (*FolderStore, error) {
	if root == "" {
		return nil, fmt.Errorf("sync folder is not set")
	}
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}
	return &FolderStore{root: root, deviceID: deviceID}, nil
}

// Root returns the sync folder path.
func (s *FolderStore) Root() string {
	return s.root
}

// DeviceID returns the device whose meta file SaveMeta writes.
func (s *FolderStore) DeviceID() string {
	return s.deviceID
}

// MetaDir returns the directory holding device meta files.
func (s *FolderStore) MetaDir() string {
	return filepath.Join(s.root, metaDir)
}

// PatchDir returns the directory holding patch files.
func (s *FolderStore) PatchDir() string {
	return filepath.Join(s.root, patchesDir)
}

// GetMeta returns the union of every device's frontier. A missing meta
// directory is an empty frontier, not an error.
func (s *FolderStore) GetMeta(ctx context.Context) (patch.Meta, error) {
	devices, err := s.Devices()
	if err != nil {
		return patch.Meta{}, err
	}

	all := patch.NewMeta()
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return patch.Meta{}, err
		}
		m, err := s.DeviceMeta(device)
		if err != nil {
			return patch.Meta{}, err
		}
		all = all.Union(m)
	}
	return all, nil
}

// Devices lists the device ids that have a meta file, sorted.
func (s *FolderStore) Devices() ([]string, error) {
	entries, err := os.ReadDir(s.MetaDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read meta dir: %w", err)
	}

	var devices []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		devices = append(devices, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(devices)
	return devices, nil
}

// DeviceMeta reads the frontier of one device. A device without a meta file
// has an empty frontier.
func (s *FolderStore) DeviceMeta(deviceID string) (patch.Meta, error) {
	if err := validateDeviceID(deviceID); err != nil {
		return patch.Meta{}, err
	}
	path := filepath.Join(s.MetaDir(), deviceID+fileExt)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return patch.NewMeta(), nil
	}
	if err != nil {
		return patch.Meta{}, fmt.Errorf("read meta %s: %w", deviceID, err)
	}
	m, err := UnmarshalMeta(data)
	if err != nil {
		return patch.Meta{}, fmt.Errorf("meta %s: %w", deviceID, err)
	}
	return m, nil
}

// SaveMeta atomically replaces this device's meta file.
func (s *FolderStore) SaveMeta(ctx context.Context, meta patch.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := MarshalMeta(meta)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.MetaDir(), 0o755); err != nil {
		return fmt.Errorf("create meta dir: %w", err)
	}

	path := filepath.Join(s.MetaDir(), s.deviceID+fileExt)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("save meta %s: %w", s.deviceID, err)
	}
	return nil
}

// GetPatch reads and decodes the patch file for ref.
func (s *FolderStore) GetPatch(ctx context.Context, ref patch.PatchRef) (*patch.Patch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := patch.ValidateRef(string(ref)); err != nil {
		return nil, fmt.Errorf("get patch: %w", err)
	}

	data, err := os.ReadFile(s.patchPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("get patch %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patch %s: %w", ref, err)
	}
	return UnmarshalPatch(ref, data)
}

// AddPatch writes a new patch file. The file is created exclusively so an
// existing patch is never overwritten.
func (s *FolderStore) AddPatch(ctx context.Context, p *patch.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := patch.ValidateRef(string(p.Ref)); err != nil {
		return fmt.Errorf("add patch: %w", err)
	}
	data, err := MarshalPatch(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.PatchDir(), 0o755); err != nil {
		return fmt.Errorf("create patch dir: %w", err)
	}

	f, err := os.OpenFile(s.patchPath(p.Ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("add patch %s: %w", p.Ref, ErrPatchExists)
	}
	if err != nil {
		return fmt.Errorf("add patch %s: %w", p.Ref, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write patch %s: %w", p.Ref, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync patch %s: %w", p.Ref, err)
	}
	return f.Close()
}

// PatchRefs lists the refs of every patch file in the folder, sorted.
func (s *FolderStore) PatchRefs(ctx context.Context) ([]patch.PatchRef, error) {
	entries, err := os.ReadDir(s.PatchDir())
	if errors.Is(err, fs.ErrNotExist) {
		return []patch.PatchRef{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read patch dir: %w", err)
	}

	refs := []patch.PatchRef{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		refs = append(refs, patch.PatchRef(strings.TrimSuffix(name, fileExt)))
	}
	return refs, nil
}

func (s *FolderStore) patchPath(ref patch.PatchRef) string {
	return filepath.Join(s.PatchDir(), string(ref)+fileExt)
}

// writeFileAtomic writes data to a hidden temp file next to path and renames
// it into place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func validateDeviceID(deviceID string) error {
	if err := patch.ValidateRef(deviceID); err != nil {
		return fmt.Errorf("invalid device id: %w", err)
	}
	return nil
}
