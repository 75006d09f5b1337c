package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/augr/internal/patch"
)

// GetPatch returns the patch stored under ref.
// Returns an error wrapping ErrNotFound if no such patch exists.
func (s *SQLiteStore) GetPatch(ctx context.Context, ref patch.PatchRef) (*patch.Patch, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM patches WHERE ref = ?
	`, string(ref)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get patch %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patch %s: %w", ref, err)
	}

	return UnmarshalPatch(ref, []byte(body))
}

// GetMeta returns the union of every device frontier stored in the database.
func (s *SQLiteStore) GetMeta(ctx context.Context) (patch.Meta, error) {
	return s.queryMeta(ctx, `
		SELECT DISTINCT ref FROM frontier
		ORDER BY ref COLLATE BINARY ASC
	`)
}

// DeviceMeta returns the frontier of a single device.
func (s *SQLiteStore) DeviceMeta(ctx context.Context, deviceID string) (patch.Meta, error) {
	return s.queryMeta(ctx, `
		SELECT ref FROM frontier
		WHERE device_id = ?
		ORDER BY ref COLLATE BINARY ASC
	`, deviceID)
}

// PatchRefs returns every stored patch ref in local arrival order.
func (s *SQLiteStore) PatchRefs(ctx context.Context) ([]patch.PatchRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref FROM patches
		ORDER BY seq ASC, ref COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query patches: %w", err)
	}
	defer rows.Close()

	refs := []patch.PatchRef{}
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan patch ref: %w", err)
		}
		refs = append(refs, patch.PatchRef(ref))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patches: %w", err)
	}
	return refs, nil
}

func (s *SQLiteStore) queryMeta(ctx context.Context, query string, args ...any) (patch.Meta, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return patch.Meta{}, fmt.Errorf("query frontier: %w", err)
	}
	defer rows.Close()

	meta := patch.NewMeta()
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return patch.Meta{}, fmt.Errorf("scan frontier: %w", err)
		}
		meta.Add(patch.PatchRef(ref))
	}
	if err := rows.Err(); err != nil {
		return patch.Meta{}, fmt.Errorf("iterate frontier: %w", err)
	}
	return meta, nil
}
