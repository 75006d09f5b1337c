package store

import (
	"context"
	"fmt"

	"github.com/roach88/augr/internal/patch"
)

// AddPatch inserts a patch into the store.
// Uses ON CONFLICT(ref) DO NOTHING and inspects RowsAffected: a ref that is
// already present yields ErrPatchExists rather than a silent upsert, because
// patches are immutable.
func (s *SQLiteStore) AddPatch(ctx context.Context, p *patch.Patch) error {
	if err := patch.ValidateRef(string(p.Ref)); err != nil {
		return fmt.Errorf("add patch: %w", err)
	}

	body, err := MarshalPatch(p)
	if err != nil {
		return fmt.Errorf("add patch: %w", err)
	}

	var inserted int64
	err = retryOp(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO patches (ref, body)
			VALUES (?, ?)
			ON CONFLICT(ref) DO NOTHING
		`, string(p.Ref), string(body))
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("add patch %s: %w", p.Ref, err)
	}
	if inserted == 0 {
		return fmt.Errorf("add patch %s: %w", p.Ref, ErrPatchExists)
	}

	return nil
}

// SaveMeta replaces this device's frontier in a single transaction.
// Frontiers of other devices are left untouched.
func (s *SQLiteStore) SaveMeta(ctx context.Context, meta patch.Meta) error {
	err := retryOp(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM frontier WHERE device_id = ?`, s.deviceID); err != nil {
			return err
		}
		for _, ref := range meta.Refs() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO frontier (device_id, ref)
				VALUES (?, ?)
				ON CONFLICT DO NOTHING
			`, s.deviceID, string(ref)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("save meta for %s: %w", s.deviceID, err)
	}
	return nil
}
