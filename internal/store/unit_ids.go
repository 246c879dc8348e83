package store

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"

	"github.com/roach88/ezdbgen/internal/solution"
)

// UnitIDs returns the identifiers previously assigned to units generated
// from server, keyed by unit name. Lookups through the returned function are
// case-insensitive, matching unit-name uniqueness in the manifest.
func (s *Store) UnitIDs(ctx context.Context, server string) (func(name string) string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit_key, id FROM unit_ids WHERE server = ?
	`, server)
	if err != nil {
		return nil, fmt.Errorf("query unit ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("scan unit id: %w", err)
		}
		ids[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit ids: %w", err)
	}

	return func(name string) string {
		return ids[unitKey(name)]
	}, nil
}

// SaveUnitIDs records the identifiers of units. A unit that already has an
// identifier on server keeps the first one.
func (s *Store) SaveUnitIDs(ctx context.Context, server string, units []solution.Unit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save unit ids: %w", err)
	}
	defer tx.Rollback()

	for _, u := range units {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO unit_ids (server, unit_key, unit, id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(server, unit_key) DO NOTHING
		`, server, unitKey(u.Name), u.Name, u.ID)
		if err != nil {
			return fmt.Errorf("save unit id for %s: %w", u.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save unit ids: %w", err)
	}
	return nil
}

func unitKey(name string) string {
	return cases.Fold().String(name)
}
