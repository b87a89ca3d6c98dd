package store

import (
	"context"
	"fmt"
)

// InsertTemplates records the templates of a template package as child
// packages, in order.
func (s *Store) InsertTemplates(ctx context.Context, parentID int64, templates []Template, checksums []string) error {
	if len(templates) != len(checksums) {
		return fmt.Errorf("insert templates: %d templates but %d checksums", len(templates), len(checksums))
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.rollback()

	for i, t := range templates {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO package (parent_ref, path, type, version, description, checksum)
			VALUES (?, ?, ?, '', ?, ?)
		`, parentID, t.Path, string(PackageTypeSingleTemplate), t.Name, checksums[i])
		if err != nil {
			return fmt.Errorf("insert template %s: %w", t.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert template %s: %w", t.Path, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO template (package_ref, name, output) VALUES (?, ?, ?)
		`, id, t.Name, t.Output); err != nil {
			return fmt.Errorf("insert template %s: %w", t.Path, err)
		}
	}

	if err := tx.commit(); err != nil {
		return fmt.Errorf("commit templates: %w", err)
	}
	return nil
}

// Templates returns the templates of a template package in load order.
func (s *Store) Templates(ctx context.Context, parentID int64) ([]Template, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT p.package_id, p.path, t.name, t.output
		FROM package p
		JOIN template t ON t.package_ref = p.package_id
		WHERE p.parent_ref = ?
		ORDER BY p.package_id ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.PackageID, &t.Path, &t.Name, &t.Output); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}
