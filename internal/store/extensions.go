package store

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey returns the canonical form of an extension key: NFC
// normalized and Unicode case folded.
func NormalizeKey(key string) string {
	// Casers are stateful, so one per call.
	return cases.Fold().String(norm.NFC.String(key))
}

// CompositeKey joins an entity code and qualifier into a normalized key.
// An empty qualifier yields the normalized code alone.
func CompositeKey(code, qualifier string) string {
	if qualifier == "" {
		return NormalizeKey(code)
	}
	return NormalizeKey(code + "-" + qualifier)
}

// InsertExtensions records the extensions of a package with their defaults.
// Default keys are normalized here; the Key field of the input is ignored.
func (s *Store) InsertExtensions(ctx context.Context, packageID int64, exts []Extension) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.rollback()

	for _, e := range exts {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO package_extension (package_ref, entity, property, type, configurability, label, global_default)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, packageID, e.Entity, e.Property, e.Type, e.Configurability, e.Label, e.GlobalDefault)
		if err != nil {
			return fmt.Errorf("insert extension %s.%s: %w", e.Entity, e.Property, err)
		}
		extID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert extension %s.%s: %w", e.Entity, e.Property, err)
		}
		for _, d := range e.Defaults {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO package_extension_default (package_extension_ref, entity_code, entity_qualifier, entity_key, value)
				VALUES (?, ?, ?, ?, ?)
			`, extID, d.EntityCode, d.EntityQualifier, CompositeKey(d.EntityCode, d.EntityQualifier), d.Value); err != nil {
				return fmt.Errorf("insert extension default %s: %w", d.EntityCode, err)
			}
		}
	}

	if err := tx.commit(); err != nil {
		return fmt.Errorf("commit extensions: %w", err)
	}
	return nil
}

// PackageExtensions returns the extensions a package declares for an entity
// type, each with its defaults in insertion order.
func (s *Store) PackageExtensions(ctx context.Context, packageID int64, entity string) ([]Extension, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.package_extension_id, e.package_ref, e.entity, e.property, e.type,
		       e.configurability, e.label, e.global_default,
		       d.entity_code, d.entity_qualifier, d.entity_key, d.value
		FROM package_extension e
		LEFT JOIN package_extension_default d ON d.package_extension_ref = e.package_extension_id
		WHERE e.package_ref = ? AND e.entity = ?
		ORDER BY e.package_extension_id ASC, d.package_extension_default_id ASC
	`, packageID, entity)
	if err != nil {
		return nil, fmt.Errorf("query extensions: %w", err)
	}
	defer rows.Close()

	exts := []Extension{}
	for rows.Next() {
		var (
			e                           Extension
			code, qualifier, key, value *string
		)
		if err := rows.Scan(&e.ID, &e.PackageID, &e.Entity, &e.Property, &e.Type,
			&e.Configurability, &e.Label, &e.GlobalDefault,
			&code, &qualifier, &key, &value); err != nil {
			return nil, fmt.Errorf("scan extension: %w", err)
		}
		if n := len(exts); n == 0 || exts[n-1].ID != e.ID {
			exts = append(exts, e)
		}
		if code != nil {
			last := &exts[len(exts)-1]
			last.Defaults = append(last.Defaults, ExtensionDefault{
				EntityCode:      *code,
				EntityQualifier: *qualifier,
				Key:             *key,
				Value:           *value,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extensions: %w", err)
	}
	return exts, nil
}

// ExtensionValue looks up key under property in exts. The key is normalized
// before comparison and the first matching default wins.
func ExtensionValue(exts []Extension, property, key string) (string, bool) {
	want := NormalizeKey(key)
	for _, e := range exts {
		if e.Property != property {
			continue
		}
		for _, d := range e.Defaults {
			if d.Key == want {
				return d.Value, true
			}
		}
	}
	return "", false
}
