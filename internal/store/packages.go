package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsertPackage records a package and returns its id. If a package with the
// same path, type and checksum already exists its id is returned with
// existed=true and nothing is written.
func (s *Store) InsertPackage(ctx context.Context, p Package) (id int64, existed bool, err error) {
	err = s.q.QueryRowContext(ctx, `
		SELECT package_id FROM package
		WHERE path = ? AND type = ? AND checksum = ?
	`, p.Path, string(p.Type), p.Checksum).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("lookup package %s: %w", p.Path, err)
	}

	var parent any
	if p.ParentID != 0 {
		parent = p.ParentID
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO package (parent_ref, path, type, version, description, checksum)
		VALUES (?, ?, ?, ?, ?, ?)
	`, parent, p.Path, string(p.Type), p.Version, p.Description, p.Checksum)
	if err != nil {
		return 0, false, fmt.Errorf("insert package %s: %w", p.Path, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("insert package %s: %w", p.Path, err)
	}
	return id, false, nil
}

// PackageByID returns a single package.
// Returns sql.ErrNoRows if not found.
func (s *Store) PackageByID(ctx context.Context, id int64) (Package, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT package_id, parent_ref, path, type, version, description, checksum
		FROM package WHERE package_id = ?
	`, id)
	return scanPackage(row)
}

// PackagesByType returns all top-level packages of a type, oldest first.
func (s *Store) PackagesByType(ctx context.Context, t PackageType) ([]Package, error) {
	return s.queryPackages(ctx, `
		SELECT package_id, parent_ref, path, type, version, description, checksum
		FROM package
		WHERE type = ? AND parent_ref IS NULL
		ORDER BY package_id ASC
	`, string(t))
}

// PackageByPath returns the newest top-level package loaded from path with
// the given type. Returns sql.ErrNoRows if none was loaded.
func (s *Store) PackageByPath(ctx context.Context, path string, t PackageType) (Package, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT package_id, parent_ref, path, type, version, description, checksum
		FROM package
		WHERE path = ? AND type = ? AND parent_ref IS NULL
		ORDER BY package_id DESC
		LIMIT 1
	`, path, string(t))
	return scanPackage(row)
}

// ChildPackages returns the packages whose parent is id, in load order.
func (s *Store) ChildPackages(ctx context.Context, id int64) ([]Package, error) {
	return s.queryPackages(ctx, `
		SELECT package_id, parent_ref, path, type, version, description, checksum
		FROM package
		WHERE parent_ref = ?
		ORDER BY package_id ASC
	`, id)
}

// SessionPackagesByType returns the packages of a type attached to a
// session, in attach order.
func (s *Store) SessionPackagesByType(ctx context.Context, sessionID int64, t PackageType) ([]Package, error) {
	return s.queryPackages(ctx, `
		SELECT p.package_id, p.parent_ref, p.path, p.type, p.version, p.description, p.checksum
		FROM session_package sp
		JOIN package p ON p.package_id = sp.package_ref
		WHERE sp.session_ref = ? AND p.type = ?
		ORDER BY sp.rowid ASC
	`, sessionID, string(t))
}

// SessionPackages returns every package attached to a session.
func (s *Store) SessionPackages(ctx context.Context, sessionID int64) ([]Package, error) {
	return s.queryPackages(ctx, `
		SELECT p.package_id, p.parent_ref, p.path, p.type, p.version, p.description, p.checksum
		FROM session_package sp
		JOIN package p ON p.package_id = sp.package_ref
		WHERE sp.session_ref = ?
		ORDER BY sp.rowid ASC
	`, sessionID)
}

// AttachPackage links a package to a session. Attaching twice is a no-op.
func (s *Store) AttachPackage(ctx context.Context, sessionID, packageID int64, required bool) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_package (session_ref, package_ref, required)
		VALUES (?, ?, ?)
	`, sessionID, packageID, boolToInt(required))
	if err != nil {
		return fmt.Errorf("attach package %d to session %d: %w", packageID, sessionID, err)
	}
	return nil
}

// InsertPackageOptions records the options declared by a package.
func (s *Store) InsertPackageOptions(ctx context.Context, packageID int64, opts []PackageOption) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.rollback()

	for _, o := range opts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO package_option (package_ref, category, code, label) VALUES (?, ?, ?, ?)
		`, packageID, o.Category, o.Code, o.Label); err != nil {
			return fmt.Errorf("insert package option %s/%s: %w", o.Category, o.Code, err)
		}
	}
	return tx.commit()
}

// PackageOptions returns the options of a package in a category.
func (s *Store) PackageOptions(ctx context.Context, packageID int64, category string) ([]PackageOption, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT category, code, label FROM package_option
		WHERE package_ref = ? AND category = ?
		ORDER BY rowid ASC
	`, packageID, category)
	if err != nil {
		return nil, fmt.Errorf("query package options: %w", err)
	}
	defer rows.Close()

	opts := []PackageOption{}
	for rows.Next() {
		var o PackageOption
		if err := rows.Scan(&o.Category, &o.Code, &o.Label); err != nil {
			return nil, fmt.Errorf("scan package option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (s *Store) queryPackages(ctx context.Context, query string, args ...any) ([]Package, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()

	pkgs := []Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}
	return pkgs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPackage(row scanner) (Package, error) {
	var (
		p      Package
		parent sql.NullInt64
		typ    string
	)
	if err := row.Scan(&p.ID, &parent, &p.Path, &typ, &p.Version, &p.Description, &p.Checksum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Package{}, err
		}
		return Package{}, fmt.Errorf("scan package: %w", err)
	}
	p.ParentID = parent.Int64
	p.Type = PackageType(typ)
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
