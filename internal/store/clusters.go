package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InsertClusters records the clusters of a metadata package in one
// transaction and returns their ids in input order.
func (s *Store) InsertClusters(ctx context.Context, packageID int64, clusters []Cluster) ([]int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.rollback()

	ids := make([]int64, 0, len(clusters))
	for _, c := range clusters {
		var mfg any
		if c.ManufacturerCode != nil {
			mfg = *c.ManufacturerCode
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cluster (package_ref, code, manufacturer_code, name, define, description, sides)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, packageID, c.Code, mfg, c.Label, c.Define, c.Description, strings.Join(c.Sides, ","))
		if err != nil {
			return nil, fmt.Errorf("insert cluster %s: %w", c.Label, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert cluster %s: %w", c.Label, err)
		}
		ids = append(ids, id)
	}

	if err := tx.commit(); err != nil {
		return nil, fmt.Errorf("commit clusters: %w", err)
	}
	return ids, nil
}

// ClusterByID returns a cluster record.
// Returns sql.ErrNoRows if not found.
func (s *Store) ClusterByID(ctx context.Context, id int64) (Cluster, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT cluster_id, package_ref, code, manufacturer_code, name, define, description, sides
		FROM cluster WHERE cluster_id = ?
	`, id)
	return scanCluster(row)
}

// ClusterByCode returns the cluster with a code inside a metadata package.
// Returns sql.ErrNoRows if not found.
func (s *Store) ClusterByCode(ctx context.Context, packageID, code int64) (Cluster, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT cluster_id, package_ref, code, manufacturer_code, name, define, description, sides
		FROM cluster
		WHERE package_ref = ? AND code = ?
		ORDER BY cluster_id ASC
		LIMIT 1
	`, packageID, code)
	return scanCluster(row)
}

// Clusters returns all clusters of a metadata package ordered by code.
func (s *Store) Clusters(ctx context.Context, packageID int64) ([]Cluster, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT cluster_id, package_ref, code, manufacturer_code, name, define, description, sides
		FROM cluster
		WHERE package_ref = ?
		ORDER BY code ASC, cluster_id ASC
	`, packageID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	clusters := []Cluster{}
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return clusters, nil
}

func scanCluster(row scanner) (Cluster, error) {
	var (
		c     Cluster
		mfg   sql.NullInt64
		sides string
	)
	if err := row.Scan(&c.ID, &c.PackageID, &c.Code, &mfg, &c.Label, &c.Define, &c.Description, &sides); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cluster{}, err
		}
		return Cluster{}, fmt.Errorf("scan cluster: %w", err)
	}
	if mfg.Valid {
		v := mfg.Int64
		c.ManufacturerCode = &v
	}
	if sides != "" {
		c.Sides = strings.Split(sides, ",")
	}
	return c, nil
}
