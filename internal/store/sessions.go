package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KeyValue is one session-level setting.
type KeyValue struct {
	Key   string
	Value string
}

// CreateSession inserts a blank session and returns it.
func (s *Store) CreateSession(ctx context.Context) (Session, error) {
	sess := Session{
		Key:       s.keys.Generate(),
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO session (session_key, created_at) VALUES (?, ?)
	`, sess.Key, sess.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	sess.ID, err = res.LastInsertId()
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// SessionByID returns a session.
// Returns sql.ErrNoRows if not found.
func (s *Store) SessionByID(ctx context.Context, id int64) (Session, error) {
	var (
		sess    Session
		created string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT session_id, session_key, created_at FROM session WHERE session_id = ?
	`, id).Scan(&sess.ID, &sess.Key, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Session{}, fmt.Errorf("parse session created_at: %w", err)
	}
	return sess, nil
}

// SetSessionKeyValue writes or replaces a session setting.
func (s *Store) SetSessionKeyValue(ctx context.Context, sessionID int64, key, value string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO session_key_value (session_ref, key, value) VALUES (?, ?, ?)
		ON CONFLICT(session_ref, key) DO UPDATE SET value = excluded.value
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("set session %d key %q: %w", sessionID, key, err)
	}
	return nil
}

// SessionKeyValues returns the settings of a session ordered by key.
func (s *Store) SessionKeyValues(ctx context.Context, sessionID int64) ([]KeyValue, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT key, value FROM session_key_value
		WHERE session_ref = ?
		ORDER BY key COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session key values: %w", err)
	}
	defer rows.Close()

	kvs := []KeyValue{}
	for rows.Next() {
		var kv KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("scan session key value: %w", err)
		}
		kvs = append(kvs, kv)
	}
	return kvs, rows.Err()
}

// InsertEndpointType records an endpoint type and its cluster states in one
// transaction.
func (s *Store) InsertEndpointType(ctx context.Context, sessionID int64, et EndpointType) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO endpoint_type (session_ref, name) VALUES (?, ?)
	`, sessionID, et.Name)
	if err != nil {
		return 0, fmt.Errorf("insert endpoint type %s: %w", et.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert endpoint type %s: %w", et.Name, err)
	}

	for _, c := range et.Clusters {
		var clusterRef any
		if c.ClusterID != 0 {
			clusterRef = c.ClusterID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO endpoint_type_cluster (endpoint_type_ref, cluster_ref, cluster_code, cluster_name, side, enabled)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, clusterRef, c.Code, c.Name, c.Side, boolToInt(c.Enabled)); err != nil {
			return 0, fmt.Errorf("insert endpoint type cluster %d: %w", c.Code, err)
		}
	}

	if err := tx.commit(); err != nil {
		return 0, fmt.Errorf("commit endpoint type: %w", err)
	}
	return id, nil
}

// EndpointTypes returns the endpoint types of a session with their cluster
// states, in insertion order.
func (s *Store) EndpointTypes(ctx context.Context, sessionID int64) ([]EndpointType, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT et.endpoint_type_id, et.name,
		       etc.cluster_ref, etc.cluster_code, etc.cluster_name, etc.side, etc.enabled
		FROM endpoint_type et
		LEFT JOIN endpoint_type_cluster etc ON etc.endpoint_type_ref = et.endpoint_type_id
		WHERE et.session_ref = ?
		ORDER BY et.endpoint_type_id ASC, etc.rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query endpoint types: %w", err)
	}
	defer rows.Close()

	types := []EndpointType{}
	for rows.Next() {
		var (
			et         EndpointType
			clusterRef sql.NullInt64
			code       sql.NullInt64
			name, side sql.NullString
			enabled    sql.NullInt64
		)
		if err := rows.Scan(&et.ID, &et.Name, &clusterRef, &code, &name, &side, &enabled); err != nil {
			return nil, fmt.Errorf("scan endpoint type: %w", err)
		}
		if n := len(types); n == 0 || types[n-1].ID != et.ID {
			types = append(types, et)
		}
		if code.Valid {
			last := &types[len(types)-1]
			last.Clusters = append(last.Clusters, EndpointTypeCluster{
				ClusterID: clusterRef.Int64,
				Code:      code.Int64,
				Name:      name.String,
				Side:      side.String,
				Enabled:   enabled.Int64 != 0,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endpoint types: %w", err)
	}
	return types, nil
}
