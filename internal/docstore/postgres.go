package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore keeps every document in a single versioned JSONB table.
// Merge writes lean on jsonb concatenation, which replaces colliding
// top-level fields and preserves the rest — the same shallow-merge
// contract the service layer is written against.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*Document, error) {
	_, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	query := `SELECT data, version FROM documents WHERE path = $1`

	var raw []byte
	var version int64
	err = s.db.QueryRowContext(ctx, query, path).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	data := make(map[string]interface{})
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
	}

	return &Document{Path: path, ID: id, Data: data, Version: version}, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	collection, _, err := SplitPath(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (path, collection, data, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (path) DO UPDATE
		SET data = EXCLUDED.data,
		    version = documents.version + 1,
		    updated_at = NOW()
	`
	if merge {
		query = `
			INSERT INTO documents (path, collection, data, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())
			ON CONFLICT (path) DO UPDATE
			SET data = documents.data || EXCLUDED.data,
			    version = documents.version + 1,
			    updated_at = NOW()
		`
	}

	if _, err := s.db.ExecContext(ctx, query, path, collection, raw); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	query := `SELECT path, data, version FROM documents WHERE collection = $1 ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, collectionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var path string
		var raw []byte
		var version int64
		if err := rows.Scan(&path, &raw, &version); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		data := make(map[string]interface{})
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", path, err)
		}

		_, id, err := SplitPath(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &Document{Path: path, ID: id, Data: data, Version: version})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) Update(ctx context.Context, path string, fn UpdateFunc) error {
	collection, _, err := SplitPath(path)
	if err != nil {
		return err
	}

	doc, err := s.Get(ctx, path)
	exists := true
	var version int64
	var data map[string]interface{}
	switch {
	case err == nil:
		version = doc.Version
		data = doc.Data
	case errors.Is(err, ErrNotFound):
		exists = false
	default:
		return err
	}

	newData, err := fn(data, exists)
	if err != nil {
		return err
	}

	if newData == nil {
		if !exists {
			return nil
		}
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM documents WHERE path = $1 AND version = $2`, path, version)
		if err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return conflictUnlessAffected(res)
	}

	raw, err := json.Marshal(newData)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if !exists {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (path, collection, data, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())
			ON CONFLICT (path) DO NOTHING
		`, path, collection, raw)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		return conflictUnlessAffected(res)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET data = $2, version = version + 1, updated_at = NOW()
		WHERE path = $1 AND version = $3
	`, path, raw, version)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return conflictUnlessAffected(res)
}

func conflictUnlessAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}
