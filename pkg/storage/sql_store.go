package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// SQLConfig holds database connection configuration
type SQLConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SQLStore keeps records in a single rdap_objects table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore connects, verifies the connection and creates the table when
// missing.
func NewSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	dialect, dsn, err := DetectDialect(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Dialect returns the database dialect type
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put stores obj, replacing any record with the same kind and key.
func (s *SQLStore) Put(ctx context.Context, obj domain.Object) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return domain.Backend("encode record", err)
	}
	rec, err := recordFor(obj, body)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Backend("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM rdap_objects WHERE kind = ? AND object_key = ?`),
		string(rec.kind), rec.key,
	); err != nil {
		return domain.Backend("delete record", err)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO rdap_objects (kind, object_key, search_key, range_start, range_end, body) VALUES (?, ?, ?, ?, ?, ?)`),
		string(rec.kind), rec.key, rec.searchKey, rec.start, rec.end, string(rec.body),
	); err != nil {
		return domain.Backend("insert record", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Backend("commit record", err)
	}
	return nil
}

// Get returns the record of kind identified by key.
func (s *SQLStore) Get(ctx context.Context, kind domain.Kind, key string) (domain.Object, error) {
	body, err := s.find(ctx, kind, key, "body")
	if err != nil {
		return nil, err
	}
	obj, err := domain.Decode(kind, []byte(body))
	if err != nil {
		return nil, domain.Backend("decode record", err)
	}
	return obj, nil
}

// Exists reports whether the record is stored.
func (s *SQLStore) Exists(ctx context.Context, kind domain.Kind, key string) (bool, error) {
	_, err := s.find(ctx, kind, key, "object_key")
	switch {
	case err == nil:
		return true, nil
	case domain.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (s *SQLStore) find(ctx context.Context, kind domain.Kind, key, column string) (string, error) {
	l, err := lookupFor(kind, key)
	if err != nil {
		return "", err
	}

	var row *sql.Row
	if l.ranged {
		row = s.db.QueryRowContext(ctx, s.dialect.rebind(
			`SELECT `+column+` FROM rdap_objects
			WHERE kind = ? AND range_start <> '' AND range_start <= ? AND range_end >= ?
			ORDER BY range_start DESC, range_end ASC, object_key ASC LIMIT 1`),
			string(kind), l.start, l.end,
		)
	} else {
		row = s.db.QueryRowContext(ctx, s.dialect.rebind(
			`SELECT `+column+` FROM rdap_objects WHERE kind = ? AND object_key = ?`),
			string(kind), l.key,
		)
	}

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.NotFoundf("%s %q not found", kind, key)
		}
		return "", domain.Backend("query record", err)
	}
	return value, nil
}

// Search returns matching records ordered by the matched column.
func (s *SQLStore) Search(ctx context.Context, q Query) ([]domain.Object, error) {
	text, prefix := q.match()

	column := "search_key"
	if q.Field == FieldHandle {
		column = "object_key"
	}

	query := `SELECT body FROM rdap_objects WHERE kind = ? AND `
	args := []any{string(q.Kind)}
	if prefix {
		query += `SUBSTR(` + column + `, 1, ?) = ?`
		args = append(args, len([]rune(text)), text)
	} else {
		query += column + ` = ?`
		args = append(args, text)
	}
	query += ` ORDER BY search_key, object_key`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, domain.Backend("search records", err)
	}
	defer func() { _ = rows.Close() }()

	var objs []domain.Object
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, domain.Backend("scan record", err)
		}
		obj, err := domain.Decode(q.Kind, []byte(body))
		if err != nil {
			return nil, domain.Backend("decode record", err)
		}
		objs = append(objs, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Backend("search records", err)
	}
	return objs, nil
}

// Ping verifies the connection to the database is still alive
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
