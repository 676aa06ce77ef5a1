// Package credstore persists portal credentials in a local sqlite
// database so CLI commands do not have to prompt on every run.
package credstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("credstore")

//go:embed schema.sql
var schema string

// ErrNotFound is returned by Get when no credentials exist for the
// requested namespace and id.
var ErrNotFound = fmt.Errorf("credstore: no credentials found")

// Credentials is a stored username and password pair.
type Credentials struct {
	Username string
	Password string
}

// Store reads and writes credentials keyed by (namespace, id).
type Store struct {
	db *sql.DB
}

// Open opens the sqlite database at path, creating it and the schema
// if needed. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize credential database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Set inserts or replaces the credentials stored under (namespace, id).
func (s *Store) Set(ctx context.Context, namespace, id string, creds Credentials) error {
	ctx, span := tracer.Start(ctx, "Set")
	defer span.End()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO credentials (namespace, id, username, password)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, id)
		DO UPDATE SET username = excluded.username, password = excluded.password`,
		namespace, id, creds.Username, creds.Password,
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Get returns the credentials stored under (namespace, id), or
// ErrNotFound when none exist.
func (s *Store) Get(ctx context.Context, namespace, id string) (Credentials, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	var creds Credentials
	err := s.db.QueryRowContext(
		ctx,
		`SELECT username, password FROM credentials WHERE namespace = ? AND id = ?`,
		namespace, id,
	).Scan(&creds.Username, &creds.Password)
	if err == sql.ErrNoRows {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	return creds, nil
}

// Delete removes the credentials stored under (namespace, id). Deleting
// credentials that do not exist is not an error.
func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM credentials WHERE namespace = ? AND id = ?`,
		namespace, id,
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
