// Package store persists accounts and lesson links in SQLite. Writes are
// atomic per record; nothing here needs cross-record transactions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"tutor.chat/models"
)

// Store wraps the SQLite handle shared by account and link operations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		institution TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES accounts(id),
		mode TEXT NOT NULL,
		subject TEXT NOT NULL,
		prompt TEXT NOT NULL,
		language TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new account, assigning its ID and creation time.
// A duplicate email surfaces as models.ErrDuplicateAccount straight from the
// unique constraint — no check-then-insert race.
func (s *Store) CreateAccount(ctx context.Context, acct *models.Account) error {
	acct.ID = uuid.NewString()
	acct.CreatedAt = time.Now().UTC()

	query := `INSERT INTO accounts (id, email, password_hash, name, institution, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		acct.ID, acct.Email, acct.PasswordHash, acct.Name, acct.Institution, acct.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.ErrDuplicateAccount
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// AccountByEmail fetches an account by its unique email.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT id, email, password_hash, name, institution, created_at
	          FROM accounts WHERE email = ?`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

// AccountByID fetches an account by ID.
func (s *Store) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT id, email, password_hash, name, institution, created_at
	          FROM accounts WHERE id = ?`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) scanAccount(row *sql.Row) (*models.Account, error) {
	acct := &models.Account{}
	var institution sql.NullString
	err := row.Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &acct.Name, &institution, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	acct.Institution = institution.String
	return acct, nil
}

// CreateLink validates and inserts a new link, assigning its ID and creation
// time. The UUID id goes directly into public URLs, so it must stay
// unguessable.
func (s *Store) CreateLink(ctx context.Context, link *models.Link) error {
	if err := link.Validate(); err != nil {
		return err
	}

	link.ID = uuid.NewString()
	link.CreatedAt = time.Now().UTC()

	query := `INSERT INTO links (id, owner_id, mode, subject, prompt, language, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	var language sql.NullString
	if link.Language != "" {
		language = sql.NullString{String: link.Language, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		link.ID, link.OwnerID, string(link.Mode), link.Subject, link.Prompt, language, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// LinksByOwner returns the caller's links, newest created first.
func (s *Store) LinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	query := `SELECT id, owner_id, mode, subject, prompt, language, created_at
	          FROM links WHERE owner_id = ?
	          ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	links := []*models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// LinkByID fetches a link with no ownership check. This is the public read
// path used when a student opens a tutoring session.
func (s *Store) LinkByID(ctx context.Context, id string) (*models.Link, error) {
	query := `SELECT id, owner_id, mode, subject, prompt, language, created_at
	          FROM links WHERE id = ?`

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return nil, models.ErrNotFound
	}
	return scanLink(rows)
}

// DeleteLink removes a link only if it exists AND belongs to the owner. The
// two conditions are a single WHERE clause so a non-owner gets the same
// ErrNotFound as a missing id — existence is never leaked.
func (s *Store) DeleteLink(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanLink(rows *sql.Rows) (*models.Link, error) {
	link := &models.Link{}
	var mode string
	var language sql.NullString
	err := rows.Scan(&link.ID, &link.OwnerID, &mode, &link.Subject, &link.Prompt, &language, &link.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	link.Mode = models.Mode(mode)
	link.Language = language.String
	return link, nil
}
