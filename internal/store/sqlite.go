package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Session documents are
// stored as a JSON blob keyed by session ID, with the expiry lifted
// into its own column so expired rows can be swept without decoding.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE NOT NULL,
		invoice_data TEXT NOT NULL,
		pdf_path TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(session_id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by ID, deleting it lazily when expired.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT data, expires_at FROM sessions WHERE session_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID)

	var data string
	var expiresAt int64
	err := row.Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if time.Now().After(time.Unix(expiresAt, 0)) {
		if err := s.DeleteSession(ctx, sessionID); err != nil {
			slog.Warn("failed to delete expired session", "session_id", sessionID, "error", err)
		}
		return nil, nil
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

// PutSession creates or replaces a session document.
func (s *SQLiteStore) PutSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.SessionID, err)
	}

	query := `
	INSERT INTO sessions (session_id, data, created_at, updated_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at,
		expires_at = excluded.expires_at`

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, query,
		session.SessionID, string(data),
		session.CreatedAt.Unix(), now, session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes sessions past their TTL.
func (s *SQLiteStore) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// SaveInvoice stores a completed invoice, replacing any previous one
// for the same session.
func (s *SQLiteStore) SaveInvoice(ctx context.Context, sessionID string, invoice *domain.Invoice, pdfPath string) error {
	data, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("encode invoice for %s: %w", sessionID, err)
	}

	query := `
	INSERT INTO invoices (session_id, invoice_data, pdf_path, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		invoice_data = excluded.invoice_data,
		pdf_path = excluded.pdf_path,
		created_at = excluded.created_at`

	var path interface{}
	if pdfPath != "" {
		path = pdfPath
	}

	_, err = s.db.ExecContext(ctx, query, sessionID, string(data), path, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves the stored invoice for a session.
func (s *SQLiteStore) GetInvoice(ctx context.Context, sessionID string) (*StoredInvoice, error) {
	query := `SELECT invoice_data, pdf_path, created_at FROM invoices WHERE session_id = ?`
	row := s.db.QueryRowContext(ctx, query, sessionID)

	var data string
	var pdfPath sql.NullString
	var createdAt int64
	err := row.Scan(&data, &pdfPath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan invoice row: %w", err)
	}

	stored := StoredInvoice{
		SessionID: sessionID,
		PDFPath:   pdfPath.String,
		CreatedAt: time.Unix(createdAt, 0),
	}
	if err := json.Unmarshal([]byte(data), &stored.Invoice); err != nil {
		return nil, fmt.Errorf("decode invoice for %s: %w", sessionID, err)
	}
	return &stored, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
