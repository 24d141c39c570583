// Package sessiondb persists force-volume session snapshots in SQLite.
// Snapshots are stored as gzip-compressed gob blobs, so NaN channel
// entries survive unchanged.
package sessiondb

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/2Puck/sofa/internal/forcevolume"
)

// ErrSessionNotFound is returned when no session with the requested id
// exists.
var ErrSessionNotFound = errors.New("session not found")

type SessionDB struct {
	*sql.DB

	path string
}

// NewDB opens (or creates) the session database at path and applies any
// pending migrations.
func NewDB(path string) (*SessionDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	sdb := &SessionDB{DB: db, path: path}
	if err := sdb.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return sdb, nil
}

// Path returns the database file path.
func (db *SessionDB) Path() string { return db.path }

// SessionRecord describes one stored session without its state blob.
type SessionRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SaveSession stores a snapshot under a fresh id and returns the id.
func (db *SessionDB) SaveSession(state forcevolume.SessionState, description string) (string, error) {
	blob, err := encodeState(state)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = db.Exec(
		`INSERT INTO sessions (id, name, rows, cols, description, state) VALUES (?, ?, ?, ?, ?, ?)`,
		id, state.Name, state.Rows, state.Cols, description, blob,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

// LoadSession returns the stored snapshot for id.
func (db *SessionDB) LoadSession(id string) (forcevolume.SessionState, error) {
	var blob []byte
	err := db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return forcevolume.SessionState{}, ErrSessionNotFound
	}
	if err != nil {
		return forcevolume.SessionState{}, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeState(blob)
}

// GetSession returns the record for id without decoding its state.
func (db *SessionDB) GetSession(id string) (*SessionRecord, error) {
	var (
		rec                  SessionRecord
		createdAt, updatedAt int64
	)
	err := db.QueryRow(
		`SELECT id, name, rows, cols, description, created_at, updated_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Rows, &rec.Cols, &rec.Description, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// ListSessions returns all stored sessions, newest first.
func (db *SessionDB) ListSessions() ([]SessionRecord, error) {
	rows, err := db.Query(
		`SELECT id, name, rows, cols, description, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var (
			rec                  SessionRecord
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Rows, &rec.Cols, &rec.Description, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// DeleteSession removes the session with the given id.
func (db *SessionDB) DeleteSession(id string) error {
	result, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func encodeState(state forcevolume.SessionState) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(state); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeState(blob []byte) (forcevolume.SessionState, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return forcevolume.SessionState{}, fmt.Errorf("failed to open session state: %w", err)
	}
	var state forcevolume.SessionState
	if err := gob.NewDecoder(zr).Decode(&state); err != nil {
		zr.Close()
		return forcevolume.SessionState{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	if err := zr.Close(); err != nil {
		return forcevolume.SessionState{}, err
	}
	return state, nil
}
