package store

import (
	"database/sql"
	"fmt"
	"time"
)

func scanSession(scanner interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var lastActive, createdAt string
	if err := scanner.Scan(&s.BoardID, &s.IdentityHash, &s.Alias, &lastActive, &createdAt); err != nil {
		return Session{}, err
	}
	t, err := parseTime(lastActive)
	if err != nil {
		return Session{}, fmt.Errorf("parse last_active: %w", err)
	}
	s.LastActive = t
	t, err = parseTime(createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	s.CreatedAt = t
	return s, nil
}

// UpsertSession creates or refreshes a (board, identity) session with the
// given alias. created_at is only set on first insert.
func (s *Store) UpsertSession(boardID, identityHash, alias string, now time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO user_sessions (board_id, identity_hash, alias, last_active, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(board_id, identity_hash) DO UPDATE SET alias = excluded.alias, last_active = excluded.last_active`,
		boardID, identityHash, alias, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Heartbeat refreshes last_active for an existing session; it's a no-op if
// none exists. Returns whether a session existed.
func (s *Store) Heartbeat(boardID, identityHash string, now time.Time) (bool, error) {
	res, err := s.conn.Exec(`UPDATE user_sessions SET last_active = ? WHERE board_id = ? AND identity_hash = ?`, formatTime(now), boardID, identityHash)
	if err != nil {
		return false, fmt.Errorf("heartbeat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateAlias updates an existing session's alias and last_active,
// returning the previous alias. Returns ok=false if no session exists.
func (s *Store) UpdateAlias(boardID, identityHash, newAlias string, now time.Time) (oldAlias string, ok bool, err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return "", false, fmt.Errorf("update alias: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	err = tx.QueryRow(`SELECT alias FROM user_sessions WHERE board_id = ? AND identity_hash = ?`, boardID, identityHash).Scan(&oldAlias)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("update alias: find existing: %w", err)
	}

	if _, err := tx.Exec(`UPDATE user_sessions SET alias = ?, last_active = ? WHERE board_id = ? AND identity_hash = ?`, newAlias, formatTime(now), boardID, identityHash); err != nil {
		return "", false, fmt.Errorf("update alias: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("update alias: commit: %w", err)
	}
	return oldAlias, true, nil
}

// GetSession retrieves a single session, or (nil, nil) if none exists.
func (s *Store) GetSession(boardID, identityHash string) (*Session, error) {
	row := s.conn.QueryRow(`SELECT board_id, identity_hash, alias, last_active, created_at FROM user_sessions WHERE board_id = ? AND identity_hash = ?`, boardID, identityHash)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ActiveSessions returns sessions on boardID whose last_active is at or
// after since (i.e. within the presence window ending now).
func (s *Store) ActiveSessions(boardID string, since time.Time) ([]Session, error) {
	rows, err := s.conn.Query(
		`SELECT board_id, identity_hash, alias, last_active, created_at FROM user_sessions WHERE board_id = ? AND last_active >= ? ORDER BY last_active DESC`,
		boardID, formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteAllSessionsForBoard removes every session belonging to boardID.
// Used by board cascade delete.
func (s *Store) DeleteAllSessionsForBoard(boardID string) error {
	_, err := s.conn.Exec(`DELETE FROM user_sessions WHERE board_id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("delete sessions for board: %w", err)
	}
	return nil
}
