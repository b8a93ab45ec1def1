package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertReaction inserts a reaction if none exists for (cardID,
// identityHash), or updates its kind otherwise. It reports whether the row
// was newly inserted, matching the persistence port's
// FindOneAndUpdate(..., upsert)'s "is-new" detection requirement: callers
// must only adjust direct_count/aggregated_count on a true insert.
func (s *Store) UpsertReaction(id, cardID, identityHash, alias, kind string, now time.Time) (wasInsert bool, err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("upsert reaction: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existingID string
	err = tx.QueryRow(`SELECT id FROM reactions WHERE card_id = ? AND identity_hash = ?`, cardID, identityHash).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.Exec(
			`INSERT INTO reactions (id, card_id, identity_hash, alias, kind, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, cardID, identityHash, alias, kind, formatTime(now),
		); err != nil {
			return false, fmt.Errorf("insert reaction: %w", err)
		}
		wasInsert = true
	case err != nil:
		return false, fmt.Errorf("upsert reaction: find existing: %w", err)
	default:
		if _, err := tx.Exec(`UPDATE reactions SET kind = ?, alias = ?, created_at = ? WHERE id = ?`, kind, alias, formatTime(now), existingID); err != nil {
			return false, fmt.Errorf("update reaction: %w", err)
		}
		wasInsert = false
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("upsert reaction: commit: %w", err)
	}
	return wasInsert, nil
}

// GetReaction retrieves a single identity's reaction on a card, or (nil,
// nil) if none exists.
func (s *Store) GetReaction(cardID, identityHash string) (*Reaction, error) {
	row := s.conn.QueryRow(`SELECT id, card_id, identity_hash, alias, kind, created_at FROM reactions WHERE card_id = ? AND identity_hash = ?`, cardID, identityHash)
	var r Reaction
	var createdAt string
	if err := row.Scan(&r.ID, &r.CardID, &r.IdentityHash, &r.Alias, &r.Kind, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.CreatedAt = t
	return &r, nil
}

// DeleteReaction removes identityHash's reaction on cardID and reports
// whether a row existed to delete.
func (s *Store) DeleteReaction(cardID, identityHash string) (bool, error) {
	res, err := s.conn.Exec(`DELETE FROM reactions WHERE card_id = ? AND identity_hash = ?`, cardID, identityHash)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteAllForCard removes every reaction on cardID, returning how many
// were removed (the card's pre-delete direct_count).
func (s *Store) DeleteAllForCard(cardID string) (int, error) {
	res, err := s.conn.Exec(`DELETE FROM reactions WHERE card_id = ?`, cardID)
	if err != nil {
		return 0, fmt.Errorf("delete reactions for card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// DeleteAllForBoardCards removes every reaction on any card belonging to
// boardID. Used by board cascade delete.
func (s *Store) DeleteAllForBoardCards(boardID string) error {
	_, err := s.conn.Exec(`DELETE FROM reactions WHERE card_id IN (SELECT id FROM cards WHERE board_id = ?)`, boardID)
	if err != nil {
		return fmt.Errorf("delete reactions for board: %w", err)
	}
	return nil
}

// CountByIdentityOnBoard counts reactions by identityHash whose card
// belongs to boardID — a multi-key join over reactions and cards. Reaction
// quota is per board, not per card.
func (s *Store) CountByIdentityOnBoard(boardID, identityHash string) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM reactions r JOIN cards c ON c.id = r.card_id WHERE c.board_id = ? AND r.identity_hash = ?`,
		boardID, identityHash,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reactions by identity on board: %w", err)
	}
	return n, nil
}
