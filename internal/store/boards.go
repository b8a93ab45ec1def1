package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertBoard persists a new board along with its columns and admin list
// in a single transaction.
func (s *Store) InsertBoard(b *Board) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("insert board: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(
		`INSERT INTO boards (id, name, state, closed_at, card_limit, reaction_limit, creator_hash, shareable_link, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, string(b.State), formatTimePtr(b.ClosedAt), b.CardLimit, b.ReactionLimit, b.CreatorHash, b.ShareableLink, formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}

	for i, col := range b.Columns {
		if _, err := tx.Exec(
			`INSERT INTO columns (board_id, id, name, color, position) VALUES (?, ?, ?, ?, ?)`,
			b.ID, col.ID, col.Name, col.Color, i,
		); err != nil {
			return fmt.Errorf("insert column %s: %w", col.ID, err)
		}
	}

	for i, admin := range b.Admins {
		if _, err := tx.Exec(
			`INSERT INTO board_admins (board_id, identity_hash, position) VALUES (?, ?, ?)`,
			b.ID, admin, i,
		); err != nil {
			return fmt.Errorf("insert admin %s: %w", admin, err)
		}
	}

	return tx.Commit()
}

// IsDuplicateShareableLink reports whether err is a unique-constraint
// violation on boards.shareable_link.
func IsDuplicateShareableLink(err error) bool {
	if err == nil {
		return false
	}
	return sqliteConstraintMessage(err, "boards.shareable_link")
}

func (s *Store) loadBoard(id string) (*Board, error) {
	row := s.conn.QueryRow(
		`SELECT id, name, state, closed_at, card_limit, reaction_limit, creator_hash, shareable_link, created_at
		 FROM boards WHERE id = ?`, id,
	)
	b := &Board{}
	var state string
	var closedAt sql.NullString
	var createdAt string
	if err := row.Scan(&b.ID, &b.Name, &state, &closedAt, &b.CardLimit, &b.ReactionLimit, &b.CreatorHash, &b.ShareableLink, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load board %s: %w", id, err)
	}
	b.State = BoardState(state)
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse closed_at: %w", err)
		}
		b.ClosedAt = &t
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	b.CreatedAt = t

	if err := s.fillColumnsAndAdmins(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) fillColumnsAndAdmins(b *Board) error {
	colRows, err := s.conn.Query(`SELECT id, name, color FROM columns WHERE board_id = ? ORDER BY position ASC`, b.ID)
	if err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	defer colRows.Close() //nolint:errcheck
	b.Columns = nil
	for colRows.Next() {
		var c Column
		var color sql.NullString
		if err := colRows.Scan(&c.ID, &c.Name, &color); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		if color.Valid {
			c.Color = &color.String
		}
		b.Columns = append(b.Columns, c)
	}
	if err := colRows.Err(); err != nil {
		return err
	}

	adminRows, err := s.conn.Query(`SELECT identity_hash FROM board_admins WHERE board_id = ? ORDER BY position ASC`, b.ID)
	if err != nil {
		return fmt.Errorf("load admins: %w", err)
	}
	defer adminRows.Close() //nolint:errcheck
	b.Admins = nil
	for adminRows.Next() {
		var a string
		if err := adminRows.Scan(&a); err != nil {
			return fmt.Errorf("scan admin: %w", err)
		}
		b.Admins = append(b.Admins, a)
	}
	return adminRows.Err()
}

// GetBoard retrieves a board by id, or (nil, nil) if it doesn't exist.
func (s *Store) GetBoard(id string) (*Board, error) {
	return s.loadBoard(id)
}

// GetBoardByLink retrieves a board by its shareable link, or (nil, nil) if
// none matches.
func (s *Store) GetBoardByLink(link string) (*Board, error) {
	var id string
	err := s.conn.QueryRow(`SELECT id FROM boards WHERE shareable_link = ?`, link).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board by link: %w", err)
	}
	return s.loadBoard(id)
}

// IsAdmin reports whether identityHash is in the board's admin list.
func (s *Store) IsAdmin(boardID, identityHash string) (bool, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM board_admins WHERE board_id = ? AND identity_hash = ?`, boardID, identityHash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is admin: %w", err)
	}
	return n > 0, nil
}

// IsCreator reports whether identityHash is the board's creator (the
// admin at position 0).
func (s *Store) IsCreator(boardID, identityHash string) (bool, error) {
	var creator string
	err := s.conn.QueryRow(`SELECT identity_hash FROM board_admins WHERE board_id = ? ORDER BY position ASC LIMIT 1`, boardID).Scan(&creator)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is creator: %w", err)
	}
	return creator == identityHash, nil
}

// RenameBoard atomically renames a board, conditioned on the board being
// active and identityHash being one of its admins.
func (s *Store) RenameBoard(boardID, name, identityHash string) (ConditionalResult, error) {
	res, err := s.conn.Exec(
		`UPDATE boards SET name = ? WHERE id = ? AND state = 'active' AND EXISTS (
			SELECT 1 FROM board_admins WHERE board_id = boards.id AND identity_hash = ?
		)`,
		name, boardID, identityHash,
	)
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("rename board: %w", err)
	}
	return conditionalResultFrom(res)
}

// RenameColumn atomically renames a column, conditioned on the board being
// active and identityHash being one of its admins.
func (s *Store) RenameColumn(boardID, columnID, name, identityHash string) (ConditionalResult, error) {
	res, err := s.conn.Exec(
		`UPDATE columns SET name = ? WHERE board_id = ? AND id = ? AND EXISTS (
			SELECT 1 FROM boards WHERE boards.id = columns.board_id AND boards.state = 'active'
		) AND EXISTS (
			SELECT 1 FROM board_admins WHERE board_admins.board_id = columns.board_id AND identity_hash = ?
		)`,
		name, boardID, columnID, identityHash,
	)
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("rename column: %w", err)
	}
	return conditionalResultFrom(res)
}

// CloseBoard atomically transitions a board to closed, conditioned on
// identityHash being an admin. Closing an already-closed board matches
// zero rows; the caller distinguishes that from not-found/forbidden by
// re-reading (see board.Service.CloseBoard).
func (s *Store) CloseBoard(boardID string, identityHash string, closedAt time.Time) (ConditionalResult, error) {
	res, err := s.conn.Exec(
		`UPDATE boards SET state = 'closed', closed_at = ? WHERE id = ? AND state = 'active' AND EXISTS (
			SELECT 1 FROM board_admins WHERE board_id = boards.id AND identity_hash = ?
		)`,
		formatTime(closedAt), boardID, identityHash,
	)
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("close board: %w", err)
	}
	return conditionalResultFrom(res)
}

func conditionalResultFrom(res sql.Result) (ConditionalResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("rows affected: %w", err)
	}
	return ConditionalResult{Matched: int(n), Modified: int(n)}, nil
}

// AddAdmin appends target to the board's admin list, conditioned on
// identityHash being the creator (admins[0]). Set-like: if target is
// already an admin this is a no-op success.
func (s *Store) AddAdmin(boardID, target, identityHash string) (ConditionalResult, error) {
	isCreator, err := s.IsCreator(boardID, identityHash)
	if err != nil {
		return ConditionalResult{}, err
	}
	if !isCreator {
		return ConditionalResult{Matched: 0}, nil
	}

	already, err := s.IsAdmin(boardID, target)
	if err != nil {
		return ConditionalResult{}, err
	}
	if already {
		return ConditionalResult{Matched: 1, Modified: 0}, nil
	}

	var nextPos int
	if err := s.conn.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM board_admins WHERE board_id = ?`, boardID).Scan(&nextPos); err != nil {
		return ConditionalResult{}, fmt.Errorf("next admin position: %w", err)
	}
	if _, err := s.conn.Exec(`INSERT INTO board_admins (board_id, identity_hash, position) VALUES (?, ?, ?)`, boardID, target, nextPos); err != nil {
		return ConditionalResult{}, fmt.Errorf("add admin: %w", err)
	}
	return ConditionalResult{Matched: 1, Modified: 1}, nil
}

// DeleteBoard deletes the board row and its columns/admins. Cards,
// reactions, and sessions are deleted separately by the caller as part of
// cascade delete (see board.Service.DeleteBoard).
func (s *Store) DeleteBoard(boardID string) error {
	if _, err := s.conn.Exec(`DELETE FROM columns WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("delete columns: %w", err)
	}
	if _, err := s.conn.Exec(`DELETE FROM board_admins WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("delete board admins: %w", err)
	}
	if _, err := s.conn.Exec(`DELETE FROM boards WHERE id = ?`, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

// ColumnExists reports whether columnID belongs to boardID.
func (s *Store) ColumnExists(boardID, columnID string) (bool, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM columns WHERE board_id = ? AND id = ?`, boardID, columnID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("column exists: %w", err)
	}
	return n > 0, nil
}
