package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const cardColumns = `id, board_id, column_id, content, card_type, is_anonymous, created_by_hash, created_by_alias, created_at, direct_count, aggregated_count, parent_id`

func scanCard(scanner interface{ Scan(...any) error }) (Card, error) {
	var c Card
	var cardType string
	var isAnon int
	var alias, parentID sql.NullString
	var createdAt string
	if err := scanner.Scan(&c.ID, &c.BoardID, &c.ColumnID, &c.Content, &cardType, &isAnon, &c.CreatedByHash, &alias, &createdAt, &c.DirectCount, &c.AggregatedCount, &parentID); err != nil {
		return Card{}, err
	}
	c.CardType = CardType(cardType)
	c.IsAnonymous = isAnon != 0
	if alias.Valid {
		c.CreatedByAlias = &alias.String
	}
	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Card{}, fmt.Errorf("parse created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

// InsertCard persists a new card, writing its direct_count,
// aggregated_count and parent_id as given; linked_feedback_ids starts
// empty.
func (s *Store) InsertCard(c *Card) error {
	_, err := s.conn.Exec(
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BoardID, c.ColumnID, c.Content, string(c.CardType), boolToInt(c.IsAnonymous), c.CreatedByHash, c.CreatedByAlias, formatTime(c.CreatedAt), c.DirectCount, c.AggregatedCount, c.ParentID,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *Store) loadCard(row interface{ Scan(...any) error }) (*Card, error) {
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	ids, err := s.linkedFeedbackIDs(c.ID)
	if err != nil {
		return nil, err
	}
	c.LinkedFeedbackIDs = ids
	return &c, nil
}

// GetCard retrieves a card by id, or (nil, nil) if it doesn't exist.
func (s *Store) GetCard(id string) (*Card, error) {
	row := s.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	return s.loadCard(row)
}

func (s *Store) linkedFeedbackIDs(actionCardID string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT feedback_card_id FROM card_links WHERE action_card_id = ? ORDER BY feedback_card_id ASC`, actionCardID)
	if err != nil {
		return nil, fmt.Errorf("linked feedback ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan linked feedback id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActionsLinkingFeedback returns the ids of every action card that has
// feedbackCardID in its linked_feedback_ids — the reverse direction of
// linkedFeedbackIDs. It is a lookup only; reaction counts are not
// propagated along links.
func (s *Store) ActionsLinkingFeedback(feedbackCardID string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT action_card_id FROM card_links WHERE feedback_card_id = ? ORDER BY action_card_id ASC`, feedbackCardID)
	if err != nil {
		return nil, fmt.Errorf("actions linking feedback: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan action id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListCardsByBoard returns all cards on a board, each with its
// LinkedFeedbackIDs populated. Ordering is by created_at ascending.
func (s *Store) ListCardsByBoard(boardID string) ([]Card, error) {
	rows, err := s.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE board_id = ? ORDER BY created_at ASC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list cards by board: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var cards []Card
	var ids []string
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := s.linkedFeedbackIDsByAction(ids)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].LinkedFeedbackIDs = links[cards[i].ID]
	}
	return cards, nil
}

// linkedFeedbackIDsByAction resolves linked_feedback_ids for many action
// cards in a single round trip.
func (s *Store) linkedFeedbackIDsByAction(actionCardIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(actionCardIDs) == 0 {
		return result, nil
	}
	query, args := inClauseQuery(`SELECT action_card_id, feedback_card_id FROM card_links WHERE action_card_id IN (%s) ORDER BY feedback_card_id ASC`, actionCardIDs)
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("linked feedback ids by action: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var action, feedback string
		if err := rows.Scan(&action, &feedback); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		result[action] = append(result[action], feedback)
	}
	return result, rows.Err()
}

// ChildrenByParents resolves all children for many parent cards in a
// single round trip, ordered by created_at ascending within each parent.
func (s *Store) ChildrenByParents(parentIDs []string) (map[string][]Card, error) {
	result := make(map[string][]Card)
	if len(parentIDs) == 0 {
		return result, nil
	}
	query, args := inClauseQuery(`SELECT `+cardColumns+` FROM cards WHERE parent_id IN (%s) ORDER BY created_at ASC`, parentIDs)
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("children by parents: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	var ids []string
	children := make(map[string][]Card)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	links, err := s.linkedFeedbackIDsByAction(ids)
	if err != nil {
		return nil, err
	}
	for parent, cs := range children {
		for i := range cs {
			cs[i].LinkedFeedbackIDs = links[cs[i].ID]
		}
		result[parent] = cs
	}
	return result, nil
}

// CardsByIDs resolves many cards by id in a single round trip, keyed by id.
func (s *Store) CardsByIDs(ids []string) (map[string]Card, error) {
	result := make(map[string]Card)
	if len(ids) == 0 {
		return result, nil
	}
	query, args := inClauseQuery(`SELECT `+cardColumns+` FROM cards WHERE id IN (%s)`, ids)
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("cards by ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		result[c.ID] = c
	}
	return result, rows.Err()
}

// UpdateCardContent atomically updates a card's content, conditioned on
// identityHash being the card's creator.
func (s *Store) UpdateCardContent(cardID, content, identityHash string) (ConditionalResult, error) {
	res, err := s.conn.Exec(`UPDATE cards SET content = ? WHERE id = ? AND created_by_hash = ?`, content, cardID, identityHash)
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("update card content: %w", err)
	}
	return conditionalResultFrom(res)
}

// UpdateCardColumn atomically moves a card to a new column, conditioned on
// identityHash being the card's creator.
func (s *Store) UpdateCardColumn(cardID, columnID, identityHash string) (ConditionalResult, error) {
	res, err := s.conn.Exec(`UPDATE cards SET column_id = ? WHERE id = ? AND created_by_hash = ?`, columnID, cardID, identityHash)
	if err != nil {
		return ConditionalResult{}, fmt.Errorf("update card column: %w", err)
	}
	return conditionalResultFrom(res)
}

// SetParent sets (or clears, with parentID nil) a card's parent_id.
func (s *Store) SetParent(cardID string, parentID *string) error {
	if _, err := s.conn.Exec(`UPDATE cards SET parent_id = ? WHERE id = ?`, parentID, cardID); err != nil {
		return fmt.Errorf("set parent: %w", err)
	}
	return nil
}

// AdjustAggregatedCount adds delta to a card's aggregated_count, clamped
// at zero.
func (s *Store) AdjustAggregatedCount(cardID string, delta int) error {
	_, err := s.conn.Exec(`UPDATE cards SET aggregated_count = MAX(0, aggregated_count + ?) WHERE id = ?`, delta, cardID)
	if err != nil {
		return fmt.Errorf("adjust aggregated count: %w", err)
	}
	return nil
}

// AdjustDirectCount adds delta to a card's direct_count, clamped at zero.
func (s *Store) AdjustDirectCount(cardID string, delta int) error {
	_, err := s.conn.Exec(`UPDATE cards SET direct_count = MAX(0, direct_count + ?) WHERE id = ?`, delta, cardID)
	if err != nil {
		return fmt.Errorf("adjust direct count: %w", err)
	}
	return nil
}

// AddLinkedFeedback appends feedbackID to actionID's linked_feedback_ids,
// set-like (no duplicates).
func (s *Store) AddLinkedFeedback(actionID, feedbackID string) error {
	_, err := s.conn.Exec(`INSERT OR IGNORE INTO card_links (action_card_id, feedback_card_id) VALUES (?, ?)`, actionID, feedbackID)
	if err != nil {
		return fmt.Errorf("add linked feedback: %w", err)
	}
	return nil
}

// RemoveLinkedFeedback removes feedbackID from actionID's linked_feedback_ids.
func (s *Store) RemoveLinkedFeedback(actionID, feedbackID string) error {
	_, err := s.conn.Exec(`DELETE FROM card_links WHERE action_card_id = ? AND feedback_card_id = ?`, actionID, feedbackID)
	if err != nil {
		return fmt.Errorf("remove linked feedback: %w", err)
	}
	return nil
}

// OrphanChildren clears parent_id for every child of parentID and returns
// the orphaned children as they were loaded before the update.
func (s *Store) OrphanChildren(parentID string) ([]Card, error) {
	rows, err := s.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	var children []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			rows.Close() //nolint:errcheck
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if _, err := s.conn.Exec(`UPDATE cards SET parent_id = NULL WHERE parent_id = ?`, parentID); err != nil {
		return nil, fmt.Errorf("orphan children: %w", err)
	}
	return children, nil
}

// DeleteCard deletes a single card row together with every card_links row
// that names it (its reactions must be cleaned up separately by the
// caller).
func (s *Store) DeleteCard(cardID string) error {
	if _, err := s.conn.Exec(`DELETE FROM card_links WHERE action_card_id = ? OR feedback_card_id = ?`, cardID, cardID); err != nil {
		return fmt.Errorf("delete card links: %w", err)
	}
	if _, err := s.conn.Exec(`DELETE FROM cards WHERE id = ?`, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// CountFeedbackCardsByCreator counts feedback cards created by
// identityHash on boardID, for quota enforcement.
func (s *Store) CountFeedbackCardsByCreator(boardID, identityHash string) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM cards WHERE board_id = ? AND created_by_hash = ? AND card_type = 'feedback'`,
		boardID, identityHash,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count feedback cards: %w", err)
	}
	return n, nil
}

// DeleteAllForBoard deletes every card (and their links) belonging to
// boardID. Used by board cascade delete.
func (s *Store) DeleteAllForBoard(boardID string) error {
	if _, err := s.conn.Exec(`DELETE FROM card_links WHERE action_card_id IN (SELECT id FROM cards WHERE board_id = ?) OR feedback_card_id IN (SELECT id FROM cards WHERE board_id = ?)`, boardID, boardID); err != nil {
		return fmt.Errorf("delete card links for board: %w", err)
	}
	if _, err := s.conn.Exec(`DELETE FROM cards WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("delete cards for board: %w", err)
	}
	return nil
}

// inClauseQuery builds a query with a `?, ?, ...` placeholder list
// substituted into the %s verb of format, returning the query and its args.
func inClauseQuery(format string, values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf(format, strings.Join(placeholders, ", ")), args
}
