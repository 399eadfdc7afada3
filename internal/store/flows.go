package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fablehouse/fable/internal/flow"
)

// FlowStatus is the lifecycle of one flow record.
type FlowStatus string

const (
	FlowQueued      FlowStatus = "queued"
	FlowRunning     FlowStatus = "running"
	FlowCompleted   FlowStatus = "completed"
	FlowFailed      FlowStatus = "failed"
	FlowInterrupted FlowStatus = "interrupted"
)

// FlowRecord is the persisted trace of one illustration round.
type FlowRecord struct {
	ID          string     `json:"id"`
	BookID      string     `json:"book_id"`
	Status      FlowStatus `json:"status"`
	QueuedPages int        `json:"queued_pages"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateFlow inserts a new flow record in the queued state.
func (s *Store) CreateFlow(ctx context.Context, flowID, bookID string, queuedPages int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flows (id, book_id, status, queued_pages, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		flowID, bookID, string(FlowQueued), queuedPages, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert flow: %w", err)
	}
	return nil
}

// UpdateFlowStatus advances a flow record, stamping started/completed
// times as appropriate.
func (s *Store) UpdateFlowStatus(ctx context.Context, flowID string, status FlowStatus, errMsg string) error {
	now := formatTime(time.Now())

	var res sql.Result
	var err error
	switch status {
	case FlowRunning:
		res, err = s.db.ExecContext(ctx,
			`UPDATE flows SET status = ?, started_at = ? WHERE id = ?`,
			string(status), now, flowID)
	case FlowCompleted, FlowFailed, FlowInterrupted:
		res, err = s.db.ExecContext(ctx,
			`UPDATE flows SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
			string(status), nullable(errMsg), now, flowID)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE flows SET status = ? WHERE id = ?`, string(status), flowID)
	}
	if err != nil {
		return fmt.Errorf("update flow status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return flow.ErrNotFound
	}
	return nil
}

// GetFlow loads a flow record by id.
func (s *Store) GetFlow(ctx context.Context, flowID string) (*FlowRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, book_id, status, queued_pages, error, created_at, started_at, completed_at
		FROM flows WHERE id = ?`, flowID)
	rec, err := scanFlow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, flow.ErrNotFound
	}
	return rec, err
}

// GetFlowForOwner loads a flow record by id, restricted to flows whose
// book belongs to ownerID. A flow on another user's book reads as not
// found, same as GetBookForOwner.
func (s *Store) GetFlowForOwner(ctx context.Context, flowID, ownerID string) (*FlowRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT f.id, f.book_id, f.status, f.queued_pages, f.error, f.created_at, f.started_at, f.completed_at
		FROM flows f JOIN books b ON b.id = f.book_id
		WHERE f.id = ? AND b.owner_id = ?`, flowID, ownerID)
	rec, err := scanFlow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, flow.ErrNotFound
	}
	return rec, err
}

// FlowFilter narrows ListFlows. A non-empty OwnerID restricts results to
// flows on books owned by that user.
type FlowFilter struct {
	BookID  string
	OwnerID string
	Status  FlowStatus
	Limit   int
}

// ListFlows returns flow records matching the filter, newest first.
func (s *Store) ListFlows(ctx context.Context, filter FlowFilter) ([]FlowRecord, error) {
	query := `
		SELECT f.id, f.book_id, f.status, f.queued_pages, f.error, f.created_at, f.started_at, f.completed_at
		FROM flows f`
	var args []any
	if filter.OwnerID != "" {
		query += " JOIN books b ON b.id = f.book_id"
	}
	query += " WHERE 1=1"
	if filter.OwnerID != "" {
		query += " AND b.owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.BookID != "" {
		query += " AND f.book_id = ?"
		args = append(args, filter.BookID)
	}
	if filter.Status != "" {
		query += " AND f.status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY f.created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	var records []FlowRecord
	for rows.Next() {
		rec, err := scanFlow(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// LatestFlowForBook returns the most recent flow record for a book, or
// nil when the book has never been illustrated.
func (s *Store) LatestFlowForBook(ctx context.Context, bookID string) (*FlowRecord, error) {
	records, err := s.ListFlows(ctx, FlowFilter{BookID: bookID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func scanFlow(scan func(...any) error) (*FlowRecord, error) {
	var rec FlowRecord
	var status string
	var errMsg, startedAt, completedAt sql.NullString
	var createdAt string

	err := scan(&rec.ID, &rec.BookID, &status, &rec.QueuedPages,
		&errMsg, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = FlowStatus(status)
	rec.Error = errMsg.String
	rec.CreatedAt = parseTime(createdAt)
	if startedAt.Valid {
		t := parseTime(startedAt.String)
		rec.StartedAt = &t
	}
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		rec.CompletedAt = &t
	}
	return &rec, nil
}
