package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubmissionStore = (*SubmissionRepo)(nil)

const submissionColumns = `id, email, message, phone, received_at, archived_at`

// SubmissionRepo is the SQLite implementation of the SubmissionStore port interface.
type SubmissionRepo struct {
	db  *DB
	now func() time.Time
}

// NewSubmissionRepo creates a new SubmissionRepo backed by the given DB.
func NewSubmissionRepo(db *DB) *SubmissionRepo {
	return &SubmissionRepo{db: db, now: time.Now}
}

// Create inserts a submission and returns it with its id. A zero ReceivedAt
// is replaced by the current time.
func (r *SubmissionRepo) Create(ctx context.Context, s model.ContactSubmission) (model.ContactSubmission, error) {
	const query = `INSERT INTO contact_form_submissions (email, message, phone, received_at, archived_at)
		VALUES (?, ?, ?, ?, ?) RETURNING ` + submissionColumns

	if s.ReceivedAt.IsZero() {
		s.ReceivedAt = r.now()
	}

	var archivedAt any
	if s.ArchivedAt != nil {
		archivedAt = formatTime(*s.ArchivedAt)
	}

	created, err := scanSubmission(r.db.Writer.QueryRowContext(ctx, query,
		s.Email, s.Message, nullString(s.Phone), formatTime(s.ReceivedAt), archivedAt))
	if err != nil {
		return model.ContactSubmission{}, fmt.Errorf("create submission: %w", err)
	}
	return *created, nil
}

// GetByID returns the submission with id, or nil, nil.
func (r *SubmissionRepo) GetByID(ctx context.Context, id int64) (*model.ContactSubmission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM contact_form_submissions WHERE id = ?`

	s, err := scanSubmission(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %d: %w", id, err)
	}
	return s, nil
}

// Archive stamps archived_at with the current time and returns the updated
// row, or nil, nil when id is unknown.
func (r *SubmissionRepo) Archive(ctx context.Context, id int64) (*model.ContactSubmission, error) {
	return r.setArchivedAt(ctx, id, formatTime(r.now()))
}

// Unarchive clears archived_at and returns the updated row, or nil, nil when
// id is unknown.
func (r *SubmissionRepo) Unarchive(ctx context.Context, id int64) (*model.ContactSubmission, error) {
	return r.setArchivedAt(ctx, id, nil)
}

func (r *SubmissionRepo) setArchivedAt(ctx context.Context, id int64, archivedAt any) (*model.ContactSubmission, error) {
	const query = `UPDATE contact_form_submissions SET archived_at = ? WHERE id = ? RETURNING ` + submissionColumns

	s, err := scanSubmission(r.db.Writer.QueryRowContext(ctx, query, archivedAt, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update submission %d: %w", id, err)
	}
	return s, nil
}

// ListActive returns submissions without archived_at, newest first.
func (r *SubmissionRepo) ListActive(ctx context.Context) ([]model.ContactSubmission, error) {
	return r.list(ctx, `WHERE archived_at IS NULL`)
}

// ListArchived returns archived submissions, newest first.
func (r *SubmissionRepo) ListArchived(ctx context.Context) ([]model.ContactSubmission, error) {
	return r.list(ctx, `WHERE archived_at IS NOT NULL`)
}

// ListAll returns every submission, newest first.
func (r *SubmissionRepo) ListAll(ctx context.Context) ([]model.ContactSubmission, error) {
	return r.list(ctx, ``)
}

func (r *SubmissionRepo) list(ctx context.Context, where string) ([]model.ContactSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM contact_form_submissions ` + where +
		` ORDER BY received_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []model.ContactSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func scanSubmission(s scanner) (*model.ContactSubmission, error) {
	var (
		sub        model.ContactSubmission
		phone      sql.NullString
		receivedAt string
		archivedAt sql.NullString
	)
	if err := s.Scan(&sub.ID, &sub.Email, &sub.Message, &phone, &receivedAt, &archivedAt); err != nil {
		return nil, err
	}
	sub.Phone = phone.String

	var err error
	sub.ReceivedAt, err = parseTime(receivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse received_at: %w", err)
	}
	sub.ArchivedAt, err = parseNullTime(archivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse archived_at: %w", err)
	}
	return &sub, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
