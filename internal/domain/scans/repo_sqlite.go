package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sqliteTimeLayout is fixed width so created_at sorts correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

type scanRepoSQLite struct{ db *sql.DB }

// NewRepoSQLite returns a Repository backed by a SQLite database whose schema
// has already been migrated.
func NewRepoSQLite(db *sql.DB) Repository {
	return &scanRepoSQLite{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *scanRepoSQLite) scanRow(row rowScanner) (*Scan, error) {
	var (
		s         Scan
		id        string
		patientID sql.NullString
		fileSize  sql.NullInt64
		notes     sql.NullString
		createdAt string
	)
	err := row.Scan(&id, &s.PatientName, &patientID, &s.ScanType, &s.FilePath, &fileSize,
		&notes, &s.Status, &s.UploadedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse scan id %q: %w", id, err)
	}
	if s.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if patientID.Valid {
		s.PatientID = &patientID.String
	}
	if fileSize.Valid {
		s.FileSize = &fileSize.Int64
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	return &s, nil
}

func (r *scanRepoSQLite) Create(ctx context.Context, s *Scan) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.CreatedAt = s.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scans (id, patient_name, patient_id, scan_type, file_path, file_size,
			notes, status, uploaded_by, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID.String(), s.PatientName, s.PatientID, s.ScanType, s.FilePath, s.FileSize,
		s.Notes, s.Status, s.UploadedBy, s.CreatedAt.Format(sqliteTimeLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errDuplicatePath
		}
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *scanRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*Scan, error) {
	return r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+scanCols+` FROM scans WHERE id = ?`, id.String()))
}

func (r *scanRepoSQLite) List(ctx context.Context, f ListFilter) ([]*Scan, int, error) {
	where := ``
	var args []interface{}
	if f.UploadedBy != "" {
		where = ` WHERE uploaded_by = ?`
		args = append(args, f.UploadedBy)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scans: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + scanCols + ` FROM scans` + where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()
	var items []*Scan
	for rows.Next() {
		s, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate scans: %w", err)
	}
	return items, total, nil
}

func (r *scanRepoSQLite) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Scan, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scans SET status = ? WHERE id = ?`, status, id.String())
	if err != nil {
		return nil, fmt.Errorf("update scan status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
