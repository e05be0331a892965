package scans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type scanRepoPG struct{ db queryable }

// NewRepoPG returns a Repository backed by PostgreSQL.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &scanRepoPG{db: pool}
}

const scanCols = `id, patient_name, patient_id, scan_type, file_path, file_size,
	notes, status, uploaded_by, created_at`

func (r *scanRepoPG) scanRow(row pgx.Row) (*Scan, error) {
	var s Scan
	err := row.Scan(&s.ID, &s.PatientName, &s.PatientID, &s.ScanType, &s.FilePath, &s.FileSize,
		&s.Notes, &s.Status, &s.UploadedBy, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scanRepoPG) Create(ctx context.Context, s *Scan) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO scans (id, patient_name, patient_id, scan_type, file_path, file_size,
			notes, status, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		s.ID, s.PatientName, s.PatientID, s.ScanType, s.FilePath, s.FileSize,
		s.Notes, s.Status, s.UploadedBy)
	if err := row.Scan(&s.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errDuplicatePath
		}
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *scanRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Scan, error) {
	return r.scanRow(r.db.QueryRow(ctx, `SELECT `+scanCols+` FROM scans WHERE id = $1`, id))
}

func (r *scanRepoPG) List(ctx context.Context, f ListFilter) ([]*Scan, int, error) {
	where := ``
	var args []interface{}
	if f.UploadedBy != "" {
		where = ` WHERE uploaded_by = $1`
		args = append(args, f.UploadedBy)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM scans`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scans: %w", err)
	}

	query := `SELECT ` + scanCols + ` FROM scans` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
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

func (r *scanRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Scan, error) {
	return r.scanRow(r.db.QueryRow(ctx,
		`UPDATE scans SET status = $2 WHERE id = $1 RETURNING `+scanCols, id, status))
}
