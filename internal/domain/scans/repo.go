package scans

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a scan does not exist or is not visible
	// to the caller.
	ErrNotFound = errors.New("scan not found")

	errDuplicatePath = errors.New("a scan already references this file path")
)

// Repository is the record store for scans. Only status is ever updated and
// nothing is deleted.
type Repository interface {
	// Create inserts s, assigning ID and CreatedAt when they are zero.
	Create(ctx context.Context, s *Scan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scan, error)
	// List returns scans ordered newest first along with the unpaged total.
	List(ctx context.Context, f ListFilter) ([]*Scan, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Scan, error)
}
