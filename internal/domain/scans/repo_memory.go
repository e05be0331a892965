package scans

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oralvis/oralvis/pkg/pagination"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Scan
	seq   map[uuid.UUID]int
	next  int
}

// NewRepoMemory returns a Repository held in process memory.
func NewRepoMemory() Repository {
	return &memoryRepo{
		items: make(map[uuid.UUID]*Scan),
		seq:   make(map[uuid.UUID]int),
	}
}

func (r *memoryRepo) Create(_ context.Context, s *Scan) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.FilePath == s.FilePath {
			return errDuplicatePath
		}
	}
	cp := *s
	r.items[s.ID] = &cp
	r.seq[s.ID] = r.next
	r.next++
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Scan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]*Scan, int, error) {
	r.mu.RLock()
	var matched []*Scan
	for _, s := range r.items {
		if f.UploadedBy != "" && s.UploadedBy != f.UploadedBy {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	seq := make(map[uuid.UUID]int, len(matched))
	for _, s := range matched {
		seq[s.ID] = r.seq[s.ID]
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return seq[matched[i].ID] > seq[matched[j].ID]
	})

	start, end := pagination.Params{Limit: f.Limit, Offset: f.Offset}.Bounds(len(matched))
	return matched[start:end], len(matched), nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = status
	cp := *s
	return &cp, nil
}
