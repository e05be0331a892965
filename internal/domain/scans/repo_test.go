package scans

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oralvis/oralvis/internal/platform/db"
	"github.com/oralvis/oralvis/migrations"
)

func newSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	sqlDB, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = db.NewSQLiteMigrator(sqlDB, migrations.FS, migrations.SQLiteDir).Up(ctx)
	require.NoError(t, err)
	return NewRepoSQLite(sqlDB)
}

func repoImplementations(t *testing.T) map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"memory": func(*testing.T) Repository { return NewRepoMemory() },
		"sqlite": newSQLiteRepo,
	}
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateAndGet(t *testing.T) {
	for name, newRepo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			size := int64(2048)

			s := &Scan{
				PatientName: "Jane Doe",
				PatientID:   strPtr("P-1"),
				ScanType:    "bite-wing",
				FilePath:    "tech-1/1.jpg",
				FileSize:    &size,
				Status:      StatusPending,
				UploadedBy:  "tech-1",
			}
			require.NoError(t, repo.Create(ctx, s))
			assert.NotEqual(t, uuid.Nil, s.ID)
			assert.False(t, s.CreatedAt.IsZero())

			got, err := repo.GetByID(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, "Jane Doe", got.PatientName)
			require.NotNil(t, got.PatientID)
			assert.Equal(t, "P-1", *got.PatientID)
			assert.Nil(t, got.Notes)
			require.NotNil(t, got.FileSize)
			assert.Equal(t, size, *got.FileSize)
			assert.Equal(t, "tech-1", got.UploadedBy)

			_, err = repo.GetByID(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_DuplicatePath(t *testing.T) {
	for name, newRepo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			mk := func() *Scan {
				return &Scan{PatientName: "A", ScanType: "intraoral", FilePath: "u/1.jpg", Status: StatusPending, UploadedBy: "u"}
			}
			require.NoError(t, repo.Create(ctx, mk()))
			assert.Error(t, repo.Create(ctx, mk()))
		})
	}
}

func TestRepository_ListFilterAndOrder(t *testing.T) {
	for name, newRepo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

			var ids []uuid.UUID
			for i, uploader := range []string{"a", "b", "a", "a"} {
				s := &Scan{
					PatientName: "P",
					ScanType:    "periapical",
					FilePath:    uploader + "/" + uuid.NewString() + ".jpg",
					Status:      StatusPending,
					UploadedBy:  uploader,
					CreatedAt:   base.Add(time.Duration(i) * time.Minute),
				}
				require.NoError(t, repo.Create(ctx, s))
				ids = append(ids, s.ID)
			}

			all, total, err := repo.List(ctx, ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			require.Len(t, all, 4)
			assert.Equal(t, ids[3], all[0].ID)
			assert.Equal(t, ids[0], all[3].ID)

			mine, total, err := repo.List(ctx, ListFilter{UploadedBy: "a"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			require.Len(t, mine, 3)
			for _, s := range mine {
				assert.Equal(t, "a", s.UploadedBy)
			}
			assert.Equal(t, ids[3], mine[0].ID)

			page, total, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 1})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			require.Len(t, page, 2)
			assert.Equal(t, ids[2], page[0].ID)
			assert.Equal(t, ids[1], page[1].ID)

			none, total, err := repo.List(ctx, ListFilter{UploadedBy: "nobody"})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, none)
		})
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	for name, newRepo := range repoImplementations(t) {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			s := &Scan{PatientName: "P", ScanType: "3d-cbct", FilePath: "u/2.jpg", Status: StatusPending, UploadedBy: "u"}
			require.NoError(t, repo.Create(ctx, s))

			updated, err := repo.UpdateStatus(ctx, s.ID, StatusReviewed)
			require.NoError(t, err)
			assert.Equal(t, StatusReviewed, updated.Status)
			assert.Equal(t, "u", updated.UploadedBy)
			assert.Equal(t, "u/2.jpg", updated.FilePath)

			_, err = repo.UpdateStatus(ctx, uuid.New(), StatusReviewed)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
