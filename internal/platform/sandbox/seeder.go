// Package sandbox generates synthetic scans for demo and development
// environments. Output is reproducible for a given seed: the same
// patients, scan types, notes and review outcomes every run.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/auth"
)

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	ScanCount   int      `json:"scanCount"`
	Technicians []string `json:"technicians"`
	Reviewer    string   `json:"reviewer"`
	// ReviewedShare is the fraction of scans moved past pending.
	ReviewedShare float64 `json:"reviewedShare"`
	Seed          int64   `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		ScanCount:     25,
		Technicians:   []string{"demo-technician-1", "demo-technician-2"},
		Reviewer:      "demo-dentist",
		ReviewedShare: 0.4,
		Seed:          1,
	}
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Scans    int            `json:"scans"`
	ByStatus map[string]int `json:"byStatus"`
	ByType   map[string]int `json:"byType"`
	Duration time.Duration  `json:"duration"`
}

var (
	firstNames = []string{"Jane", "John", "Maria", "Ahmed", "Priya", "Chen", "Olivia", "Lucas", "Amara", "Kenji"}
	lastNames  = []string{"Doe", "Smith", "Garcia", "Khan", "Patel", "Wang", "Brown", "Silva", "Okafor", "Tanaka"}
	notes      = []string{
		"",
		"Routine check-up",
		"Pain reported in lower left molar",
		"Follow-up after extraction",
		"Pre-orthodontic assessment",
		"Possible cavity on upper right premolar",
	}
)

// DataGenerator produces deterministic synthetic scan fields.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) PatientName() string {
	return g.pick(firstNames) + " " + g.pick(lastNames)
}

func (g *DataGenerator) PatientID() string {
	return fmt.Sprintf("P-%05d", g.rng.Intn(100000))
}

func (g *DataGenerator) ScanType() string {
	return g.pick(scans.ScanTypes)
}

func (g *DataGenerator) Notes() string {
	return g.pick(notes)
}

// ReviewStatus returns the status a seeded scan ends in: pending with
// probability 1-reviewedShare, otherwise reviewed or approved.
func (g *DataGenerator) ReviewStatus(reviewedShare float64) string {
	if g.rng.Float64() >= reviewedShare {
		return scans.StatusPending
	}
	if g.rng.Intn(2) == 0 {
		return scans.StatusReviewed
	}
	return scans.StatusApproved
}

// Image renders a small grayscale PNG standing in for a radiograph.
func (g *DataGenerator) Image() ([]byte, error) {
	const w, h = 64, 32
	img := image.NewGray(image.Rect(0, 0, w, h))
	base := uint8(40 + g.rng.Intn(60))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: base + uint8((x*y)%80) + uint8(g.rng.Intn(16))})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode seed image: %w", err)
	}
	return buf.Bytes(), nil
}

// ScanService is the part of the scan service the seeder drives.
type ScanService interface {
	Upload(ctx context.Context, id auth.Identity, in scans.UploadInput) (*scans.Scan, error)
	UpdateStatus(ctx context.Context, id auth.Identity, scanID uuid.UUID, status string) (*scans.Scan, error)
}

// Seeder uploads synthetic scans through the regular service so the stored
// objects, records and metrics look exactly like real traffic.
type Seeder struct {
	config    SeedConfig
	svc       ScanService
	generator *DataGenerator
	logger    zerolog.Logger
	// pace separates uploads so object paths, keyed by millisecond, never
	// collide.
	pace time.Duration
}

func NewSeeder(config SeedConfig, svc ScanService, logger zerolog.Logger) *Seeder {
	if len(config.Technicians) == 0 {
		config.Technicians = DefaultSeedConfig().Technicians
	}
	if config.Reviewer == "" {
		config.Reviewer = DefaultSeedConfig().Reviewer
	}
	return &Seeder{
		config:    config,
		svc:       svc,
		generator: NewDataGenerator(config.Seed),
		logger:    logger,
		pace:      2 * time.Millisecond,
	}
}

// Run uploads config.ScanCount scans round-robin across the technicians and
// moves a share of them to reviewed or approved as the reviewer. It stops at
// the first failure and returns what was seeded so far.
func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	result := &SeedResult{ByStatus: map[string]int{}, ByType: map[string]int{}}
	reviewer := auth.Identity{UserID: s.config.Reviewer, Roles: []string{auth.RoleDentist}}

	for i := 0; i < s.config.ScanCount; i++ {
		if i > 0 && s.pace > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.pace):
			}
		}

		tech := auth.Identity{
			UserID: s.config.Technicians[i%len(s.config.Technicians)],
			Roles:  []string{auth.RoleTechnician},
		}
		img, err := s.generator.Image()
		if err != nil {
			return result, err
		}
		in := scans.UploadInput{
			PatientName: s.generator.PatientName(),
			PatientID:   s.generator.PatientID(),
			ScanType:    s.generator.ScanType(),
			Notes:       s.generator.Notes(),
			FileName:    fmt.Sprintf("seed-%03d.png", i+1),
			ContentType: "image/png",
			Content:     bytes.NewReader(img),
		}
		scan, err := s.svc.Upload(ctx, tech, in)
		if err != nil {
			return result, fmt.Errorf("seed upload %d: %w", i+1, err)
		}

		status := s.generator.ReviewStatus(s.config.ReviewedShare)
		if status != scans.StatusPending {
			if _, err := s.svc.UpdateStatus(ctx, reviewer, scan.ID, status); err != nil {
				return result, fmt.Errorf("seed status %d: %w", i+1, err)
			}
		}

		result.Scans++
		result.ByStatus[status]++
		result.ByType[in.ScanType]++
		s.logger.Debug().Str("scan_id", scan.ID.String()).Str("uploaded_by", tech.UserID).
			Str("status", status).Msg("seeded scan")
	}

	result.Duration = time.Since(start)
	return result, nil
}
