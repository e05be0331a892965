package scans

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oralvis/oralvis/internal/platform/auth"
)

func TestScan_TypeDisplay(t *testing.T) {
	tests := map[string]string{
		"bite-wing":  "Bite Wing",
		"3d-cbct":    "3d Cbct",
		"panoramic":  "Panoramic",
		"impression": "Impression",
	}
	for in, want := range tests {
		s := &Scan{ScanType: in}
		assert.Equal(t, want, s.TypeDisplay(), in)
	}
}

func TestScanTypeLabel(t *testing.T) {
	assert.Equal(t, "Panoramic X-ray", ScanTypeLabel("panoramic"))
	assert.Equal(t, "3D CBCT Scan", ScanTypeLabel("3d-cbct"))
	assert.Equal(t, "unknown", ScanTypeLabel("unknown"))
	for _, st := range ScanTypes {
		assert.True(t, IsValidScanType(st), st)
	}
	assert.False(t, IsValidScanType("mri"))
}

func TestStatuses(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, IsValidStatus(s))
	}
	assert.False(t, IsValidStatus("Approved"))
	assert.False(t, IsValidStatus(""))
}

func TestFormatFileSize(t *testing.T) {
	size := func(n int64) *int64 { return &n }

	assert.Equal(t, "Unknown size", FormatFileSize(nil))
	assert.Equal(t, "Unknown size", FormatFileSize(size(0)))
	assert.Equal(t, "2.00 MB", FormatFileSize(size(2*1024*1024)))
	assert.Equal(t, "0.50 MB", FormatFileSize(size(512*1024)))
}

func TestRoleLabels(t *testing.T) {
	tech := auth.Identity{UserID: "t", Roles: []string{auth.RoleTechnician}}
	dent := auth.Identity{UserID: "d", Roles: []string{auth.RoleDentist}}

	assert.Equal(t, "You haven't uploaded any scans yet.", EmptyMessage(tech))
	assert.Equal(t, "No scans available for review.", EmptyMessage(dent))
	assert.Equal(t, "My Scans", ListHeading(tech))
	assert.Equal(t, "All Scans", ListHeading(dent))

	assert.Equal(t, "0 scans", CountLabel(0))
	assert.Equal(t, "1 scan", CountLabel(1))
	assert.Equal(t, "7 scans", CountLabel(7))
}
