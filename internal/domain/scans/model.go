package scans

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oralvis/oralvis/internal/platform/auth"
)

// Scan statuses.
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusApproved = "approved"
)

// Statuses lists every status in review order.
var Statuses = []string{StatusPending, StatusReviewed, StatusApproved}

var validStatuses = map[string]bool{
	StatusPending: true, StatusReviewed: true, StatusApproved: true,
}

// ScanTypes lists the accepted scan types in picker order.
var ScanTypes = []string{"intraoral", "panoramic", "bite-wing", "periapical", "3d-cbct", "impression"}

var scanTypeLabels = map[string]string{
	"intraoral":  "Intraoral Scan",
	"panoramic":  "Panoramic X-ray",
	"bite-wing":  "Bite-wing X-ray",
	"periapical": "Periapical X-ray",
	"3d-cbct":    "3D CBCT Scan",
	"impression": "Digital Impression",
}

// IsValidStatus reports whether s is one of the three scan statuses.
func IsValidStatus(s string) bool { return validStatuses[s] }

// IsValidScanType reports whether t is an accepted scan type.
func IsValidScanType(t string) bool {
	_, ok := scanTypeLabels[t]
	return ok
}

// ScanTypeLabel returns the picker label for a scan type, or the type itself
// when it is unknown.
func ScanTypeLabel(t string) string {
	if l, ok := scanTypeLabels[t]; ok {
		return l
	}
	return t
}

// Scan maps to the scans table.
type Scan struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	PatientID   *string   `db:"patient_id" json:"patient_id"`
	ScanType    string    `db:"scan_type" json:"scan_type"`
	FilePath    string    `db:"file_path" json:"file_path"`
	FileSize    *int64    `db:"file_size" json:"file_size"`
	Notes       *string   `db:"notes" json:"notes"`
	Status      string    `db:"status" json:"status"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TypeDisplay renders the scan type the way the list card shows it: the first
// hyphen becomes a space and every word is capitalised ("bite-wing" becomes
// "Bite Wing").
func (s *Scan) TypeDisplay() string {
	words := strings.Fields(strings.Replace(s.ScanType, "-", " ", 1))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SizeDisplay renders the file size in megabytes with two decimals.
func (s *Scan) SizeDisplay() string {
	return FormatFileSize(s.FileSize)
}

// FormatFileSize renders bytes as "N.NN MB", or "Unknown size" when the size
// is missing or zero.
func FormatFileSize(bytes *int64) string {
	if bytes == nil || *bytes == 0 {
		return "Unknown size"
	}
	return fmt.Sprintf("%.2f MB", float64(*bytes)/(1024*1024))
}

// ListFilter narrows a list query. An empty UploadedBy selects every scan.
type ListFilter struct {
	UploadedBy string
	Limit      int
	Offset     int
}

// Empty-list messages shown when a caller has no visible scans.
const (
	EmptyMessageTechnician = "You haven't uploaded any scans yet."
	EmptyMessageReviewer   = "No scans available for review."
)

// EmptyMessage returns the empty-list message for the caller's role.
func EmptyMessage(id auth.Identity) string {
	if id.HasRole(auth.RoleTechnician) {
		return EmptyMessageTechnician
	}
	return EmptyMessageReviewer
}

// ListHeading is "All Scans" for reviewers and "My Scans" otherwise.
func ListHeading(id auth.Identity) string {
	if id.IsReviewer() {
		return "All Scans"
	}
	return "My Scans"
}

// CountLabel renders "1 scan" or "N scans".
func CountLabel(n int) string {
	if n == 1 {
		return "1 scan"
	}
	return fmt.Sprintf("%d scans", n)
}
