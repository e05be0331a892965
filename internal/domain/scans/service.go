package scans

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oralvis/oralvis/internal/platform/auth"
	"github.com/oralvis/oralvis/internal/platform/objectstore"
)

// ViewURLExpiry is the lifetime of a signed view URL.
const ViewURLExpiry = 3600 * time.Second

var (
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("forbidden")
	ErrUnsupportedFile = errors.New("unsupported file type")

	// Remote failures. Each wraps the backend error.
	ErrObjectWrite = errors.New("object store write failed")
	ErrRecordWrite = errors.New("record store write failed")
	ErrRecordRead  = errors.New("record store read failed")
	ErrSignURL     = errors.New("signed url creation failed")
)

// acceptedExtensions are the non-image formats the upload picker allows.
var acceptedExtensions = map[string]bool{"dcm": true, "stl": true}

var uploadValidate *validator.Validate

func init() {
	uploadValidate = validator.New()
	_ = uploadValidate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = uploadValidate.RegisterValidation("scantype", func(fl validator.FieldLevel) bool {
		return IsValidScanType(fl.Field().String())
	})
}

// UploadInput is everything a technician submits for one scan.
type UploadInput struct {
	PatientName string    `validate:"nonblank,max=200"`
	PatientID   string    `validate:"max=100"`
	ScanType    string    `validate:"required,scantype"`
	FileName    string    `validate:"required"`
	ContentType string    `validate:"max=255"`
	Notes       string    `validate:"max=4000"`
	Content     io.Reader `validate:"required"`
}

// Metrics receives scan lifecycle events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveUpload(scanType string, bytes int64, err error)
	ObserveStatusChange(from, to string)
	ObserveViewURL(err error)
}

type Service struct {
	repo    Repository
	objects objectstore.Store
	logger  zerolog.Logger
	metrics Metrics
	now     func() time.Time
}

func NewService(repo Repository, objects objectstore.Store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, objects: objects, logger: logger, now: time.Now}
}

func (s *Service) SetMetrics(m Metrics) { s.metrics = m }

// Upload validates the input, writes the file to the object store, then
// records the scan as pending. The object write always completes before the
// insert; an insert failure leaves the object in place.
func (s *Service) Upload(ctx context.Context, id auth.Identity, in UploadInput) (*Scan, error) {
	scan, err := s.upload(ctx, id, in)
	if s.metrics != nil {
		var size int64
		if scan != nil && scan.FileSize != nil {
			size = *scan.FileSize
		}
		s.metrics.ObserveUpload(in.ScanType, size, err)
	}
	return scan, err
}

func (s *Service) upload(ctx context.Context, id auth.Identity, in UploadInput) (*Scan, error) {
	if id.IsZero() || !id.CanUpload() {
		return nil, fmt.Errorf("%w: uploading scans requires the technician role", ErrForbidden)
	}
	if err := validateUpload(in); err != nil {
		return nil, err
	}
	if !acceptedFile(in.FileName, in.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, in.FileName)
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(in.FileName)); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	path := ObjectPath(id.UserID, s.now(), in.FileName)
	info, err := s.objects.Put(ctx, path, contentType, in.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrObjectWrite, err)
	}

	size := info.Size
	scan := &Scan{
		PatientName: strings.TrimSpace(in.PatientName),
		PatientID:   optional(in.PatientID),
		ScanType:    in.ScanType,
		FilePath:    path,
		FileSize:    &size,
		Notes:       optional(in.Notes),
		Status:      StatusPending,
		UploadedBy:  id.UserID,
	}
	if err := s.repo.Create(ctx, scan); err != nil {
		s.logger.Warn().Err(err).
			Str("object_path", path).
			Str("uploaded_by", id.UserID).
			Msg("scan record insert failed; stored object left orphaned")
		return nil, fmt.Errorf("%w: %w", ErrRecordWrite, err)
	}
	return scan, nil
}

// List returns the scans visible to the caller, newest first. Technician-only
// callers see their own uploads; everyone else sees every scan.
func (s *Service) List(ctx context.Context, id auth.Identity, limit, offset int) ([]*Scan, int, error) {
	if id.IsZero() {
		return nil, 0, fmt.Errorf("%w: no caller identity", ErrForbidden)
	}
	f := ListFilter{Limit: limit, Offset: offset}
	if id.TechnicianOnly() {
		f.UploadedBy = id.UserID
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrRecordRead, err)
	}
	if items == nil {
		items = []*Scan{}
	}
	return items, total, nil
}

// Get returns one scan if the caller may see it.
func (s *Service) Get(ctx context.Context, id auth.Identity, scanID uuid.UUID) (*Scan, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: no caller identity", ErrForbidden)
	}
	scan, err := s.repo.GetByID(ctx, scanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRecordRead, err)
	}
	if id.TechnicianOnly() && scan.UploadedBy != id.UserID {
		return nil, ErrNotFound
	}
	return scan, nil
}

// UpdateStatus sets the status of a scan. Only reviewers may call it and the
// status must be one of the known values. Concurrent updates are last writer
// wins.
func (s *Service) UpdateStatus(ctx context.Context, id auth.Identity, scanID uuid.UUID, status string) (*Scan, error) {
	if !id.IsReviewer() {
		return nil, fmt.Errorf("%w: changing scan status requires the dentist role", ErrForbidden)
	}
	if !IsValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid status: %s", ErrValidation, status)
	}

	var from string
	if s.metrics != nil {
		if prev, err := s.repo.GetByID(ctx, scanID); err == nil {
			from = prev.Status
		}
	}

	scan, err := s.repo.UpdateStatus(ctx, scanID, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRecordWrite, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveStatusChange(from, status)
	}
	return scan, nil
}

// ViewURL returns a signed URL for the scan's file, valid for ViewURLExpiry.
func (s *Service) ViewURL(ctx context.Context, id auth.Identity, scanID uuid.UUID) (string, error) {
	u, err := s.viewURL(ctx, id, scanID)
	if s.metrics != nil {
		s.metrics.ObserveViewURL(err)
	}
	return u, err
}

func (s *Service) viewURL(ctx context.Context, id auth.Identity, scanID uuid.UUID) (string, error) {
	scan, err := s.Get(ctx, id, scanID)
	if err != nil {
		return "", err
	}
	u, err := s.objects.SignedURL(ctx, scan.FilePath, ViewURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSignURL, err)
	}
	return u, nil
}

// ObjectPath builds the storage path {uploader}/{unixMillis}.{ext}.
func ObjectPath(uploader string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%d.%s", uploader, at.UnixMilli(), Extension(fileName))
}

// Extension returns the text after the last dot of name. A name without a
// dot is used whole; an empty result becomes "bin".
func Extension(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(filepath.Base(name))
	if name == "." {
		name = ""
	}
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	if ext == "" {
		return "bin"
	}
	return ext
}

func acceptedFile(name, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	ext := strings.ToLower(Extension(name))
	if acceptedExtensions[ext] {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension("."+ext), "image/")
}

func validateUpload(in UploadInput) error {
	err := uploadValidate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if m := fieldMessage(fe); !seen[m] {
			seen[m] = true
			msgs = append(msgs, m)
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "PatientName":
		if fe.Tag() == "max" {
			return "patient name is too long"
		}
		return "patient name is required"
	case "ScanType":
		if fe.Tag() == "required" {
			return "scan type is required"
		}
		return fmt.Sprintf("invalid scan type: %v", fe.Value())
	case "FileName", "Content":
		return "file is required"
	default:
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
