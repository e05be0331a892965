package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/oralvis/oralvis/internal/domain/scans"
)

var (
	ErrSubmitting = errors.New("an upload is already in progress")
	ErrIncomplete = errors.New("patient name, scan type and file are required")
)

// UploadForm is the technician's upload form. Fields are set directly by the
// caller and must not change while Submitting reports true. Submit sends them
// and clears the form on success.
type UploadForm struct {
	api    API
	notify Notifier

	mu          sync.Mutex
	PatientName string
	PatientID   string
	ScanType    string
	Notes       string
	FileName    string
	ContentType string
	File        io.Reader
	submitting  bool
}

func NewUploadForm(api API, notify Notifier) *UploadForm {
	return &UploadForm{api: api, notify: notify}
}

// SetFile selects the file to upload.
func (f *UploadForm) SetFile(name, contentType string, r io.Reader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FileName, f.ContentType, f.File = name, contentType, r
}

// Submitting reports whether an upload is in flight. The submit control is
// disabled while it is.
func (f *UploadForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Complete reports whether every required field is filled in.
func (f *UploadForm) Complete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete()
}

func (f *UploadForm) complete() bool {
	return strings.TrimSpace(f.PatientName) != "" && f.ScanType != "" && f.File != nil
}

// Submit uploads the scan. An incomplete form never reaches the server. On
// success the form is reset and a confirmation is shown; on failure the
// remote message is shown and the fields are kept for another try.
func (f *UploadForm) Submit(ctx context.Context) (*scans.Scan, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	if !f.complete() {
		f.mu.Unlock()
		return nil, ErrIncomplete
	}
	in := scans.UploadInput{
		PatientName: f.PatientName,
		PatientID:   f.PatientID,
		ScanType:    f.ScanType,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Notes:       f.Notes,
		Content:     f.File,
	}
	f.submitting = true
	f.mu.Unlock()

	scan, err := f.api.UploadScan(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.notify.Notify(failure("Upload Failed", err))
		return nil, err
	}
	f.reset()
	f.notify.Notify(Notification{
		Title:       "Scan Uploaded Successfully",
		Description: "The scan has been uploaded and is now available for review.",
	})
	return scan, nil
}

// Reset clears every field.
func (f *UploadForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *UploadForm) reset() {
	f.PatientName, f.PatientID, f.ScanType, f.Notes = "", "", "", ""
	f.FileName, f.ContentType, f.File = "", "", nil
}
