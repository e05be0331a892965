// Package client is an HTTP client for the OralVis API. It implements the
// dashboard's API interface so the terminal dashboard and CLI commands run
// the same flows as any other front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oralvis/oralvis/internal/dashboard"
	"github.com/oralvis/oralvis/internal/domain/scans"
	"github.com/oralvis/oralvis/internal/platform/auth"
)

const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response. Error returns the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Message
}

// StatusCode returns the HTTP status of an APIError anywhere in err's chain,
// or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Credentials authenticate requests. Token, when set, is sent as a bearer
// token. The Dev fields are sent as development identity headers and only
// take effect against a server running in development auth mode.
type Credentials struct {
	Token     string
	DevUserID string
	DevEmail  string
	DevRoles  string
}

type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

var _ dashboard.API = (*Client)(nil)

// New returns a client for the server at baseURL (e.g. http://localhost:8000).
func New(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// ScanPage is one page of the scan list as returned by the server.
type ScanPage struct {
	Data         []*scans.Scan `json:"data"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
	HasMore      bool          `json:"has_more"`
	Heading      string        `json:"heading"`
	EmptyMessage string        `json:"empty_message,omitempty"`
}

// ListScans returns every scan visible to the caller, newest first.
func (c *Client) ListScans(ctx context.Context) ([]*scans.Scan, error) {
	var all []*scans.Scan
	offset := 0
	for {
		page, err := c.ListScansPage(ctx, 0, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		offset += len(page.Data)
	}
	if all == nil {
		all = []*scans.Scan{}
	}
	return all, nil
}

// ListScansPage fetches one page. A zero limit uses the server default.
func (c *Client) ListScansPage(ctx context.Context, limit, offset int) (*ScanPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/scans"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page ScanPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetScan(ctx context.Context, id uuid.UUID) (*scans.Scan, error) {
	var s scans.Scan
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/scans/"+id.String(), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateScanStatus(ctx context.Context, id uuid.UUID, status string) (*scans.Scan, error) {
	var s scans.Scan
	body := map[string]string{"status": status}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/scans/"+id.String()+"/status", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SignedURL(ctx context.Context, id uuid.UUID) (string, error) {
	var resp struct {
		SignedURL string `json:"signed_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/scans/"+id.String()+"/signed-url", nil, &resp); err != nil {
		return "", err
	}
	return resp.SignedURL, nil
}

// Me returns the server's view of the caller.
func (c *Client) Me(ctx context.Context) (*dashboard.MeResponse, error) {
	var me dashboard.MeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Dashboard returns the caller's composed dashboard.
func (c *Client) Dashboard(ctx context.Context) (*dashboard.View, error) {
	var v dashboard.View
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/dashboard", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SignOut revokes the bearer token the client authenticates with. It is a
// no-op against a development server when no token is set.
func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/sign-out", nil, nil)
}

// UploadScan streams the file and form fields as multipart/form-data.
func (c *Client) UploadScan(ctx context.Context, in scans.UploadInput) (*scans.Scan, error) {
	if in.Content == nil {
		return nil, errors.New("file is required")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, in))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/scans", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var s scans.Scan
	if err := c.do(req, &s); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return &s, nil
}

func writeUploadForm(mw *multipart.Writer, in scans.UploadInput) error {
	fields := [][2]string{
		{"patient_name", in.PatientName},
		{"patient_id", in.PatientID},
		{"scan_type", in.ScanType},
		{"notes", in.Notes},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(in.FileName)))
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, in.Content); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}
	if c.creds.DevUserID != "" {
		req.Header.Set(auth.DevUserHeader, c.creds.DevUserID)
	}
	if c.creds.DevEmail != "" {
		req.Header.Set(auth.DevEmailHeader, c.creds.DevEmail)
	}
	if c.creds.DevRoles != "" {
		req.Header.Set(auth.DevRolesHeader, c.creds.DevRoles)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
