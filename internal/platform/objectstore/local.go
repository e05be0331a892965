package objectstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ObjectRoutePrefix is the URL prefix under which Local serves objects.
const ObjectRoutePrefix = "/objects/"

// Local stores objects as files under a root directory. Signed URLs point back
// at the API server and carry an HS256 token scoped to a single path.
type Local struct {
	root    string
	baseURL string
	secret  []byte
}

// NewLocal creates the root directory if needed and returns a Local store.
// baseURL is the externally visible server address used in signed URLs.
func NewLocal(root, baseURL string, secret []byte) (*Local, error) {
	if len(secret) == 0 {
		return nil, errors.New("objectstore: local store requires a URL signing secret")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating object root %s: %w", root, err)
	}
	return &Local{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}, nil
}

func (l *Local) fullPath(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Put writes content to a new file. The file is created exclusively so an
// existing object is never replaced.
func (l *Local) Put(_ context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	full := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, fmt.Errorf("creating object dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectExists, path)
		}
		return nil, fmt.Errorf("creating object %s: %w", path, err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), content)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("writing object %s: %w", path, err)
	}

	return &ObjectInfo{
		Path:        path,
		ContentType: contentType,
		Size:        n,
		Hash:        fmt.Sprintf("%x", h.Sum(nil)),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Open returns the file at path.
func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, *ObjectInfo, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(l.fullPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return nil, nil, fmt.Errorf("opening object %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat object %s: %w", path, err)
	}

	return f, &ObjectInfo{
		Path:        path,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        st.Size(),
		CreatedAt:   st.ModTime().UTC(),
	}, nil
}

// SignedURL returns {baseURL}/objects/{path}?token=... valid for expiry.
func (l *Local) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	if _, err := os.Stat(l.fullPath(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return "", fmt.Errorf("stat object %s: %w", path, err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   path,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("signing object token: %w", err)
	}

	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return l.baseURL + ObjectRoutePrefix + strings.Join(segs, "/") + "?token=" + url.QueryEscape(signed), nil
}

// Verify checks that token grants access to path.
func (l *Local) Verify(path, token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return l.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != path {
		return ErrInvalidToken
	}
	return nil
}

// RegisterRoutes mounts the signed object route on the root router. The route
// authenticates by its query token, not by the API bearer token.
func (l *Local) RegisterRoutes(e *echo.Echo) {
	e.GET(ObjectRoutePrefix+"*", l.handleServe)
}

func (l *Local) handleServe(c echo.Context) error {
	path := c.Param("*")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing object token")
	}
	if err := l.Verify(path, token); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}

	rc, info, err := l.Open(c.Request().Context(), path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrInvalidPath) {
			return echo.NewHTTPError(http.StatusNotFound, "object not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open object")
	}
	defer rc.Close()

	if info.ContentType != "" {
		c.Response().Header().Set(echo.HeaderContentType, info.ContentType)
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	f, ok := rc.(*os.File)
	if !ok {
		return c.Stream(http.StatusOK, info.ContentType, rc)
	}
	http.ServeContent(c.Response(), c.Request(), filepath.Base(path), info.CreatedAt, f)
	return nil
}
