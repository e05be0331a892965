package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: infrastructure
// endpoints and the signed object route, which carries its own token.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

const objectsPrefix = "/objects/"

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path()) || IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether the given path is a public endpoint.
func IsPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, objectsPrefix)
}
