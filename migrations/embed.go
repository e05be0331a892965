// Package migrations bundles the SQL schema for each supported record store.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql, named {version}_{name}.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
