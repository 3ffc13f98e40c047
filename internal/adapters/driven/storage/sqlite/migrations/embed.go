// Package migrations embeds SQL migration files for the SQLite store.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
// Files are named NNN_name.up.sql and NNN_name.down.sql.
//
//go:embed *.sql
var FS embed.FS
