// Package migrations embeds the SQL schema so binaries migrate without shipping files.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files.
//
//go:embed *.sql
var FS embed.FS
