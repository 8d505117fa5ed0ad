package migrations

import "embed"

// FS holds the ordered schema files applied by cmd/migrate.
//
//go:embed *.sql
var FS embed.FS
