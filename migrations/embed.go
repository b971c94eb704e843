// Package migrations holds the goose SQL migrations, one directory per
// SQL dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql mysql/*.sql
var FS embed.FS
