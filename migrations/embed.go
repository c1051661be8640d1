// Package migrations holds the goose schema migrations. SQL files are embedded; Go migrations
// register themselves on import.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
