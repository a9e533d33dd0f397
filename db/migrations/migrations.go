package migrations

import "embed"

//go:embed postgres/*.sql sqlite3/*.sql
var SQLs embed.FS
