// Package migrations embeds the SQL schema so the binary carries its own
// migrations. One directory per database driver.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
