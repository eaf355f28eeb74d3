// Package mindchat holds assets embedded at the module root.
package mindchat

import "embed"

// MigrationsFS contains the Postgres schema migrations.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
