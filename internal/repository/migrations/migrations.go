// Package migrations embeds the SQL schema for the relational credential stores.
package migrations

import "embed"

//go:embed mysql/*.sql
var MySQL embed.FS

//go:embed postgres/*.sql
var Postgres embed.FS
