// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
//
// local/ holds the SQLite schema of the on-device store used by cmd/api.
// remote/ holds the Postgres schema of the sync receiver (cmd/syncd).
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed local/*.sql remote/*.sql
var files embed.FS

// Local is the migration set for the SQLite local store.
// Pass it to goose.NewProvider with goose.DialectSQLite3.
var Local = mustSub("local")

// Remote is the migration set for the Postgres sync database.
// Pass it to goose.NewProvider with goose.DialectPostgres.
var Remote = mustSub("remote")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic("migrations: " + err.Error())
	}
	return sub
}
