// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests, the migrate command and server
// bootstrap. Postgres and SQLite keep separate directories because their
// column types differ.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations for the Postgres store, rooted so that
// goose sees the .sql files at the top level.
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite returns the migrations for the SQLite store.
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// dir is one of the embedded directories above.
		panic("migrations: " + err.Error())
	}
	return f
}
