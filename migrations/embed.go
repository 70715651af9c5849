// Package migrations embeds the SQL schema applied by cmd/migrate and by
// the API server at startup.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS returns the migrations filesystem
func FS() fs.FS {
	return files
}
