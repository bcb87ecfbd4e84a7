package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

// For returns the migrations filesystem for a database driver
func For(driver string) (fs.FS, error) {
	switch driver {
	case "postgres", "sqlite":
		return fs.Sub(Files, driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
