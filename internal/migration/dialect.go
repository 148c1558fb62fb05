package migration

import (
	"fmt"

	"github.com/pressly/goose/v3"
)

// Dialect names the backend for goose and the resource directory of its statements.
type Dialect struct {
	name  string
	goose goose.Dialect
}

var (
	SQLite = Dialect{
		name:  "sqlite3",
		goose: goose.DialectSQLite3,
	}
	Postgres = Dialect{
		name:  "postgres",
		goose: goose.DialectPostgres,
	}
)

// DialectFor maps a configured database driver to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func (d Dialect) Name() string {
	return d.name
}
