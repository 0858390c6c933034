package sqlmirror

import (
	"fmt"
	"strings"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// driverName is the database/sql driver registered for d.
func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

func (d Dialect) gooseName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d Dialect) placeholder(i int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", i)
}

// ParseDSN picks the dialect for dsn and returns the string to hand to the driver.
// postgres:// URLs and key=value strings select Postgres; file:, sqlite: and bare paths select SQLite.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return 0, "", fmt.Errorf("empty dsn")
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") || strings.Contains(dsn, "user="):
		return Postgres, dsn, nil
	default:
		return SQLite, dsn, nil
	}
}
