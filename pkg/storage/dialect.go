package storage

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// DetectDialect derives the dialect and driver DSN from a connection string:
// postgres:// or postgresql:// URLs, mysql://<go-sql-driver DSN>,
// sqlite://<path> or a bare :memory:.
func DetectDialect(connectionString string) (Dialect, string, error) {
	if connectionString == "" {
		return "", "", fmt.Errorf("connection string is empty")
	}

	lower := strings.ToLower(connectionString)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, connectionString, nil
	case strings.HasPrefix(lower, "mysql://"):
		return DialectMySQL, connectionString[len("mysql://"):], nil
	case strings.HasPrefix(lower, "sqlite://"):
		dsn := connectionString[len("sqlite://"):]
		if dsn == ":memory:" {
			dsn = "file::memory:?mode=memory&cache=shared"
		}
		return DialectSQLite, dsn, nil
	case lower == ":memory:":
		return DialectSQLite, "file::memory:?mode=memory&cache=shared", nil
	default:
		return "", "", fmt.Errorf("unsupported connection string scheme in %q", redactDSN(connectionString))
	}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	body := "TEXT"
	if d == DialectMySQL {
		body = "MEDIUMTEXT"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS rdap_objects (
	kind VARCHAR(32) NOT NULL,
	object_key VARCHAR(255) NOT NULL,
	search_key VARCHAR(255) NOT NULL DEFAULT '',
	range_start VARCHAR(32) NOT NULL DEFAULT '',
	range_end VARCHAR(32) NOT NULL DEFAULT '',
	body ` + body + ` NOT NULL,
	PRIMARY KEY (kind, object_key)
)`,
	}
}

// redactDSN hides the password of URL-style connection strings.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}
