package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/weiihann/fkbench/store"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name       store.Dialect
	driver     string
	schema     []string
	positional bool // $1, $2 placeholders instead of ?
	// cascadeInTx deletes child rows explicitly before parents. InnoDB
	// indexes every FOREIGN KEY column, so the mysql schema declares no
	// constraints and the store performs the cascade itself.
	cascadeInTx bool
	poolSize    int
	// connMaxLifetime recycles pooled connections; 0 keeps them open.
	connMaxLifetime time.Duration
	// maxParams bounds placeholders per statement.
	maxParams int
}

func lookupDialect(d store.Dialect) (dialect, error) {
	switch d {
	case store.DialectSQLite:
		return dialect{
			name:   d,
			driver: "sqlite3",
			schema: []string{
				`CREATE TABLE IF NOT EXISTS foo (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS bar (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					label TEXT NOT NULL,
					foo_id INTEGER NOT NULL REFERENCES foo(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS baz (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					label TEXT NOT NULL,
					foo_id INTEGER NOT NULL REFERENCES foo(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS baz_foo_id_idx ON baz (foo_id)`,
			},
			// Single writer; concurrent requests queue on the pool. The
			// connection is never recycled: a :memory: database lives only
			// as long as its connection.
			poolSize:  1,
			maxParams: 999,
		}, nil

	case store.DialectPostgres:
		return dialect{
			name:   d,
			driver: "postgres",
			schema: []string{
				`CREATE TABLE IF NOT EXISTS foo (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS bar (
					id BIGSERIAL PRIMARY KEY,
					label TEXT NOT NULL,
					foo_id BIGINT NOT NULL REFERENCES foo(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS baz (
					id BIGSERIAL PRIMARY KEY,
					label TEXT NOT NULL,
					foo_id BIGINT NOT NULL REFERENCES foo(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS baz_foo_id_idx ON baz (foo_id)`,
			},
			positional:      true,
			poolSize:        20,
			connMaxLifetime: 5 * time.Minute,
			maxParams:       65535,
		}, nil

	case store.DialectMySQL:
		return dialect{
			name:   d,
			driver: "mysql",
			schema: []string{
				`CREATE TABLE IF NOT EXISTS foo (
					id BIGINT AUTO_INCREMENT PRIMARY KEY,
					name VARCHAR(255) NOT NULL
				) ENGINE=InnoDB`,
				`CREATE TABLE IF NOT EXISTS bar (
					id BIGINT AUTO_INCREMENT PRIMARY KEY,
					label VARCHAR(64) NOT NULL,
					foo_id BIGINT NOT NULL
				) ENGINE=InnoDB`,
				`CREATE TABLE IF NOT EXISTS baz (
					id BIGINT AUTO_INCREMENT PRIMARY KEY,
					label VARCHAR(64) NOT NULL,
					foo_id BIGINT NOT NULL,
					INDEX baz_foo_id_idx (foo_id)
				) ENGINE=InnoDB`,
			},
			cascadeInTx:     true,
			poolSize:        20,
			connMaxLifetime: 5 * time.Minute,
			maxParams:       65535,
		}, nil

	default:
		return dialect{}, fmt.Errorf("sqlstore: unsupported dialect %q", d)
	}
}

// tuneDSN adds the connection parameters the benchmark relies on.
func (d dialect) tuneDSN(dsn string) string {
	switch d.name {
	case store.DialectSQLite:
		params := []string{}
		if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
			params = append(params, "_foreign_keys=on")
		}
		if !strings.Contains(dsn, "_busy_timeout") {
			params = append(params, "_busy_timeout=5000")
		}
		if !strings.Contains(dsn, "_journal_mode") && !strings.Contains(dsn, ":memory:") {
			params = append(params, "_journal_mode=WAL")
		}

		return appendParams(dsn, params)

	case store.DialectMySQL:
		// Count matched rows, not changed rows, so rebinding a child to
		// its current parent still reports one affected row.
		if strings.Contains(dsn, "clientFoundRows") {
			return dsn
		}

		return appendParams(dsn, []string{"clientFoundRows=true"})

	default:
		return dsn
	}
}

func appendParams(dsn string, params []string) string {
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(params, "&")
}

// rebind rewrites ? placeholders for positional dialects.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}
		b.WriteByte(query[i])
	}

	return b.String()
}

// placeholders returns "(?, ?), (?, ?)" style groups.
func placeholders(rows, cols int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"

	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(group)
	}

	return b.String()
}
