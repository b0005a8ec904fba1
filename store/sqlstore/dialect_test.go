package sqlstore

import (
	"strings"
	"testing"

	"github.com/weiihann/fkbench/store"
)

func TestRebind(t *testing.T) {
	pg, err := lookupDialect(store.DialectPostgres)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	lite, err := lookupDialect(store.DialectSQLite)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	query := "UPDATE bar SET foo_id = ? WHERE id = ?"

	if got, want := pg.rebind(query), "UPDATE bar SET foo_id = $1 WHERE id = $2"; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind = %q, want unchanged", got)
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		rows, cols int
		want       string
	}{
		{1, 1, "(?)"},
		{1, 3, "(?, ?, ?)"},
		{2, 2, "(?, ?), (?, ?)"},
		{3, 1, "(?), (?), (?)"},
	}

	for _, tt := range tests {
		if got := placeholders(tt.rows, tt.cols); got != tt.want {
			t.Errorf("placeholders(%d, %d) = %q, want %q",
				tt.rows, tt.cols, got, tt.want)
		}
	}
}

func TestTuneDSN(t *testing.T) {
	tests := []struct {
		name    string
		dialect store.Dialect
		dsn     string
		want    string
	}{
		{
			name:    "sqlite file",
			dialect: store.DialectSQLite,
			dsn:     "bench.db",
			want:    "bench.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name:    "sqlite with params",
			dialect: store.DialectSQLite,
			dsn:     "bench.db?_fk=1&_busy_timeout=100",
			want:    "bench.db?_fk=1&_busy_timeout=100&_journal_mode=WAL",
		},
		{
			name:    "sqlite memory",
			dialect: store.DialectSQLite,
			dsn:     "file::memory:?cache=shared",
			want:    "file::memory:?cache=shared&_foreign_keys=on&_busy_timeout=5000",
		},
		{
			name:    "mysql",
			dialect: store.DialectMySQL,
			dsn:     "root:root@tcp(localhost:3306)/fkbench",
			want:    "root:root@tcp(localhost:3306)/fkbench?clientFoundRows=true",
		},
		{
			name:    "postgres untouched",
			dialect: store.DialectPostgres,
			dsn:     "postgres://localhost/fkbench?sslmode=disable",
			want:    "postgres://localhost/fkbench?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := lookupDialect(tt.dialect)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if got := d.tuneDSN(tt.dsn); got != tt.want {
				t.Errorf("tuneDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func TestMySQLSchemaHasNoForeignKeys(t *testing.T) {
	d, err := lookupDialect(store.DialectMySQL)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !d.cascadeInTx {
		t.Error("mysql must cascade in a transaction")
	}
	for _, stmt := range d.schema {
		if strings.Contains(strings.ToUpper(stmt), "REFERENCES") {
			t.Errorf("mysql schema declares a foreign key: %s", stmt)
		}
	}
}
