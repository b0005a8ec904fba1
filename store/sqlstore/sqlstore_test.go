package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/fkbench/store"
	"github.com/weiihann/fkbench/store/storetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), Options{
		Dialect: store.DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "bench.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.RelationalStore {
		return openSQLite(t)
	})
}

func TestSQLiteForeignKeyEnforced(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	_, err := s.CreateChildren(ctx, store.Indexed, []store.NewChild{
		{Label: "TX", ParentID: 12345},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, store.ErrForeignKey), "got %v", err)
}

func TestSQLiteIndexOnlyOnBaz(t *testing.T) {
	s := openSQLite(t)

	var n int
	err := s.DB().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master
		 WHERE type = 'index' AND tbl_name = 'baz' AND name = 'baz_foo_id_idx'`,
	).Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = s.DB().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master
		 WHERE type = 'index' AND tbl_name = 'bar' AND sql IS NOT NULL`,
	).Scan(&n)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSQLiteInsertSpansStatements(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	// More rows than one statement can carry under the 999 placeholder cap.
	parents := make([]store.NewParent, 2500)
	for i := range parents {
		parents[i] = store.NewParent{Name: "p"}
	}

	n, err := s.CreateParents(ctx, parents)
	require.NoError(t, err)
	require.EqualValues(t, 2500, n)

	ids, err := s.ParentIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 2500)

	children := make([]store.NewChild, 1200)
	for i := range children {
		children[i] = store.NewChild{Label: "WA", ParentID: ids[i%len(ids)]}
	}
	n, err = s.CreateChildren(ctx, store.Unindexed, children)
	require.NoError(t, err)
	require.EqualValues(t, 1200, n)

	childIDs, err := s.ChildIDs(ctx, store.Unindexed)
	require.NoError(t, err)

	n, err = s.DeleteChildren(ctx, store.Unindexed, childIDs)
	require.NoError(t, err)
	require.EqualValues(t, 1200, n)
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Options{Dialect: "oracle"})
	require.Error(t, err)
}

func TestSQLiteMemoryKeepsSchema(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Dialect: store.DialectSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.CreateParents(ctx, []store.NewParent{{Name: "Ada Lovelace"}})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	n, err := s.CountParents(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Zero(t, s.DB().Stats().MaxLifetimeClosed)
}

func TestConnMaxLifetime(t *testing.T) {
	tests := []struct {
		d    store.Dialect
		want time.Duration
	}{
		{store.DialectSQLite, 0},
		{store.DialectPostgres, 5 * time.Minute},
		{store.DialectMySQL, 5 * time.Minute},
	}

	for _, tt := range tests {
		d, err := lookupDialect(tt.d)
		require.NoError(t, err)
		require.Equal(t, tt.want, d.connMaxLifetime, "dialect %s", tt.d)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		fk   bool
	}{
		{"sqlite fk", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, true},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, false},
		{"postgres fk", &pq.Error{Code: "23503"}, true},
		{"postgres unique", &pq.Error{Code: "23505"}, false},
		{"wrapped postgres fk", fmt.Errorf("insert baz: %w", &pq.Error{Code: "23503"}), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			require.Equal(t, tt.fk, errors.Is(got, store.ErrForeignKey))
			require.ErrorIs(t, got, tt.err)
		})
	}

	require.NoError(t, classify(nil))
}
