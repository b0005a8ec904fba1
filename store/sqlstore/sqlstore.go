// Package sqlstore implements store.RelationalStore on database/sql for
// sqlite, postgres and mysql.
//
// InnoDB indexes every FOREIGN KEY column, which would give bar the same
// index as baz, so the mysql schema declares no foreign keys. On mysql
// the store deletes children itself when parents go, but a child naming
// a missing parent is accepted: foreign key integrity there is the
// caller's job. The benchmark only draws parent ids from existing rows.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/weiihann/fkbench/store"
)

// Options configures Open.
type Options struct {
	Dialect store.Dialect
	DSN     string
	// PoolSize caps open connections; 0 uses the dialect default.
	PoolSize int
}

// Store is a RelationalStore backed by a *sql.DB.
type Store struct {
	db *sql.DB
	d  dialect
}

var _ store.RelationalStore = (*Store)(nil)

// Open connects, verifies the connection and creates the benchmark
// tables if they do not exist.
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, err := lookupDialect(opts.Dialect)
	if err != nil {
		return nil, err
	}

	dsn := d.tuneDSN(store.ResolveDSN(opts.Dialect, opts.DSN))

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}

	poolSize := d.poolSize
	if opts.PoolSize > 0 && d.name != store.DialectSQLite {
		poolSize = opts.PoolSize
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxLifetime(d.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("connect %s: %w", d.name, err)
	}

	s := &Store{db: db, d: d}
	if err := s.initSchema(ctx); err != nil {
		db.Close()

		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return 0, classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

// execOne runs a targeted statement that must hit exactly one row.
func (s *Store) execOne(ctx context.Context, what string, id int64, query string, args ...any) (int64, error) {
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%s %d: %w", what, id, store.ErrNotFound)
	}

	return n, nil
}

// CreateParents inserts parents in one transaction.
func (s *Store) CreateParents(ctx context.Context, parents []store.NewParent) (int64, error) {
	args := make([]any, 0, len(parents))
	for _, p := range parents {
		args = append(args, p.Name)
	}

	return s.insertMany(ctx, "foo", []string{"name"}, args)
}

// CreateChildren inserts children into the variant's table.
func (s *Store) CreateChildren(ctx context.Context, v store.Variant, children []store.NewChild) (int64, error) {
	args := make([]any, 0, 2*len(children))
	for _, c := range children {
		args = append(args, c.Label, c.ParentID)
	}

	return s.insertMany(ctx, v.Table(), []string{"label", "foo_id"}, args)
}

// insertMany writes rows with multi-row INSERT statements in a single
// transaction, chunked to stay under the dialect's placeholder limit.
func (s *Store) insertMany(ctx context.Context, table string, cols []string, args []any) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}

	width := len(cols)
	rowsPerStmt := s.d.maxParams / width

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert %s: %w", table, err)
	}
	defer tx.Rollback()

	colList := strings.Join(cols, ", ")

	var total int64
	for start := 0; start < len(args); start += rowsPerStmt * width {
		end := min(start+rowsPerStmt*width, len(args))
		chunk := args[start:end]

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, colList, placeholders(len(chunk)/width, width))

		res, err := tx.ExecContext(ctx, s.d.rebind(query), chunk...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, classify(err))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert %s: %w", table, classify(err))
	}

	return total, nil
}

// ParentIDs returns every foo id in ascending order.
func (s *Store) ParentIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, "foo")
}

// ChildIDs returns every child id of the variant in ascending order.
func (s *Store) ChildIDs(ctx context.Context, v store.Variant) ([]int64, error) {
	return s.ids(ctx, v.Table())
}

func (s *Store) ids(ctx context.Context, table string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select %s ids: %w", table, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", table, err)
	}

	return ids, nil
}

// ReadParentsWithChildren joins foo with the variant, keeping parents
// without children.
func (s *Store) ReadParentsWithChildren(ctx context.Context, v store.Variant) ([]store.ParentWithChildren, error) {
	query := fmt.Sprintf(`SELECT f.id, f.name, c.id, c.label
		FROM foo f LEFT JOIN %s c ON c.foo_id = f.id
		ORDER BY f.id, c.id`, v.Table())

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("join foo %s: %w", v.Table(), err)
	}
	defer rows.Close()

	var out []store.ParentWithChildren
	for rows.Next() {
		var (
			p       store.Parent
			childID sql.NullInt64
			label   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &childID, &label); err != nil {
			return nil, fmt.Errorf("scan join row: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].ID != p.ID {
			out = append(out, store.ParentWithChildren{Parent: p})
		}

		if childID.Valid {
			last := &out[len(out)-1]
			last.Children = append(last.Children, store.Child{
				ID:       childID.Int64,
				Label:    label.String,
				ParentID: p.ID,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate join rows: %w", err)
	}

	return out, nil
}

// UpdateChildParent points one child at another parent.
func (s *Store) UpdateChildParent(ctx context.Context, v store.Variant, childID, parentID int64) (int64, error) {
	return s.execOne(ctx, "update "+v.Table(), childID,
		"UPDATE "+v.Table()+" SET foo_id = ? WHERE id = ?", parentID, childID)
}

// DeleteChild removes one child by id.
func (s *Store) DeleteChild(ctx context.Context, v store.Variant, childID int64) (int64, error) {
	return s.execOne(ctx, "delete "+v.Table(), childID,
		"DELETE FROM "+v.Table()+" WHERE id = ?", childID)
}

// DeleteChildren removes the children listed in ids.
func (s *Store) DeleteChildren(ctx context.Context, v store.Variant, ids []int64) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += s.d.maxParams {
		chunk := ids[start:min(start+s.d.maxParams, len(ids))]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id IN %s",
			v.Table(), placeholders(1, len(chunk)))

		n, err := s.exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("delete %s batch: %w", v.Table(), err)
		}
		total += n
	}

	return total, nil
}

// DeleteAllChildren empties the variant's table.
func (s *Store) DeleteAllChildren(ctx context.Context, v store.Variant) (int64, error) {
	n, err := s.exec(ctx, "DELETE FROM "+v.Table())
	if err != nil {
		return 0, fmt.Errorf("delete all %s: %w", v.Table(), err)
	}

	return n, nil
}

// DeleteParent removes one parent and its children.
func (s *Store) DeleteParent(ctx context.Context, id int64) (int64, error) {
	if !s.d.cascadeInTx {
		return s.execOne(ctx, "delete foo", id, "DELETE FROM foo WHERE id = ?", id)
	}

	return s.cascadeTx(ctx, func(tx *sql.Tx) (int64, error) {
		for _, v := range store.Variants() {
			q := s.d.rebind("DELETE FROM " + v.Table() + " WHERE foo_id = ?")
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return 0, fmt.Errorf("cascade %s: %w", v.Table(), err)
			}
		}

		res, err := tx.ExecContext(ctx, s.d.rebind("DELETE FROM foo WHERE id = ?"), id)
		if err != nil {
			return 0, fmt.Errorf("delete foo %d: %w", id, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("delete foo %d: %w", id, store.ErrNotFound)
		}

		return n, nil
	})
}

// DeleteAllParents removes every parent and, by cascade, every child.
func (s *Store) DeleteAllParents(ctx context.Context) (int64, error) {
	if !s.d.cascadeInTx {
		n, err := s.exec(ctx, "DELETE FROM foo")
		if err != nil {
			return 0, fmt.Errorf("delete all foo: %w", err)
		}

		return n, nil
	}

	return s.cascadeTx(ctx, func(tx *sql.Tx) (int64, error) {
		for _, v := range store.Variants() {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+v.Table()); err != nil {
				return 0, fmt.Errorf("cascade %s: %w", v.Table(), err)
			}
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM foo")
		if err != nil {
			return 0, fmt.Errorf("delete all foo: %w", err)
		}

		return res.RowsAffected()
	})
}

func (s *Store) cascadeTx(ctx context.Context, fn func(tx *sql.Tx) (int64, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cascade: %w", err)
	}
	defer tx.Rollback()

	n, err := fn(tx)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cascade: %w", err)
	}

	return n, nil
}

// CountParents returns the number of rows in foo.
func (s *Store) CountParents(ctx context.Context) (int64, error) {
	return s.count(ctx, "foo")
}

// CountChildren returns the number of rows in the variant's table.
func (s *Store) CountChildren(ctx context.Context, v store.Variant) (int64, error) {
	return s.count(ctx, v.Table())
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
