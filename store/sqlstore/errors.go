package sqlstore

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/weiihann/fkbench/store"
)

// classify maps driver-specific constraint errors onto store sentinels
// so callers can use errors.Is regardless of backend. The mysql schema
// declares no foreign keys, so only sqlite and postgres report them.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("%w: %w", store.ErrForeignKey, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return fmt.Errorf("%w: %w", store.ErrForeignKey, err)
	}

	return err
}
