package export

import (
	"database/sql"
	"fmt"
	"net/netip"
	"os"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/render"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS networks (
	network TEXT PRIMARY KEY,
	record TEXT
);
`

const sqliteBatchSize = 10000

// sqliteWriter batches inserts inside explicit transactions so bulk
// exports do not pay per-row fsync costs.
type sqliteWriter struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	count int
}

func newSQLiteWriter(path string) (*sqliteWriter, error) {
	// Overwrite any previous export.
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &sqliteWriter{db: db}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *sqliteWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare(`INSERT INTO networks (network, record) VALUES (?, ?)`)
	return err
}

func (w *sqliteWriter) commitTx() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
	}
	return w.tx.Commit()
}

func (w *sqliteWriter) add(network, record string) error {
	if _, err := w.stmt.Exec(network, record); err != nil {
		return fmt.Errorf("insert %s: %w", network, err)
	}
	w.count++
	if w.count >= sqliteBatchSize {
		if err := w.commitTx(); err != nil {
			return err
		}
		w.count = 0
		return w.beginTx()
	}
	return nil
}

func (w *sqliteWriter) finish() error {
	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	return w.db.Close()
}

// SQLite writes every network into a fresh SQLite database at path, one
// row per network with the record rendered as JSON. It returns the number
// of networks written.
func SQLite(r *database.Reader, path string) (int, error) {
	w, err := newSQLiteWriter(path)
	if err != nil {
		return 0, err
	}

	count := 0
	err = r.Networks(database.NetworksOptions{}, func(p netip.Prefix, v decode.Value) error {
		if err := w.add(p.String(), render.Any(render.Display(v), false)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = w.db.Close()
		return count, err
	}
	return count, w.finish()
}
