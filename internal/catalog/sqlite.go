package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a file-backed trial catalog.
type SQLiteStore struct {
	*sqlStore
	dbPath string
}

// NewSQLiteStore opens (or creates) the catalog database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}

	return &SQLiteStore{
		sqlStore: &sqlStore{db: db, dialect: dialectSQLite},
		dbPath:   dbPath,
	}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trials (
		id TEXT PRIMARY KEY,
		nct_number TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT '',
		sponsor TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		distance INTEGER NOT NULL DEFAULT 0,
		cancer_type TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		last_updated DATETIME NOT NULL,
		eligibility_criteria TEXT NOT NULL DEFAULT '[]',
		metadata_fields TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_trials_cancer_type ON trials(cancer_type);
	CREATE INDEX IF NOT EXISTS idx_trials_status ON trials(status);
	CREATE INDEX IF NOT EXISTS idx_trials_nct_number ON trials(nct_number);
	`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return ensureColumns(db)
}

// addedColumns lists columns introduced after the first schema, so catalog
// files written by older builds are upgraded in place.
var addedColumns = []struct {
	name string
	def  string
}{
	{"eligibility_criteria", "TEXT NOT NULL DEFAULT '[]'"},
	{"metadata_fields", "TEXT NOT NULL DEFAULT '[]'"},
}

func ensureColumns(db *sql.DB) error {
	rows, err := db.Query("PRAGMA table_info(trials)")
	if err != nil {
		return fmt.Errorf("reading trials columns: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scanning trials column: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, col := range addedColumns {
		if existing[col.name] {
			continue
		}
		if _, err := db.Exec("ALTER TABLE trials ADD COLUMN " + col.name + " " + col.def); err != nil {
			return fmt.Errorf("adding column %s: %w", col.name, err)
		}
	}
	return nil
}
