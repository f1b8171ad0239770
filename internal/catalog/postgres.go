package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is a trial catalog in PostgreSQL. The trials table is
// created by the database migrations.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore wraps an open connection and verifies it.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}
	return &PostgresStore{sqlStore: &sqlStore{db: db, dialect: dialectPostgres}}, nil
}

// NewPostgresStoreFromURL opens a pooled connection from a postgres:// URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
