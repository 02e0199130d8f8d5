package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// SQLiteBackend keeps every record as one row of the records table.
type SQLiteBackend struct {
	db *sql.DB
}

// InitDB opens (creating if needed) the state database at dbPath.
func InitDB(dbPath string) (*SQLiteBackend, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createRecordsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	log.Println("Successfully connected to the state database at", dbPath)
	return &SQLiteBackend{db: db}, nil
}

func createRecordsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS records (
        name TEXT PRIMARY KEY,
        payload TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	_, err := db.Exec(query)
	return err
}

// Read returns the stored payload, or ErrRecordMissing.
func (b *SQLiteBackend) Read(name string) ([]byte, error) {
	var payload string
	err := b.db.QueryRow(`SELECT payload FROM records WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", name, err)
	}
	return []byte(payload), nil
}

// Write upserts the full record in a single statement.
func (b *SQLiteBackend) Write(name string, payload []byte) error {
	query := `INSERT OR REPLACE INTO records (name, payload, updated_at) VALUES (?, ?, ?)`
	stmt, err := b.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for record %s: %w", name, err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(name, string(payload), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write record %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
