package source

import (
	"database/sql"
	"fmt"
	"regexp"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB is a source stored as a row of a scripts table with the columns
// (name TEXT PRIMARY KEY, text TEXT, modified BIGINT). Every call reads the
// row again, so edits made through the database are picked up.
type DB struct {
	db    *sql.DB
	table string
	name  string
}

// NewDB creates a source for the row called name in table.
func NewDB(db *sql.DB, table, name string) (*DB, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DB{db: db, table: table, name: name}, nil
}

func (s *DB) ID() string { return "db:" + s.table + "/" + s.name }

// LastModified returns the row's modified column, or 0 if the row cannot be read.
func (s *DB) LastModified() int64 {
	var modified int64
	err := s.db.QueryRow("SELECT modified FROM "+s.table+" WHERE name = ?", s.name).Scan(&modified)
	if err != nil {
		return 0
	}
	return modified
}

func (s *DB) ScriptName() string { return ClassName(s.name) }

func (s *DB) Text() (string, error) {
	var text string
	err := s.db.QueryRow("SELECT text FROM "+s.table+" WHERE name = ?", s.name).Scan(&text)
	if err != nil {
		return "", fmt.Errorf("reading script %s from %s: %w", s.name, s.table, err)
	}
	return text, nil
}

func (s *DB) String() string { return s.ID() }

// CreateTable creates a scripts table if it does not exist yet.
func CreateTable(db *sql.DB, table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS " + table +
		" (name TEXT PRIMARY KEY, text TEXT NOT NULL, modified BIGINT NOT NULL)")
	if err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// Store inserts or replaces the script called name in table.
func Store(db *sql.DB, table, name, text string, modified int64) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	_, err := db.Exec("INSERT INTO "+table+" (name, text, modified) VALUES (?, ?, ?)"+
		" ON CONFLICT(name) DO UPDATE SET text = excluded.text, modified = excluded.modified",
		name, text, modified)
	if err != nil {
		return fmt.Errorf("storing script %s in %s: %w", name, table, err)
	}
	return nil
}
