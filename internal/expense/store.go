// Package expense implements the daily-expense tracker that ships alongside
// the checker: a SQLite-backed store and a small web UI with a JSON API.
package expense

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Expense item types. The type determines the unit shown next to the
// quantity; fixed entries have no meaningful quantity.
const (
	TypeLiquid  = "liquid"
	TypeSolid   = "solid"
	TypeUtility = "utility"
	TypeFixed   = "fixed"
)

// UnitFor maps an item type to its display unit.
func UnitFor(itemType string) string {
	switch itemType {
	case TypeLiquid:
		return "L"
	case TypeSolid:
		return "kg"
	case TypeUtility:
		return "units"
	default:
		return "fixed"
	}
}

// ValidType reports whether itemType is one of the known expense types.
func ValidType(itemType string) bool {
	switch itemType {
	case TypeLiquid, TypeSolid, TypeUtility, TypeFixed:
		return true
	}
	return false
}

// Entry is one expense row.
type Entry struct {
	ID        int64   `json:"id"`
	EntryDate string  `json:"date"`
	ItemName  string  `json:"item_name"`
	ItemType  string  `json:"item_type"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Unit is the display unit for the entry's quantity.
func (e Entry) Unit() string {
	return UnitFor(e.ItemType)
}

// LineTotal is quantity times unit price, rounded to cents.
func (e Entry) LineTotal() float64 {
	return round2(e.Quantity * e.UnitPrice)
}

// Store persists expenses in a SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the database at path, migrating
// legacy schemas before ensuring the current one.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateLegacy(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_date TEXT NOT NULL,
	item_name TEXT NOT NULL,
	item_type TEXT NOT NULL CHECK(item_type IN ('liquid','solid','utility','fixed')),
	quantity REAL NOT NULL CHECK(quantity >= 0),
	unit_price REAL NOT NULL CHECK(unit_price >= 0),
	created_at TEXT NOT NULL
)`

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// migrateLegacy upgrades two historical layouts: the month-based schema
// that stored entry_month (YYYY-MM) instead of entry_date, and the CHECK
// constraint predating the 'fixed' item type. Both require a table rebuild
// since SQLite cannot alter constraints in place.
func (s *Store) migrateLegacy() error {
	var tableSQL sql.NullString
	err := s.db.QueryRow(
		`SELECT sql FROM sqlite_master WHERE type='table' AND name='expenses'`,
	).Scan(&tableSQL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fresh database, ensureSchema handles it
	}
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	current := tableSQL.String
	needsMonth := strings.Contains(current, "entry_month") && !strings.Contains(current, "entry_date")
	needsFixed := strings.Contains(current, "CHECK") && !strings.Contains(current, "'fixed'")
	if !needsMonth && !needsFixed {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	newTable := strings.Replace(schema, "IF NOT EXISTS expenses", "expenses_new", 1)
	if _, err := tx.Exec(newTable); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	copyStmt := `
		INSERT INTO expenses_new (id, entry_date, item_name, item_type, quantity, unit_price, created_at)
		SELECT id, entry_date, item_name, item_type, quantity, unit_price, created_at FROM expenses`
	if needsMonth {
		copyStmt = `
		INSERT INTO expenses_new (id, entry_date, item_name, item_type, quantity, unit_price, created_at)
		SELECT id, substr(entry_month || '-01', 1, 10), item_name, item_type, quantity, unit_price, created_at
		FROM expenses`
	}
	if _, err := tx.Exec(copyStmt); err != nil {
		return fmt.Errorf("copy legacy rows: %w", err)
	}
	if _, err := tx.Exec(`DROP TABLE expenses`); err != nil {
		return fmt.Errorf("drop legacy table: %w", err)
	}
	if _, err := tx.Exec(`ALTER TABLE expenses_new RENAME TO expenses`); err != nil {
		return fmt.Errorf("rename migration table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// Add inserts an entry and returns its id.
func (s *Store) Add(e Entry) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO expenses (entry_date, item_name, item_type, quantity, unit_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.EntryDate, strings.TrimSpace(e.ItemName), e.ItemType, e.Quantity, e.UnitPrice,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}
	return id, nil
}

// Delete removes an entry by id. Deleting a missing id is not an error.
func (s *Store) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// ForDate returns the entries of one day, newest first, with their total.
func (s *Store) ForDate(date string) ([]Entry, float64, error) {
	return s.query(
		`SELECT id, entry_date, item_name, item_type, quantity, unit_price
		 FROM expenses WHERE entry_date = ? ORDER BY id DESC`, date)
}

// ForRange returns entries with start <= entry_date <= end in chronological
// order, with their total.
func (s *Store) ForRange(start, end string) ([]Entry, float64, error) {
	return s.query(
		`SELECT id, entry_date, item_name, item_type, quantity, unit_price
		 FROM expenses WHERE entry_date >= ? AND entry_date <= ?
		 ORDER BY entry_date ASC, id ASC`, start, end)
}

// MonthTotal sums the whole month containing date (YYYY-MM-DD), fixed
// entries included.
func (s *Store) MonthTotal(date string) (float64, error) {
	start, end, _, err := monthBounds(date)
	if err != nil {
		return 0, err
	}
	var total sql.NullFloat64
	err = s.db.QueryRow(
		`SELECT SUM(quantity * unit_price) FROM expenses
		 WHERE entry_date >= ? AND entry_date <= ?`, start, end,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum month: %w", err)
	}
	return round2(total.Float64), nil
}

func (s *Store) query(stmt string, args ...any) ([]Entry, float64, error) {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var (
		entries []Entry
		total   float64
	)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntryDate, &e.ItemName, &e.ItemType, &e.Quantity, &e.UnitPrice); err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		entries = append(entries, e)
		total += e.Quantity * e.UnitPrice
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}
	return entries, round2(total), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
