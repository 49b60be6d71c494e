package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ananth-NQI/personbot/internal/models"
)

// SQLiteStore implements Store using an embedded SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer at a time keeps SQLite away from SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS person (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		age        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_person_name_age ON person(name, age);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreatePerson(person *models.Person) (*models.Person, error) {
	if err := insertPerson(s.db, person); err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	return person, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertPerson(e execer, person *models.Person) error {
	now := time.Now().UTC()
	res, err := e.Exec(
		`INSERT INTO person (name, age, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		person.Name, person.Age, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	person.ID = uint(id)
	person.CreatedAt = now
	person.UpdatedAt = now
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var (
		p                    models.Person
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Age, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}

func (s *SQLiteStore) GetPerson(id uint) (*models.Person, error) {
	row := s.db.QueryRow(`SELECT id, name, age, created_at, updated_at FROM person WHERE id = ?`, id)
	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person %d: %w", id, err)
	}
	return person, nil
}

func (s *SQLiteStore) GetAllPersons() ([]*models.Person, error) {
	rows, err := s.db.Query(`SELECT id, name, age, created_at, updated_at FROM person ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	persons := []*models.Person{}
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

func (s *SQLiteStore) UpdatePerson(id uint, name, age string) (*models.Person, error) {
	res, err := s.db.Exec(
		`UPDATE person SET name = ?, age = ?, updated_at = ? WHERE id = ?`,
		name, age, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update person %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update person %d: %w", id, err)
	}
	if n == 0 {
		return nil, ErrPersonNotFound
	}
	return s.GetPerson(id)
}

func (s *SQLiteStore) DeletePersons(name, age string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM person WHERE name = ? AND age = ?`, name, age)
	if err != nil {
		return 0, fmt.Errorf("failed to delete persons: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountPersons() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM person`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ImportPersons(persons []*models.Person) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	for _, person := range persons {
		if err := insertPerson(tx, person); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to import person %q: %w", person.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(persons), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
