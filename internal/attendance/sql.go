package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect selects placeholder syntax for SQLRepository.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS attendance_entries (
		id          TEXT PRIMARY KEY,
		entry_date  TEXT NOT NULL,
		class_id    TEXT NOT NULL,
		student_id  TEXT NOT NULL,
		status      TEXT NOT NULL,
		faculty_id  TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (entry_date, class_id, student_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_entries_class ON attendance_entries(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_entries_faculty ON attendance_entries(faculty_id)`,
}

// SQLRepository persists entries in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository creates a repo.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Migrate creates the entries table if needed.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SeedIfEmpty appends the seed entries when the table has no rows.
func (r *SQLRepository) SeedIfEmpty(ctx context.Context, seed func() []Entry) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_entries`).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 || seed == nil {
		return 0, nil
	}
	return r.Append(ctx, seed())
}

// List returns entries with the filter applied in SQL.
func (r *SQLRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT id, entry_date, class_id, student_id, status, faculty_id FROM attendance_entries`
	args := []any{}
	clauses := []string{}
	add := func(cond string, v string) {
		args = append(args, v)
		clauses = append(clauses, cond+" "+r.dialect.placeholder(len(args)))
	}
	if f.ClassID != "" {
		add("class_id =", f.ClassID)
	}
	if f.FacultyID != "" {
		add("faculty_id =", f.FacultyID)
	}
	if f.From != "" {
		add("entry_date >=", f.From)
	}
	if f.To != "" {
		add("entry_date <=", f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY entry_date, class_id, student_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.ClassID, &e.StudentID, &e.Status, &e.FacultyID); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Append inserts the batch in one transaction, skipping existing keys.
func (r *SQLRepository) Append(ctx context.Context, entries []Entry) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	p := r.dialect.placeholder
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance_entries (id, entry_date, class_id, student_id, status, faculty_id)
		VALUES (`+p(1)+`, `+p(2)+`, `+p(3)+`, `+p(4)+`, `+p(5)+`, `+p(6)+`)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, e.ID, e.Date, e.ClassID, e.StudentID, string(e.Status), e.FacultyID)
		if err != nil {
			return 0, fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		stored += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}
