package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteFile is the database name inside the run directory.
const SQLiteFile = "results.db"

// SQLite mirrors every table into results.db, one SQL table per result
// table keyed by pid. Saving again upserts.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Save(dir string, tables []Table) error {
	db, err := sql.Open("sqlite3", filepath.Join(dir, SQLiteFile))
	if err != nil {
		return err
	}
	defer db.Close()

	for _, t := range tables {
		if err := saveTable(db, t); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	return nil
}

func saveTable(db *sql.DB, t Table) error {
	cols := make([]string, len(t.Header))
	for i, h := range t.Header {
		cols[i] = quote(h)
	}
	defs := make([]string, len(t.Header))
	defs[0] = cols[0] + " INTEGER PRIMARY KEY"
	for i := 1; i < len(cols); i++ {
		defs[i] = cols[i] + " TEXT"
	}

	createTable := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", quote(t.Name), strings.Join(defs, ", "))
	if _, err := db.Exec(createTable); err != nil {
		return err
	}

	insert := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s);",
		quote(t.Name), strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, row := range t.Rows {
		for i, v := range row {
			if v == "" {
				args[i] = nil
				continue
			}
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
