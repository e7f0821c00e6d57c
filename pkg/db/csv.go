package db

import (
	"encoding/csv"
	"os"
	"path/filepath"
)

// CSV writes one file per table, each replaced by rename.
type CSV struct{}

func (CSV) Name() string { return "csv" }

func (CSV) Save(dir string, tables []Table) error {
	for _, t := range tables {
		if err := writeCSV(Path(dir, t.Name), t); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, t Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
