package catalog

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lib/pq"
)

const importTable = "ingredients_import"

type importRow struct {
	name string
	unit string
}

// ImportIngredients bulk loads "name,measurement_unit" CSV rows into the
// ingredient catalogue. Rows that already exist are skipped. It returns the
// number of newly inserted ingredients.
func ImportIngredients(ctx context.Context, db *sql.DB, r io.Reader) (int64, error) {
	rows, err := parseIngredientsCSV(r)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE `+importTable+` (name TEXT, measurement_unit TEXT) ON COMMIT DROP`); err != nil {
		return 0, fmt.Errorf("create import table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(importTable, "name", "measurement_unit"))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.name, row.unit); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy row %q: %w", row.name, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ingredients (name, measurement_unit)
		SELECT DISTINCT name, measurement_unit FROM `+importTable+`
		ON CONFLICT (name, measurement_unit) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("insert ingredients: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

func parseIngredientsCSV(r io.Reader) ([]importRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var rows []importRow
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", line, len(record))
		}
		name, unit := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if name == "" || unit == "" {
			return nil, fmt.Errorf("line %d: name and measurement unit are required", line)
		}
		rows = append(rows, importRow{name: name, unit: unit})
	}
}
