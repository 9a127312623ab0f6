// Package spreadsheet turns uploaded CSV/XLSX files into the raw row maps
// the stager accepts. Header cells become row keys verbatim; the normalizer
// folds and aliases them later, so unknown columns survive staging.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

func ReadRows(filename string, r io.Reader) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r)
	case ".csv", "":
		return readCSV(r)
	default:
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"read spreadsheet",
			fmt.Errorf("unsupported file type %q", filepath.Ext(filename)),
		)
	}
}

func readCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read csv", errors.New("file is empty"))
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		if row := buildRow(header, record); len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([]map[string]any, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read xlsx", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read xlsx", errors.New("workbook has no sheets"))
	}

	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read xlsx", errors.New("sheet is empty"))
	}

	header := records[0]
	var rows []map[string]any
	for _, record := range records[1:] {
		if row := buildRow(header, record); len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// buildRow zips one record against the header. Cells beyond the header are
// dropped; a record shorter than the header simply omits the trailing keys.
// Rows whose every cell is blank are skipped entirely.
func buildRow(header, record []string) map[string]any {
	row := make(map[string]any, len(header))
	blank := true
	for i, key := range header {
		if key == "" || i >= len(record) {
			continue
		}
		row[key] = record[i]
		if strings.TrimSpace(record[i]) != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return row
}
