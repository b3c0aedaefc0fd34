// Package dataset loads geocoded records from CSV or XLSX files.
package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/imagery-cli/internal/batch"
)

// Columns names the header cells holding each record field. An empty ID
// means records are identified by their zero-based data row index.
type Columns struct {
	ID  string
	Lat string
	Lon string
}

// DefaultColumns matches the lat/long headers of the house-price datasets.
func DefaultColumns() Columns {
	return Columns{Lat: "lat", Lon: "long"}
}

// Source describes how a record file is laid out.
type Source struct {
	Columns Columns
	// Sheet selects an XLSX worksheet by name; empty means the first.
	Sheet string
	// Delimiter separates CSV fields; zero means ','.
	Delimiter rune
}

// Load reads every record in path. The format is chosen by extension: .csv
// or .xlsx.
func Load(ctx context.Context, path string, src Source) ([]batch.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(ctx, path, src.Delimiter)
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{SheetName: src.Sheet})
	default:
		return nil, eris.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	records, err := Parse(rows, src.Columns)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	zap.L().Debug("dataset: loaded records", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

func readCSV(ctx context.Context, path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{Delimiter: delimiter, TrimSpace: true})
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

// Parse converts rows (header first) into records. Rows with no cells are
// ignored and do not consume an index.
func Parse(rows [][]string, cols Columns) ([]batch.Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("dataset: no header row")
	}

	header := rows[0]
	latIdx, err := columnIndex(header, cols.Lat)
	if err != nil {
		return nil, err
	}
	lonIdx, err := columnIndex(header, cols.Lon)
	if err != nil {
		return nil, err
	}
	idIdx := -1
	if cols.ID != "" {
		if idIdx, err = columnIndex(header, cols.ID); err != nil {
			return nil, err
		}
	}

	records := make([]batch.Record, 0, len(rows)-1)
	seen := make(map[string]int, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2 // 1-based, header is line 1
		if isBlank(row) {
			continue
		}

		lat, err := parseFloat(row, latIdx)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d: %s", line, cols.Lat)
		}
		lon, err := parseFloat(row, lonIdx)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: row %d: %s", line, cols.Lon)
		}

		id := strconv.Itoa(len(records))
		if idIdx >= 0 {
			id = cell(row, idIdx)
			if id == "" {
				return nil, eris.Errorf("dataset: row %d: empty %s", line, cols.ID)
			}
			if strings.ContainsAny(id, `/\`) {
				return nil, eris.Errorf("dataset: row %d: %s %q is not a valid file name", line, cols.ID, id)
			}
		}
		if prev, dup := seen[id]; dup {
			return nil, eris.Errorf("dataset: row %d: duplicate id %q (first seen on row %d)", line, id, prev)
		}
		seen[id] = line

		records = append(records, batch.Record{ID: id, Lat: lat, Lon: lon})
	}
	return records, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return -1, eris.Errorf("dataset: column %q not found in header", name)
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(row []string, idx int) (float64, error) {
	v := cell(row, idx)
	if v == "" {
		return 0, eris.New("missing value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid number %q", v)
	}
	return f, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
