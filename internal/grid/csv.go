package grid

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadCSV decodes a single-sheet CSV export. The sheet is named after the
// file without its extension.
func ReadCSV(r io.Reader, name string) (*Workbook, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", name, err)
	}

	sheet := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return &Workbook{
		Name:   name,
		Sheets: []Sheet{{Name: sheet, Grid: FromStrings(records)}},
	}, nil
}

// Read decodes r based on the extension of name.
func Read(r io.Reader, name string) (*Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, name)
	case ".csv":
		return ReadCSV(r, name)
	default:
		return nil, fmt.Errorf("unsupported file extension %s for %s (xlsx, xlsm and csv supported)", ext, name)
	}
}

// ReadFile opens path and decodes it with Read.
func ReadFile(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, filepath.Base(path))
}
