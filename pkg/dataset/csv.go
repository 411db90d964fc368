// Package dataset reads and writes the tabular datasets the batch runner
// patches: a header row followed by one record per fragment.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// Dataset is a fully loaded table with one selected text column
type Dataset struct {
	Header []string
	Rows   [][]string
	column int
}

// Read loads path and selects column as the fragment source. A missing file,
// a malformed record or an absent column are dataset errors.
func Read(path, column string) (*Dataset, error) {
	// #nosec G304 - dataset path is chosen by the user
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError(path, err)
	}
	defer func() { _ = file.Close() }()

	d, err := Parse(file, column)
	if err != nil {
		return nil, errors.DatasetError(path, err)
	}
	return d, nil
}

// Parse reads a CSV stream. Every record must have as many fields as the header.
func Parse(r io.Reader, column string) (*Dataset, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset has no header row")
	}

	d := &Dataset{Header: records[0], Rows: records[1:], column: -1}
	d.column = d.index(column)
	if d.column < 0 {
		return nil, fmt.Errorf("column %q not found in header %v", column, d.Header)
	}
	return d, nil
}

func (d *Dataset) index(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Len is the number of data rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Column returns the name of the selected text column
func (d *Dataset) Column() string {
	return d.Header[d.column]
}

// Fragments returns the selected column as fragments. Row is the zero-based
// data row index.
func (d *Dataset) Fragments() []types.Fragment {
	fragments := make([]types.Fragment, len(d.Rows))
	for i, row := range d.Rows {
		fragments[i] = types.Fragment{Row: i, Text: row[d.column]}
	}
	return fragments
}

// SetColumn writes values into the named column, appending the column when
// the header does not have it yet
func (d *Dataset) SetColumn(name string, values []string) error {
	if len(values) != len(d.Rows) {
		return errors.ValidationError(fmt.Sprintf("column %q has %d values for %d rows", name, len(values), len(d.Rows)))
	}

	idx := d.index(name)
	if idx < 0 {
		d.Header = append(d.Header, name)
		for i := range d.Rows {
			d.Rows[i] = append(d.Rows[i], values[i])
		}
		return nil
	}

	for i := range d.Rows {
		d.Rows[i][idx] = values[i]
	}
	return nil
}

// Encode writes the header and every row as CSV
func (d *Dataset) Encode(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(d.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(d.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// Write stores the dataset at path. The file is written next to its target and
// renamed into place, so a failed run leaves no partial output.
func (d *Dataset) Write(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".secpatch-*.csv")
	if err != nil {
		return errors.FileSystemError("create", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := d.Encode(tmp); err != nil {
		_ = tmp.Close()
		return errors.DatasetError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.FileSystemError("close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.FileSystemError("rename", path, err)
	}
	return nil
}
