// Package table reads and writes Shopify translation exports as CSV.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZaguanLabs/shoptl"
)

// DefaultOutputName is the suggested file name for a translated export.
const DefaultOutputName = "translated_products_shopify.csv"

// RequiredColumns must be present in the header of every export.
var RequiredColumns = []string{
	shoptl.ColumnID,
	shoptl.ColumnField,
	shoptl.ColumnLocale,
	shoptl.ColumnDefault,
}

// Table is a parsed export.
type Table struct {
	Header []string     // Output header; includes the translated column
	Rows   []shoptl.Row // Records in file order

	width         int // Number of columns in the input
	translatedCol int // Index of the translated column in Header
}

// Read parses an export. Every cell is kept as text, so identifiers never
// lose precision. An existing translated column is cleared; otherwise one is
// appended to the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &shoptl.InputError{Message: "file is empty"}
	}
	if err != nil {
		return nil, &shoptl.InputError{Message: "failed to read header", Cause: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &shoptl.InputError{
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	t := &Table{
		Header: append([]string(nil), header...),
		width:  len(header),
	}
	if idx, ok := cols[shoptl.ColumnTranslated]; ok {
		t.translatedCol = idx
	} else {
		t.translatedCol = len(header)
		t.Header = append(t.Header, shoptl.ColumnTranslated)
	}

	idCol, fieldCol := cols[shoptl.ColumnID], cols[shoptl.ColumnField]
	localeCol, defaultCol := cols[shoptl.ColumnLocale], cols[shoptl.ColumnDefault]

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &shoptl.InputError{Message: fmt.Sprintf("failed to read record %d", line), Cause: err}
		}

		t.Rows = append(t.Rows, shoptl.Row{
			ID:      record[idCol],
			Field:   record[fieldCol],
			Locale:  record[localeCol],
			Default: record[defaultCol],
			Cells:   record,
		})
	}

	return t, nil
}

// Write encodes rows as CSV under the table's header. The translated column
// holds each row's translation, or is empty when the row was not translated.
func (t *Table) Write(w io.Writer, rows []shoptl.Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, len(t.Header))
		copy(record, row.Cells)
		if row.HasTranslation {
			record[t.translatedCol] = row.Translated
		} else {
			record[t.translatedCol] = ""
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing record %s: %w", row.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Width returns the number of columns in the input file.
func (t *Table) Width() int {
	return t.width
}
