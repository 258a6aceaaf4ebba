// Package batch runs the brief pipeline over spreadsheet input and writes
// one JSON line per row, in input order.
package batch

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/meetingintel/internal/identity"
)

// Row is one input record. Line is 1-based and counts the header.
type Row struct {
	Line    int              `json:"row"`
	Request identity.Request `json:"-"`
}

// ErrNoIdentityColumns means the header names none of the usable columns.
var ErrNoIdentityColumns = eris.New("batch: header needs email, name and company, or social_url")

// columns maps header names to their index. Unknown headers are ignored.
type columns struct {
	email, name, company, social int
}

var headerAliases = map[string]string{
	"email":         "email",
	"e-mail":        "email",
	"email_address": "email",
	"name":          "name",
	"full_name":     "name",
	"person":        "name",
	"company":       "company",
	"company_name":  "company",
	"organization":  "company",
	"social_url":    "social_url",
	"social":        "social_url",
	"linkedin":      "social_url",
	"profile_url":   "social_url",
}

func parseHeader(header []string) (columns, error) {
	c := columns{email: -1, name: -1, company: -1, social: -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		switch headerAliases[key] {
		case "email":
			c.email = i
		case "name":
			c.name = i
		case "company":
			c.company = i
		case "social_url":
			c.social = i
		}
	}
	if c.email < 0 && c.social < 0 && (c.name < 0 || c.company < 0) {
		return c, ErrNoIdentityColumns
	}
	return c, nil
}

func (c columns) request(record []string) identity.Request {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	return identity.Request{
		Email:     get(c.email),
		Name:      get(c.name),
		Company:   get(c.company),
		SocialURL: get(c.social),
	}
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// rowsFrom turns a header plus records into rows, skipping blank lines.
func rowsFrom(header []string, records [][]string) ([]Row, error) {
	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{Line: i + 2, Request: cols.request(rec)})
	}
	return rows, nil
}

// ReadCSV reads rows from CSV with a header line.
func ReadCSV(ctx context.Context, r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	var header []string
	var records [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "batch: csv read cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "batch: read csv row")
		}
		if header == nil {
			header = record
			continue
		}
		records = append(records, record)
	}
	if header == nil {
		return nil, eris.New("batch: csv is empty")
	}
	return rowsFrom(header, records)
}

// XLSXOptions selects the worksheet to read.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads rows from a worksheet whose first row is the header.
func ReadXLSX(path string, opts XLSXOptions) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open xlsx")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("batch: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	records := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		records = append(records, rowToStrings(row))
	}
	return rowsFrom(header, records)
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("batch: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("batch: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// ReadFile picks the reader by extension: .xlsx, otherwise CSV.
func ReadFile(ctx context.Context, path string) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path, XLSXOptions{})
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open input")
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(ctx, f)
}
