// Package importer reads spreadsheet rows and upserts them one by one,
// collecting a per-row outcome instead of failing the whole batch.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Format is the file format of an upload
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("only CSV and XLSX files are supported")
	ErrParse             = errors.New("unable to parse file")
)

// Row is one data line of an upload. Number is the spreadsheet line, so the
// first data row is 2.
type Row struct {
	Number int
	Values map[string]string
}

// DetectFormat picks the format from the file extension
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ReadRows parses an uploaded file. A file with only a header yields no rows.
func ReadRows(filename string, r io.Reader) ([]Row, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return readXLSX(r)
	}
	return readCSV(r)
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrParse, err)
	}
	headers = normalizeHeaders(headers)

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: error reading line %d: %v", ErrParse, line, err)
		}
		if row, ok := buildRow(line, headers, record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found in Excel file", ErrParse)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrParse)
	}
	headers := normalizeHeaders(records[0])

	var rows []Row
	for i, record := range records[1:] {
		if row, ok := buildRow(i+2, headers, record); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// buildRow maps a record onto the headers. Blank lines are skipped.
func buildRow(line int, headers, record []string) (Row, bool) {
	row := Row{Number: line, Values: make(map[string]string, len(headers))}
	blank := true
	for i, value := range record {
		if i >= len(headers) || headers[i] == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" {
			blank = false
		}
		row.Values[headers[i]] = value
	}
	return row, !blank
}

// normalizeHeaders lowercases headers, drops the required marker and turns
// spaces into underscores, so "Contact Email *" becomes "contact_email".
func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimSpace(strings.TrimSuffix(h, "*"))
		out[i] = strings.Join(strings.Fields(h), "_")
	}
	return out
}

// Get returns the trimmed value of a column, or "" when absent
func (r Row) Get(column string) string {
	return r.Values[column]
}

// Has reports whether the column is present in the file, even if blank
func (r Row) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}

// Optional returns nil for a blank column
func (r Row) Optional(column string) *string {
	v := r.Get(column)
	if v == "" {
		return nil
	}
	return &v
}

// Require fails when any of the columns is blank
func (r Row) Require(columns ...string) error {
	for _, col := range columns {
		if r.Get(col) == "" {
			return fmt.Errorf("%s can't be blank", Humanize(col))
		}
	}
	return nil
}

// Bool parses yes/no style flags. Blank yields nil.
func (r Row) Bool(column string) (*bool, error) {
	v := strings.ToLower(r.Get(column))
	var b bool
	switch v {
	case "":
		return nil, nil
	case "true", "t", "1", "yes", "y":
		b = true
	case "false", "f", "0", "no", "n":
		b = false
	default:
		return nil, fmt.Errorf("%s must be true or false", Humanize(column))
	}
	return &b, nil
}

// Decimal parses a non-negative amount. Blank yields nil.
func (r Row) Decimal(column string) (*decimal.Decimal, error) {
	v := r.Get(column)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid number", Humanize(column))
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%s must be greater than or equal to 0", Humanize(column))
	}
	return &d, nil
}

// Int parses a non-negative integer. Blank yields nil.
func (r Row) Int(column string) (*int, error) {
	v := r.Get(column)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a whole number", Humanize(column))
	}
	if n < 0 {
		return nil, fmt.Errorf("%s must be greater than or equal to 0", Humanize(column))
	}
	return &n, nil
}

// List splits a column on "|" or ",", trimming and dropping blanks
func (r Row) List(column string) []string {
	v := r.Get(column)
	if v == "" {
		return nil
	}
	sep := ","
	if strings.Contains(v, "|") {
		sep = "|"
	}
	var out []string
	for _, part := range strings.Split(v, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Humanize turns a column name into a label, "contact_email" -> "Contact email"
func Humanize(column string) string {
	s := strings.ReplaceAll(column, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
