package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kozaktomas/attendance-dashboard/internal/backend"
)

// Format is an export file format.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrNoData is returned when the export query matched nothing.
var ErrNoData = errors.New("no data to export")

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTXT:
		return FormatTXT, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Extension is the file extension written for the format. xlsx exports are
// tab-separated text that spreadsheet apps open as .xls.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return "xls"
	}
	return string(f)
}

// MIMEType is the Content-Type of the exported file.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return "text/csv;charset=utf-8"
	case FormatXLSX:
		return "application/vnd.ms-excel"
	}
	return "text/plain;charset=utf-8"
}

// Delimiter separates columns: comma for csv, tab otherwise.
func (f Format) Delimiter() string {
	if f == FormatCSV {
		return ","
	}
	return "\t"
}

// Filename is the download name for an export of date.
func Filename(date string, f Format) string {
	return fmt.Sprintf("attendance_export_%s.%s", date, f.Extension())
}

// Render converts a JSON array of export rows into a delimited file.
// Columns follow the key order of the first row. Every value is quoted with
// embedded quotes doubled, missing and null values become N/A, and every
// line ends in CRLF.
func Render(rows []byte, f Format) ([]byte, error) {
	if !gjson.ValidBytes(rows) {
		return nil, errors.New("export rows are not valid JSON")
	}
	parsed := gjson.ParseBytes(rows)
	if !parsed.IsArray() {
		return nil, errors.New("export rows must be a JSON array")
	}
	items := parsed.Array()
	if len(items) == 0 {
		return nil, ErrNoData
	}
	if !items[0].IsObject() {
		return nil, errors.New("export rows must be JSON objects")
	}

	var headers []string
	items[0].ForEach(func(key, _ gjson.Result) bool {
		headers = append(headers, key.String())
		return true
	})

	sep := f.Delimiter()
	var buf bytes.Buffer
	buf.WriteString(strings.Join(headers, sep))
	buf.WriteString("\r\n")

	values := make([]string, len(headers))
	for _, item := range items {
		fields := make(map[string]gjson.Result, len(headers))
		item.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value
			return true
		})
		for i, h := range headers {
			values[i] = quote(cellText(fields[h]))
		}
		buf.WriteString(strings.Join(values, sep))
		buf.WriteString("\r\n")
	}
	return buf.Bytes(), nil
}

func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		// also covers keys missing from a row
		return "N/A"
	case gjson.String:
		return v.Str
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	}
	return v.Raw
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// File is a rendered export ready for download.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
	Rows     int
}

// ExportBackend returns raw export rows.
type ExportBackend interface {
	ExportRows(ctx context.Context, q backend.LogsQuery) ([]byte, error)
}

// Export fetches the rows of date (optionally one subject) and renders them.
func Export(ctx context.Context, b ExportBackend, date string, subjectID int, f Format) (*File, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	raw, err := b.ExportRows(ctx, backend.LogsQuery{StartDate: date, EndDate: date, SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	data, err := Render(raw, f)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:     Filename(date, f),
		MIMEType: f.MIMEType(),
		Data:     data,
		Rows:     int(gjson.GetBytes(raw, "#").Int()),
	}, nil
}
