package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/bookkeeper/modules/imports/domain/aggregates/importjob"
)

const utf8BOM = "\ufeff"

// Row is one input record keyed by header cell or JSON property.
type Row map[string]any

// DetectSource picks the source from the file extension, falling back to content sniffing.
func DetectSource(filename string, data []byte) (importjob.Source, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return importjob.SourceCSV, nil
	case ".json":
		return importjob.SourceJSON, nil
	case ".xlsx":
		return importjob.SourceXLSX, nil
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/json"):
		return importjob.SourceJSON, nil
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return importjob.SourceXLSX, nil
	case mt.Is("text/csv"), mt.Is("text/plain"):
		return importjob.SourceCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, mt.String())
}

// ParseRows splits content into rows. For CSV and XLSX the first skipRows lines are dropped
// before the header row is read; for CSV this happens on the raw text, ahead of the CSV reader.
func ParseRows(source importjob.Source, content string, skipRows int) ([]Row, error) {
	switch source {
	case importjob.SourceCSV:
		return parseCSV(content, skipRows)
	case importjob.SourceJSON:
		return parseJSON(content)
	case importjob.SourceXLSX:
		return parseXLSX(content, skipRows)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
}

// skipLines drops the first n lines of text. Lines end at "\n"; a trailing "\r" goes with them.
func skipLines(text string, n int) string {
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	return text
}

func parseCSV(content string, skipRows int) ([]Row, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	content = skipLines(content, skipRows)
	if strings.TrimSpace(content) == "" {
		return []Row{}, nil
	}

	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if row := recordToRow(header, rec); row != nil {
			rows = append(rows, row)
		}
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

func parseJSON(content string) ([]Row, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	if strings.TrimSpace(content) == "" {
		return []Row{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode json rows: %w", err)
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func parseXLSX(content string, skipRows int) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader([]byte(content)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []Row{}, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if skipRows >= len(records) {
		return []Row{}, nil
	}
	records = records[skipRows:]
	header := normalizeHeader(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if row := recordToRow(header, rec); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		out[i] = strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))
	}
	return out
}

// recordToRow returns nil for records whose cells are all blank.
func recordToRow(header, rec []string) Row {
	row := make(Row, len(header))
	blank := true
	for i, name := range header {
		if name == "" {
			continue
		}
		v := ""
		if i < len(rec) {
			v = strings.TrimSpace(rec[i])
		}
		if v != "" {
			blank = false
		}
		row[name] = v
	}
	if blank {
		return nil
	}
	return row
}

// cellString renders a row value as text. JSON numbers keep their literal form.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
