package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
)

// csvTable reads a headed CSV export. Columns are addressed by name, so
// their order in the file does not matter and extra columns are ignored.
type csvTable struct {
	source string
	r      *csv.Reader
	index  map[string]int
	line   int
}

// openCSV checks the encoding, reads the header and requires every column
// in required.
func openCSV(source string, data []byte, required ...string) (*csvTable, error) {
	if !utf8.Valid(data) {
		return nil, perrors.Integrity(source, "", "", "input is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, perrors.Integrity(source, "", "", "empty file")
	}
	if err != nil {
		return nil, perrors.Integrity(source, "header", "", err.Error())
	}

	t := &csvTable{source: source, r: r, index: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		t.index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, perrors.Integrity(source, "header", col, "missing column")
		}
	}
	return t, nil
}

// next returns the following non-blank row and its label ("row N", 1-based
// with the header as row 1). It returns io.EOF after the last row.
func (t *csvTable) next() (row []string, record string, err error) {
	for {
		row, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			return nil, "", io.EOF
		}
		t.line++
		record = "row " + strconv.Itoa(t.line)
		if err != nil {
			return nil, "", perrors.Integrity(t.source, record, "", err.Error())
		}
		if !isBlank(row) {
			return row, record, nil
		}
	}
}

// get returns the trimmed cell of column col, or "" when the column is
// absent or the row is short.
func (t *csvTable) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
