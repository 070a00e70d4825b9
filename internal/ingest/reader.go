package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 marks a record holding bytes that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8 in record")

// Row is one physical record of a catalog export. Err is set when the record
// could not be decoded; Fields is then unreliable and must not be classified.
type Row struct {
	Line   int
	Fields []string
	Err    error
}

// Reader is a forward-only reader over comma separated catalog exports.
// Records may have any number of fields and no header row is assumed.
type Reader struct {
	csv     *csv.Reader
	started bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return &Reader{csv: cr}
}

// Next returns the next row, or io.EOF once the input is exhausted. Records that
// fail to decode come back as rows with Err set so the caller can skip them and
// keep reading; only I/O failures are returned as errors.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return Row{Line: parseErr.StartLine, Err: fmt.Errorf("decode record: %w", parseErr.Err)}, nil
		}
		return Row{}, err
	}

	line, _ := r.csv.FieldPos(0)
	if !r.started {
		r.started = true
		if len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
	}

	for i, field := range record {
		if !utf8.ValidString(field) {
			return Row{Line: line, Err: fmt.Errorf("field %d: %w", i, ErrInvalidUTF8)}, nil
		}
	}
	return Row{Line: line, Fields: record}, nil
}
