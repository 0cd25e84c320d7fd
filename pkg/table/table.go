// Package table reads and writes CSV files as streams of models.Row.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/dtnitsch/abstract-enricher/models"
)

var (
	// ErrNoHeader means the input had no header line to take field names from.
	ErrNoHeader = errors.New("input has no header")

	// ErrHeaderWritten is returned by a second WriteHeader call.
	ErrHeaderWritten = errors.New("header already written")

	// ErrNoHeaderWritten is returned by Write before WriteHeader.
	ErrNoHeaderWritten = errors.New("header not written")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader yields rows from CSV input whose first record is the header.
type Reader struct {
	csv    *csv.Reader
	header []string
	line   int
}

// NewReader reads the header immediately. A leading UTF-8 byte-order mark is
// dropped so it does not end up in the first field name.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, ErrNoHeader
	}
	cr.ReuseRecord = true

	return &Reader{csv: cr, header: header, line: 1}, nil
}

// Header returns a copy of the input field names.
func (r *Reader) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Rows returns the remaining records as rows. A malformed record ends the
// sequence with an error.
func (r *Reader) Rows() iter.Seq2[*models.Row, error] {
	return func(yield func(*models.Row, error) bool) {
		for {
			record, err := r.csv.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			r.line++
			if err != nil {
				yield(nil, fmt.Errorf("failed to read record %d: %w", r.line, err))
				return
			}
			if !yield(models.NewRow(r.header, record), nil) {
				return
			}
		}
	}
}

// Writer writes a header once and then rows in header order, flushing each
// row as it is written.
type Writer struct {
	csv    *csv.Writer
	header []string
}

// NewWriter returns a Writer using LF line endings.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = false
	return &Writer{csv: cw}
}

// WriteHeader fixes the output column order. It may be called only once.
func (w *Writer) WriteHeader(fields []string) error {
	if w.header != nil {
		return ErrHeaderWritten
	}
	w.header = make([]string, len(fields))
	copy(w.header, fields)
	return w.writeRecord(w.header)
}

// Write writes row in header order; missing fields are left empty.
func (w *Writer) Write(row *models.Row) error {
	if w.header == nil {
		return ErrNoHeaderWritten
	}
	record := make([]string, len(w.header))
	for i, name := range w.header {
		record[i], _ = row.Get(name)
	}
	return w.writeRecord(record)
}

// Flush flushes buffered output and reports any write error.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

func (w *Writer) writeRecord(record []string) error {
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return w.Flush()
}
