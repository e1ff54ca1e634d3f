package interchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"envsync/core/coerce"
	"envsync/core/utils"

	"github.com/klauspost/compress/zstd"
)

// Writer serializes the rows of one table.
type Writer struct {
	csv     *csv.Writer
	closers []io.Closer
	columns int
	rows    int
}

func newWriter(w io.WriteCloser, compressed bool) (*Writer, error) {
	closers := []io.Closer{w}
	var out io.Writer = w
	if compressed {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		out = enc
		closers = append([]io.Closer{enc}, closers...)
	}
	return &Writer{csv: csv.NewWriter(out), closers: closers}, nil
}

// WriteHeader writes the column names. It must be called once, first.
func (w *Writer) WriteHeader(columns []string) error {
	w.columns = len(columns)
	return w.csv.Write(columns)
}

// Write appends one row. Nil values are written as empty fields.
func (w *Writer) Write(values []any) error {
	if len(values) != w.columns {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), w.columns)
	}
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = utils.ToString(v)
	}
	if err := w.csv.Write(record); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes buffered rows and closes the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Reader yields the rows of one interchange file. Fields are returned as
// strings, or coerce.Missing for empty fields and null tokens.
type Reader struct {
	csv     *csv.Reader
	columns []string
	nulls   map[string]struct{}
	closers []io.Closer
	line    int
}

func newReader(r io.ReadCloser, compressed bool, nulls map[string]struct{}) (*Reader, error) {
	closers := []io.Closer{r}
	var in io.Reader = r
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		in = dec
		closers = append([]io.Closer{decoderCloser{dec}}, closers...)
	}

	cr := csv.NewReader(in)
	header, err := cr.Read()
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("interchange file has no header")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	return &Reader{csv: cr, columns: header, nulls: nulls, closers: closers, line: 1}, nil
}

// Columns returns the header of the file.
func (r *Reader) Columns() []string {
	return r.columns
}

// Next returns the next row or io.EOF after the last one.
func (r *Reader) Next() ([]any, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	r.line++

	values := make([]any, len(record))
	for i, field := range record {
		if r.isNull(field) {
			values[i] = coerce.Missing
			continue
		}
		values[i] = field
	}
	return values, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	var err error
	for _, c := range r.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Reader) isNull(field string) bool {
	if field == "" {
		return true
	}
	_, ok := r.nulls[field]
	return ok
}

type decoderCloser struct {
	dec *zstd.Decoder
}

func (d decoderCloser) Close() error {
	d.dec.Close()
	return nil
}
