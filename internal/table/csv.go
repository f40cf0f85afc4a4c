package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type csvReader struct{}

func (csvReader) CanRead(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

func (csvReader) Read(data []byte, opt LoadOptions) (*Table, error) {
	return DecodeCSV(data, opt.Delimiter)
}

// DecodeCSV parses UTF-8 delimited text whose first record is the header.
// A zero delimiter means comma.
func DecodeCSV(data []byte, delim rune) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: ErrEmptyInput}
	}
	if !utf8.Valid(data) {
		return nil, &ParseError{Err: ErrEncoding}
	}
	if delim == 0 {
		delim = ','
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: ErrEmptyInput}
		}
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Line: len(records) + 2, Err: err}
		}
		if len(rec) > len(header) {
			return nil, &ParseError{
				Line: len(records) + 2,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(header), len(rec)),
			}
		}
		records = append(records, rec)
	}
	t, err := FromRecords(header, records)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return t, nil
}

// WriteCSV encodes t as comma-separated UTF-8 text: a header row of column
// names, then each row in canonical text form.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := 0; j < t.NumCols(); j++ {
			rec[j] = t.Column(j).At(i).String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
