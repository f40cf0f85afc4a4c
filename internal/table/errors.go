package table

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for files with no header and no rows.
	ErrEmptyInput = errors.New("empty input")
	// ErrEncoding is returned for delimited text that is not valid UTF-8.
	ErrEncoding = errors.New("unsupported encoding: input is not valid UTF-8")
	// ErrInputTooLarge is returned when input exceeds LoadOptions.MaxBytes.
	ErrInputTooLarge = errors.New("input exceeds size limit")
)

// ParseError reports a file that could not be turned into a table.
// No partial table accompanies it.
type ParseError struct {
	Source string // file name, if known
	Line   int    // 1-based record number, 0 when not tied to a record
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (record %d)", e.Line)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned before any parsing when a file's
// extension is not a supported format.
type UnsupportedFormatError struct {
	Name string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported format for %q: missing file extension (use .csv or .xlsx)", e.Name)
	}
	return fmt.Sprintf("unsupported format %q for %q (use .csv or .xlsx)", e.Ext, e.Name)
}
