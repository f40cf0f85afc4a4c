package table

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName selects a format by file extension only.
func FormatFromName(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", &UnsupportedFormatError{Name: filepath.Base(name), Ext: ext}
}

// LoadOptions controls how files are decoded.
type LoadOptions struct {
	// Delimiter for CSV. If 0, comma.
	Delimiter rune
	// SheetName selects an XLSX sheet by name (case-insensitive).
	SheetName string
	// SheetIndex is the 1-based XLSX sheet used when SheetName is empty.
	SheetIndex int
	// MaxBytes caps the input size; 0 means unlimited.
	MaxBytes int64
}

// DefaultLoadOptions returns comma-delimited, first-sheet, 100 MiB options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Delimiter: ',', SheetIndex: 1, MaxBytes: 100 << 20}
}

// Reader decodes one file format into a table.
type Reader interface {
	CanRead(name string) bool
	Read(data []byte, opt LoadOptions) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// Load reads r fully and decodes it with the reader registered for name's
// extension. Unsupported extensions fail before anything is read.
func Load(name string, r io.Reader, opt LoadOptions) (*Table, error) {
	if _, err := FormatFromName(name); err != nil {
		return nil, err
	}
	var rd Reader
	for _, cand := range registry {
		if cand.CanRead(name) {
			rd = cand
			break
		}
	}
	if rd == nil {
		return nil, &UnsupportedFormatError{Name: filepath.Base(name), Ext: strings.ToLower(filepath.Ext(name))}
	}
	data, err := readLimited(r, opt.MaxBytes)
	if err != nil {
		return nil, withSource(err, name)
	}
	t, err := rd.Read(data, opt)
	if err != nil {
		return nil, withSource(err, name)
	}
	return t, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, opt LoadOptions) (*Table, error) {
	if _, err := FormatFromName(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Load(path, f, opt)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("read input: %w", err)}
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read input: %w", err)}
	}
	if int64(len(data)) > max {
		return nil, &ParseError{Err: fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, max)}
	}
	return data, nil
}

func withSource(err error, name string) error {
	if pe, ok := err.(*ParseError); ok {
		if pe.Source == "" {
			pe.Source = filepath.Base(name)
		}
		return pe
	}
	return &ParseError{Source: filepath.Base(name), Err: err}
}
