package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}

func (xlsxReader) Read(data []byte, opt LoadOptions) (*Table, error) {
	return DecodeXLSX(data, opt.SheetName, opt.SheetIndex)
}

// DecodeXLSX parses a workbook and builds a table from one sheet, using its
// first row as the header. If sheetName is empty, sheetIndex (1-based)
// selects the sheet; values <= 0 mean the first sheet.
func DecodeXLSX(data []byte, sheetName string, sheetIndex int) (*Table, error) {
	if len(data) == 0 {
		return nil, &ParseError{Err: ErrEmptyInput}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	workbookXML, err := readZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if workbookXML == nil {
		return nil, &ParseError{Err: errors.New("not a workbook: xl/workbook.xml missing")}
	}
	relsXML, err := readZipFile(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	sharedXML, err := readZipFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	sheets, err := parseWorkbook(workbookXML)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	rels, err := parseRelationships(relsXML)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	target, err := resolveSheet(sheets, rels, sheetName, sheetIndex)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	sheetXML, err := readZipFile(zr, target)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if sheetXML == nil {
		return nil, &ParseError{Err: fmt.Errorf("worksheet %s missing from workbook", target)}
	}
	shared, err := parseSharedStrings(sharedXML)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	rr := newSheetRowReader(sheetXML, shared)
	header, err := rr.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: ErrEmptyInput}
		}
		return nil, &ParseError{Line: 1, Err: err}
	}
	var records [][]string
	width := len(header)
	for {
		row, err := rr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Line: len(records) + 2, Err: err}
		}
		if len(row) > width {
			width = len(row)
		}
		records = append(records, row)
	}
	// Cells to the right of the header get unnamed columns.
	if width > len(header) {
		tmp := make([]string, width)
		copy(tmp, header)
		header = tmp
	}
	t, err := FromRecords(header, records)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return t, nil
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

func resolveSheet(sheets []wbSheet, rels map[string]string, sheetName string, sheetIndex int) (string, error) {
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, sheetName) {
				if rel, ok := rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
				break
			}
		}
		available := make([]string, len(sheets))
		for i, s := range sheets {
			available[i] = s.Name
		}
		return "", fmt.Errorf("sheet '%s' not found; available sheets: %s", sheetName, strings.Join(available, ", "))
	}
	idx := sheetIndex
	if idx <= 0 {
		idx = 1
	}
	// Position in the workbook wins; sheetId only when position is out of range.
	var rid string
	if idx <= len(sheets) {
		rid = sheets[idx-1].RID
	} else {
		for _, s := range sheets {
			if s.SheetID == idx {
				rid = s.RID
				break
			}
		}
	}
	if rel, ok := rels[rid]; ok && rid != "" {
		return normalizeRelPath(rel), nil
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

// parseWorkbook extracts sheet entries with names and relationship ids.
func parseWorkbook(data []byte) ([]wbSheet, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []wbSheet
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse workbook: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		var s wbSheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
			case "sheetId":
				s.SheetID = atoiSafe(a.Value)
			case "id":
				s.RID = a.Value // in r: namespace
			}
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

// parseRelationships returns map[r:id]Target.
func parseRelationships(data []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(data) == 0 {
		return out, nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse relationships: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	}
	return out, nil
}

// readZipFile returns nil, nil when the entry does not exist.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, nil
}

// parseSharedStrings concatenates the text runs of each <si>, skipping
// phonetic (<rPh>) runs.
func parseSharedStrings(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT, inPhonetic bool
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			case "rPh":
				inPhonetic = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				inPhonetic = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT && !inPhonetic {
				buf.Write(se)
			}
		}
	}
	return out, nil
}

// sheetRowReader streams rows out of a worksheet. Next returns io.EOF after
// the last row.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

func (r *sheetRowReader) Next() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("parse worksheet: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow = true
				row = nil
				continue
			}
			if !inRow || se.Name.Local != "c" {
				continue
			}
			var rAttr, tAttr string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "r":
					rAttr = a.Value
				case "t":
					tAttr = a.Value
				}
			}
			colIdx := len(row)
			if rAttr != "" {
				idx, err := colIndexFromRef(rAttr)
				if err != nil {
					return nil, err
				}
				if idx >= 0 {
					colIdx = idx
				}
			}
			if colIdx >= maxXLSXColumns {
				return nil, fmt.Errorf("row has more than %d cells", maxXLSXColumns)
			}
			val, err := r.readCellValue(tAttr)
			if err != nil {
				return nil, err
			}
			if len(row) <= colIdx {
				tmp := make([]string, colIdx+1)
				copy(tmp, row)
				row = tmp
			}
			row[colIdx] = val
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return row, nil
			}
		}
	}
}

// readCellValue consumes tokens up to the closing </c> and resolves the cell
// text according to its type attribute.
func (r *sheetRowReader) readCellValue(tAttr string) (string, error) {
	var v, inline strings.Builder
	var inV, inT bool
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", fmt.Errorf("parse cell: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "v":
				inV = true
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "v":
				inV = false
			case "t":
				inT = false
			case "c":
				return r.resolve(tAttr, v.String(), inline.String()), nil
			}
		case xml.CharData:
			if inV {
				v.Write(se)
			} else if inT {
				inline.Write(se)
			}
		}
	}
}

func (r *sheetRowReader) resolve(tAttr, v, inline string) string {
	switch tAttr {
	case "s": // shared string
		idx := atoiSafe(v)
		if idx >= 0 && idx < len(r.shared) {
			return r.shared[idx]
		}
		return ""
	case "inlineStr":
		return inline
	case "b":
		if strings.TrimSpace(v) == "1" {
			return "true"
		}
		return "false"
	case "e": // #DIV/0!, #N/A, ...
		return ""
	}
	return v
}

// maxXLSXColumns is the SpreadsheetML column limit (A..XFD).
const maxXLSXColumns = 16384

// colIndexFromRef maps refs like "C12" to 2 (0-based). It returns -1 when the
// ref has no column letters and an error when the column lies past XFD.
func colIndexFromRef(ref string) (int, error) {
	i := 0
	for i < len(ref) {
		c := ref[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			i++
			continue
		}
		break
	}
	s := strings.ToUpper(ref[:i])
	idx := 0
	for j := 0; j < len(s); j++ {
		idx = idx*26 + int(s[j]-'A'+1)
		if idx > maxXLSXColumns {
			return 0, fmt.Errorf("cell ref %q is beyond column XFD", ref)
		}
	}
	return idx - 1, nil
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") but ZIP entries
// never carry the leading slash.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
