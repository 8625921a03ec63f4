package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// xlsxSource reads the first worksheet of an Excel workbook. The first row is
// the header. Excel date serials in the timestamp column become RFC3339.
type xlsxSource struct{}

func init() { Register(xlsxSource{}) }

func (xlsxSource) CanLoad(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".xlsx")
}

func (xlsxSource) Load(r io.Reader) (*RawTable, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	target := firstSheetPath(zipEntry(zr, "xl/workbook.xml"), zipEntry(zr, "xl/_rels/workbook.xml.rels"))
	sheet := zipEntry(zr, target)
	if sheet == nil {
		return nil, fmt.Errorf("worksheet %s not found", target)
	}
	rows := newCellReader(sheet, sharedStrings(zipEntry(zr, "xl/sharedStrings.xml")))

	header, ok := rows.Next()
	if !ok {
		return nil, errors.New("empty workbook")
	}
	t := &RawTable{Header: normalizeHeader(header)}
	tsCol := -1
	for i, h := range t.Header {
		if h == "timestamp" {
			tsCol = i
		}
	}
	for {
		rec, ok := rows.Next()
		if !ok {
			break
		}
		if blankRow(rec) {
			continue
		}
		if tsCol >= 0 && tsCol < len(rec) {
			rec[tsCol] = excelSerial(rec[tsCol])
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// excelSerial converts a day serial such as 45292.5 to RFC3339. Values that
// are not serials (text dates, unix seconds) pass through.
func excelSerial(v string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 || f >= 1e6 {
		return v
	}
	d := time.Duration(f * float64(24*time.Hour)).Round(time.Second)
	return excelEpoch.Add(d).Format(time.RFC3339)
}

func zipEntry(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		return b
	}
	return nil
}

// firstSheetPath resolves the first <sheet> of the workbook through its
// relationship id, falling back to the conventional sheet1.xml.
func firstSheetPath(workbook, rels []byte) string {
	const fallback = "xl/worksheets/sheet1.xml"
	var rid string
	walkXML(workbook, func(se xml.StartElement) bool {
		if se.Name.Local != "sheet" {
			return true
		}
		rid = attr(se, "id")
		return false
	})
	if rid == "" {
		return fallback
	}
	target := ""
	walkXML(rels, func(se xml.StartElement) bool {
		if se.Name.Local == "Relationship" && attr(se, "Id") == rid {
			target = attr(se, "Target")
			return false
		}
		return true
	})
	if target == "" {
		return fallback
	}
	// targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

// walkXML calls fn for each start element until fn returns false.
func walkXML(data []byte, fn func(xml.StartElement) bool) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok && !fn(se) {
			return
		}
	}
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func sharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out []string
		buf strings.Builder
		inT bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// cellReader streams worksheet rows as text cells, placing each cell by its
// A1 reference so sparse rows keep their columns.
type cellReader struct {
	dec    *xml.Decoder
	shared []string
}

func newCellReader(data []byte, shared []string) *cellReader {
	return &cellReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

func (r *cellReader) Next() ([]string, bool) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow, row = true, nil
			case inRow && se.Name.Local == "c":
				col := columnIndex(attr(se, "r"))
				if col < 0 {
					col = len(row)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cellValue(attr(se, "t"))
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				return row, true
			}
		}
	}
}

// cellValue reads up to </c>, taking <v> or inline <t> text.
func (r *cellReader) cellValue(typ string) string {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, err := r.dec.Token()
					if err != nil {
						break
					}
					if ed, ok := tk.(xml.EndElement); ok && ed.Name.Local == se.Name.Local {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				val = sb.String()
			}
		case xml.EndElement:
			if se.Name.Local != "c" {
				continue
			}
			if typ == "s" {
				idx, err := strconv.Atoi(strings.TrimSpace(val))
				if err != nil || idx < 0 || idx >= len(r.shared) {
					return ""
				}
				return r.shared[idx]
			}
			return val
		}
	}
}

// columnIndex maps "C12" to 2; -1 when ref has no column letters.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
