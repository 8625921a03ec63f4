package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Source reads one file format into a RawTable.
type Source interface {
	CanLoad(path string) bool
	Load(r io.Reader) (*RawTable, error)
}

var sources []Source

// Register adds a source implementation to the registry. Later
// registrations do not override earlier ones for the same extension.
func Register(s Source) {
	sources = append(sources, s)
}

// Load reads path with the first registered source that accepts it.
func Load(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	for _, s := range sources {
		if s.CanLoad(path) {
			t, err := s.Load(f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}
			t.Name = filepath.Base(path)
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// ErrUnsupported indicates no registered source accepts the file.
var ErrUnsupported = errors.New("unsupported dataset format")

func init() {
	Register(csvSource{ext: ".csv", comma: ','})
	Register(csvSource{ext: ".tsv", comma: '\t'})
	Register(jsonSource{})
}

type csvSource struct {
	ext   string
	comma rune
}

func (s csvSource) CanLoad(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), s.ext)
}

func (s csvSource) Load(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &RawTable{Header: normalizeHeader(header)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// jsonSource reads an array of flat objects. Array-valued cells keep their
// raw JSON text, which is also valid list-literal syntax.
type jsonSource struct{}

func (jsonSource) CanLoad(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".json")
}

func (jsonSource) Load(r io.Reader) (*RawTable, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(buf.Bytes()) {
		return nil, errors.New("invalid json")
	}
	doc := gjson.ParseBytes(buf.Bytes())
	if !doc.IsArray() {
		return nil, errors.New("expected a json array of objects")
	}
	var records []map[string]string
	keys := map[string]bool{}
	var order []string
	for i, obj := range doc.Array() {
		if !obj.IsObject() {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		rec := map[string]string{}
		obj.ForEach(func(k, v gjson.Result) bool {
			name := strings.ToLower(strings.TrimSpace(k.String()))
			if !keys[name] {
				keys[name] = true
				order = append(order, name)
			}
			switch v.Type {
			case gjson.Null:
				rec[name] = ""
			case gjson.String:
				rec[name] = v.String()
			default:
				rec[name] = v.Raw
			}
			return true
		})
		records = append(records, rec)
	}
	t := &RawTable{Header: columnOrder(order)}
	for _, rec := range records {
		row := make([]string, len(t.Header))
		for i, h := range t.Header {
			row[i] = rec[h]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// columnOrder puts required columns first, then the rest as first seen.
func columnOrder(seen []string) []string {
	rank := map[string]int{}
	for i, c := range Required {
		rank[c] = i
	}
	out := append([]string(nil), seen...)
	sort.SliceStable(out, func(a, b int) bool {
		ra, okA := rank[out[a]]
		rb, okB := rank[out[b]]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		}
		return false
	})
	return out
}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, v := range h {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(v, "\ufeff")))
	}
	return out
}
