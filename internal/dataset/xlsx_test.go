package dataset

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWorkbook builds a minimal workbook whose relationship target uses a
// leading slash, as some exporters write it.
func writeWorkbook(t *testing.T, sheet string) string {
	t.Helper()
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <sheets><sheet name="Candles" sheetId="1" r:id="rId7"/></sheets>
</workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships><Relationship Id="rId7" Target="/xl/worksheets/data.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
<sst>
  <si><t>Timestamp</t></si><si><t>Open</t></si><si><t>High</t></si><si><t>Low</t></si>
  <si><t>Close</t></si><si><t>Direction</t></si><si><t>Support</t></si><si><t>Resistance</t></si>
  <si><t>LONG</t></si><si><t>[90, 95]</t></si><si><t>[120]</t></si>
</sst>`,
		"xl/worksheets/data.xml": sheet,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), "candles.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

const sheetXML = `<?xml version="1.0"?>
<worksheet><sheetData>
  <row r="1">
    <c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="s"><v>2</v></c><c r="D1" t="s"><v>3</v></c>
    <c r="E1" t="s"><v>4</v></c><c r="F1" t="s"><v>5</v></c><c r="G1" t="s"><v>6</v></c><c r="H1" t="s"><v>7</v></c>
  </row>
  <row r="2">
    <c r="A2"><v>45292.5</v></c><c r="B2"><v>100</v></c><c r="C2"><v>110</v></c><c r="D2"><v>95</v></c>
    <c r="E2"><v>105</v></c><c r="F2" t="s"><v>8</v></c><c r="G2" t="s"><v>9</v></c><c r="H2" t="s"><v>10</v></c>
  </row>
  <row r="3"></row>
  <row r="4">
    <c r="A4" t="inlineStr"><is><t>2024-01-02 00:00:00</t></is></c><c r="B4"><v>105</v></c><c r="C4"><v>112</v></c>
    <c r="D4"><v>101</v></c><c r="E4"><v>108</v></c><c r="H4" t="inlineStr"><is><t>[]</t></is></c>
  </row>
</sheetData></worksheet>`

func TestLoadXLSX(t *testing.T) {
	raw, err := Load(writeWorkbook(t, sheetXML))
	require.NoError(t, err)
	assert.Equal(t, "candles.xlsx", raw.Name)
	assert.Equal(t, Required, raw.Header)
	require.Len(t, raw.Rows, 2, "blank rows are skipped")
	assert.Equal(t, "2024-01-01T12:00:00Z", raw.Rows[0][0])
	// F4 and G4 are missing; H4 keeps its column
	assert.Equal(t, []string{"2024-01-02 00:00:00", "105", "112", "101", "108", "", "", "[]"}, raw.Rows[1])

	ds, err := Prepare(raw)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), ds.Rows[0].Timestamp)
	assert.Equal(t, Long, ds.Rows[0].Direction)
	assert.Equal(t, Neutral, ds.Rows[1].Direction)
	assert.Equal(t, Levels{90, 95}, ds.Rows[1].Support)
	assert.Equal(t, Levels{120}, ds.Rows[1].Resistance)
}

func TestExcelSerial(t *testing.T) {
	assert.Equal(t, "2024-01-01T00:00:00Z", excelSerial("45292"))
	assert.Equal(t, "1704067200", excelSerial("1704067200"), "unix seconds pass through")
	assert.Equal(t, "2024-01-01", excelSerial("2024-01-01"))
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, columnIndex("A1"))
	assert.Equal(t, 2, columnIndex("c12"))
	assert.Equal(t, 27, columnIndex("AB3"))
	assert.Equal(t, -1, columnIndex("12"))
}
