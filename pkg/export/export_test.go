package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Table{
		Headers: []string{"no", "title"},
		Rows:    [][]string{{"1", "어린왕자"}, {"2"}},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "no,title\n1,어린왕자\n2,\n", string(out[len(utf8BOM):]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := (&CSVExporter{}).Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter("")
	exporter.Widths = []float64{1, 3}

	out, err := exporter.Render(Table{Headers: []string{"no", "title"}, Rows: [][]string{{"1", "Dune"}, {"2", "어린왕자"}}}, "Reading log")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterMissingFont(t *testing.T) {
	_, err := NewPDFExporter("/nonexistent/font.ttf").Render(Table{Headers: []string{"no"}}, "")
	assert.Error(t, err)
}

func TestLatinOnly(t *testing.T) {
	assert.Equal(t, "Dune ??", latinOnly("Dune 모래"))
}
