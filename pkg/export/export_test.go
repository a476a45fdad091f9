package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Asistencia curso-1",
		Headers: []string{"RUT", "Nombre", "Estado"},
		Rows: []map[string]string{
			{"RUT": "12345678-5", "Nombre": "José Muñoz", "Estado": "APROBADO"},
			{"RUT": "11111111-1", "Nombre": "Ana, Pérez", "Estado": "REPROBADO"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "RUT,Nombre,Estado", lines[0])
	assert.Equal(t, "12345678-5,José Muñoz,APROBADO", lines[1])
	assert.Equal(t, `11111111-1,"Ana, Pérez",REPROBADO`, lines[2])
}

func TestRendererRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestRegistryRendersPDF(t *testing.T) {
	out, err := NewRegistry().Render(FormatPDF, sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewRegistry().Render(Format("xlsx"), sampleDataset())
	assert.Error(t, err)
}
