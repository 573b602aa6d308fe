package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Dataset{
		Headers: []string{"action", "message"},
		Rows: []map[string]string{
			{"action": "SUBMITTED", "message": "Submitted enlistment for 2026-2027 First."},
			{"action": "ENROLLED", "message": "Enrollment confirmed by finance."},
		},
	})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "action,message", string(bytes.TrimSpace(lines[0])))
	assert.Contains(t, string(lines[1]), "SUBMITTED")
	assert.Contains(t, string(lines[2]), "Enrollment confirmed by finance.")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFReceiptRender(t *testing.T) {
	exporter := NewPDFExporter()
	out, err := exporter.RenderReceipt("Payment Receipt", []KeyValue{
		{Label: "Student", Value: "Juan Dela Cruz"},
		{Label: "Tuition fee due", Value: "2000.00"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = exporter.RenderReceipt("", nil)
	require.Error(t, err)
}

func TestPDFTableRender(t *testing.T) {
	exporter := NewPDFExporter()
	out, err := exporter.RenderTable(Dataset{
		Headers: []string{"code", "title"},
		Rows:    []map[string]string{{"code": "MATH1", "title": "Algebra"}},
	}, "Subjects")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
