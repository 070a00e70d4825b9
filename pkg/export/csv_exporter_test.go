package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"line", "reason"},
		Rows:    [][]string{{"3", "too_few_fields"}, {"7", "has,comma"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "line,reason\n3,too_few_fields\n7,\"has,comma\"\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
