package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDataCollectsRows(t *testing.T) {
	table := NewTableData("Name", "Bytes")
	assert.Empty(t, table.Rows())

	table.AddRow("a.txt", "3")
	table.AddRow("b.bin", "65536")

	require.Len(t, table.Rows(), 2)
	assert.Equal(t, []string{"Name", "Bytes"}, table.Headers())
	assert.Equal(t, []string{"b.bin", "65536"}, table.Rows()[1])
}

func TestPrintTableIsBorderless(t *testing.T) {
	table := NewTableData("Name", "Modified")
	table.AddRow("report.pdf", "2024-03-01 10:00:00")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2, "header and one row, no separators")
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "report.pdf"))
	assert.NotContains(t, buf.String(), "|")
	assert.NotContains(t, buf.String(), "+")
}
