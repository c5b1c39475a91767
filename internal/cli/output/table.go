package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// TableRenderer is implemented by types that can render themselves as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a borderless, left-aligned table.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data.Rows())

	table.Render()
	return nil
}

// TableData is an ad-hoc TableRenderer.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData creates a new TableData with the given headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers, rows: make([][]string, 0)}
}

// AddRow adds a row to the table.
func (t *TableData) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Headers implements TableRenderer.
func (t *TableData) Headers() []string { return t.headers }

// Rows implements TableRenderer.
func (t *TableData) Rows() [][]string { return t.rows }

// Flatten renders v as KEY/VALUE rows with dotted keys, following its YAML
// field names. Keys are sorted. A value that cannot be encoded yields a
// single error row.
func Flatten(v any) *TableData {
	table := NewTableData("Key", "Value")

	raw, err := yaml.Marshal(v)
	if err != nil {
		table.AddRow("error", err.Error())
		return table
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		table.AddRow("error", err.Error())
		return table
	}

	flat := make(map[string]string)
	flattenInto(flat, "", tree)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		table.AddRow(k, flat[k])
	}
	return table
}

func flattenInto(dst map[string]string, prefix string, v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenInto(dst, key, child)
		}
	case nil:
		dst[prefix] = ""
	default:
		dst[prefix] = fmt.Sprint(node)
	}
}
