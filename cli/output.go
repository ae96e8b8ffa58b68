package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/fetchql/fetchql/engine"
	"github.com/fetchql/fetchql/types"
)

// printResult renders one statement result in the selected format
func printResult(w io.Writer, result *engine.Result, format string) error {
	switch format {
	case "json":
		return printJSON(w, result)
	case "table", "":
		printTable(w, result)
		return nil
	}

	return fmt.Errorf("unknown output format %q", format)
}

func printTable(w io.Writer, result *engine.Result) {
	if len(result.Columns) == 0 {
		fmt.Fprintf(w, "ok (%d rows, %s)\n", result.RowCount, result.Elapsed)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(result.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))

		for i, col := range result.Columns {
			v, ok := row.Get(col)
			if !ok || types.IsNull(v) {
				cells[i] = "NULL"
				continue
			}

			cells[i] = v.Format()
		}

		table.Append(cells)
	}

	table.Render()
	fmt.Fprintf(w, "(%d rows, %s)\n", result.RowCount, result.Elapsed)
}

func printJSON(w io.Writer, result *engine.Result) error {
	records := make([]map[string]interface{}, len(result.Rows))

	for i, row := range result.Rows {
		record := map[string]interface{}{}

		for _, col := range row.Columns() {
			v, _ := row.Get(col)

			if types.IsNull(v) {
				record[col] = nil
				continue
			}

			record[col] = v.Format()
		}

		records[i] = record
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(records)
}
