package dataframe

import (
	"fmt"
	"io"

	"github.com/dianpeng/awkframe/exec"
	"github.com/dianpeng/awkframe/plan"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// renderTable writes the batches as a markdown table followed by the row
// count
func renderTable(w io.Writer, schema *plan.Schema, batches []*exec.Batch) error {
	alignment := make([]tw.Align, schema.Len())
	for idx, t := range schema.Types() {
		if t.IsNumeric() {
			alignment[idx] = tw.AlignRight
		} else {
			alignment[idx] = tw.AlignLeft
		}
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(schema.Names())

	count := 0
	for _, batch := range batches {
		for _, row := range batch.Rows {
			cells := make([]string, len(row))
			for idx, v := range row {
				cells[idx] = plan.FormatValue(v)
			}
			if err := table.Append(cells); err != nil {
				return err
			}
			count++
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	unit := "rows"
	if count == 1 {
		unit = "row"
	}
	_, err := fmt.Fprintf(w, "(%d %s)\n", count, unit)
	return err
}
