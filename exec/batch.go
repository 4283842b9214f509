package exec

import (
	"github.com/dianpeng/awkframe/plan"
)

// Batch is a slice of the rows of a result sharing one schema
type Batch struct {
	Schema *plan.Schema
	Rows   []plan.Row
}

func (self *Batch) NumRows() int {
	return len(self.Rows)
}

func (self *Batch) NumColumns() int {
	return self.Schema.Len()
}

// NewBatches splits rows into batches of at most size rows, an empty result
// has no batch
func NewBatches(schema *plan.Schema, rows []plan.Row, size int) []*Batch {
	if size <= 0 {
		size = len(rows)
	}
	out := []*Batch{}
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, &Batch{
			Schema: schema,
			Rows:   rows[start:end],
		})
	}
	return out
}

// Rows flattens batches back into rows
func Rows(batches []*Batch) []plan.Row {
	out := []plan.Row{}
	for _, b := range batches {
		out = append(out, b.Rows...)
	}
	return out
}
