package datasource

import (
	"context"
	"fmt"

	"github.com/dianpeng/awkframe/plan"
)

// MemTable holds materialized rows, ie the result of CREATE TABLE AS
type MemTable struct {
	schema *plan.Schema
	rows   []plan.Row
}

func NewMemTable(schema *plan.Schema, rows []plan.Row) (*MemTable, error) {
	for i, r := range rows {
		if len(r) != schema.Len() {
			return nil, fmt.Errorf("datasource(memory): row %d has %d values, expect %d",
				i, len(r), schema.Len())
		}
	}
	return &MemTable{
		schema: schema,
		rows:   rows,
	}, nil
}

func (self *MemTable) Schema() *plan.Schema {
	return self.schema
}

func (self *MemTable) Len() int {
	return len(self.rows)
}

func (self *MemTable) Scan(ctx context.Context, req *plan.ScanRequest) ([]plan.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || req.Projection == nil {
		out := make([]plan.Row, len(self.rows))
		copy(out, self.rows)
		return out, nil
	}
	out := make([]plan.Row, 0, len(self.rows))
	for _, r := range self.rows {
		row := make(plan.Row, len(req.Projection))
		for i, c := range req.Projection {
			row[i] = r[c]
		}
		out = append(out, row)
	}
	return out, nil
}
