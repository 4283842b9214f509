// Package cg generates the awk programs used to scan delimited text files.
// A program projects the requested columns of every record and, when a filter
// was pushed into the scan, drops the records that cannot satisfy it. Output
// records are written with the ASCII unit separator between fields and the
// record separator after each record so that embedded commas, quotes and
// newlines survive the round trip.
package cg

import (
	"fmt"
	"strings"

	"github.com/dianpeng/awkframe/plan"
)

const (
	FieldSeparator  = "\x1f"
	RecordSeparator = "\x1e"
)

type Config struct {
	// the first record of the input is a header and is skipped
	HasHeader bool
}

type ScanProgram struct {
	Source string

	// source column index of every output field, in output order
	Columns []int

	// the awk condition guarding each record, empty when nothing was pushed
	Filter string
}

func Generate(
	schema *plan.Schema,
	req *plan.ScanRequest,
	config *Config,
) (*ScanProgram, error) {
	g := &queryCodeGen{
		schema: schema,
		req:    req,
		config: config,
	}
	return g.Gen()
}

type queryCodeGen struct {
	schema *plan.Schema
	req    *plan.ScanRequest
	config *Config
}

func (self *queryCodeGen) columns() ([]int, error) {
	if self.req == nil || self.req.Projection == nil {
		out := make([]int, self.schema.Len())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	for _, idx := range self.req.Projection {
		if idx < 0 || idx >= self.schema.Len() {
			return nil, fmt.Errorf("codegen(TableScan): projection index %d out of range", idx)
		}
	}
	return self.req.Projection, nil
}

func (self *queryCodeGen) filter() string {
	if self.req == nil {
		return ""
	}
	g := &exprCodeGen{schema: self.schema}
	out := []string{}
	for _, f := range self.req.Filters {
		if c, ok := g.genExpr(f); ok {
			out = append(out, "("+c.code+")")
		}
	}
	return strings.Join(out, " && ")
}

func (self *queryCodeGen) Gen() (*ScanProgram, error) {
	cols, err := self.columns()
	if err != nil {
		return nil, err
	}

	filter := self.filter()
	ts := &tableScanGen{
		HasHeader: self.config != nil && self.config.HasHeader,
		Filter:    filter,
		Print:     printList(cols),
	}
	src, err := ts.gen()
	if err != nil {
		return nil, err
	}

	return &ScanProgram{
		Source:  src,
		Columns: cols,
		Filter:  filter,
	}, nil
}
