package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/dianpeng/awkframe/cg"
	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
)

type CSVOptions struct {
	HasHeader             bool
	Delimiter             rune
	SchemaInferMaxRecords int

	// optional, shared by the sources of one session
	Cache  *Cache
	Logger *slog.Logger
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		HasHeader:             true,
		Delimiter:             ',',
		SchemaInferMaxRecords: 1000,
	}
}

// CSVSource is a delimited text file, every scan runs a generated awk program
// over the file with goawk
type CSVSource struct {
	path   string
	opts   CSVOptions
	schema *plan.Schema
	log    *slog.Logger
}

func NewCSVSource(path string, opts CSVOptions) (*CSVSource, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.SchemaInferMaxRecords <= 0 {
		return nil, fmt.Errorf("datasource(csv): schema_infer_max_records must be positive")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("datasource(csv): %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("datasource(csv): %s is a directory", path)
	}

	self := &CSVSource{
		path: path,
		opts: opts,
		log:  log.With("source", path),
	}

	key := fmt.Sprintf("%s|%d|%d|%t|%c|%d",
		path,
		info.ModTime().UnixNano(),
		info.Size(),
		opts.HasHeader,
		opts.Delimiter,
		opts.SchemaInferMaxRecords,
	)
	self.schema, err = opts.Cache.schema(key, self.infer)
	if err != nil {
		return nil, err
	}
	return self, nil
}

func (self *CSVSource) Path() string {
	return self.path
}

func (self *CSVSource) Schema() *plan.Schema {
	return self.schema
}

func (self *CSVSource) infer() (*plan.Schema, error) {
	records := self.opts.SchemaInferMaxRecords
	if self.opts.HasHeader {
		records++
	}
	src, err := cg.GenerateSample(records)
	if err != nil {
		return nil, err
	}

	out := &bytes.Buffer{}
	if err := self.run(context.Background(), src, out); err != nil {
		return nil, err
	}

	sample := [][]string{}
	for _, rec := range splitRecords(out.String()) {
		nf, rest, _ := strings.Cut(rec, cg.FieldSeparator)
		n, err := strconv.Atoi(nf)
		if err != nil {
			return nil, fmt.Errorf("datasource(csv): malformed sample record %q", rec)
		}
		if n == 0 {
			sample = append(sample, []string{})
		} else {
			sample = append(sample, strings.Split(rest, cg.FieldSeparator))
		}
	}

	schema, err := inferSchema(sample, self.opts.HasHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, self.path)
	}
	self.log.Debug("schema inferred", "schema", schema.String(), "sampled", len(sample))
	return schema, nil
}

func (self *CSVSource) generate(req *plan.ScanRequest) (*cg.ScanProgram, error) {
	return cg.Generate(self.schema, req, &cg.Config{HasHeader: self.opts.HasHeader})
}

// ExplainScan returns the awk program executed for req
func (self *CSVSource) ExplainScan(req *plan.ScanRequest) (string, error) {
	prog, err := self.generate(req)
	if err != nil {
		return "", err
	}
	return prog.Source, nil
}

func (self *CSVSource) run(ctx context.Context, src string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prog, err := self.opts.Cache.program(src)
	if err != nil {
		return err
	}

	f, err := os.Open(self.path)
	if err != nil {
		return fmt.Errorf("datasource(csv): %w", err)
	}
	defer f.Close()

	vm, err := interp.New(prog)
	if err != nil {
		return fmt.Errorf("datasource(awk): %w", err)
	}
	status, err := vm.ExecuteContext(ctx, &interp.Config{
		Stdin:        f,
		Output:       w,
		NoExec:       true,
		NoFileWrites: true,
		NoFileReads:  true,
		InputMode:    interp.CSVMode,
		CSVInput: interp.CSVInputConfig{
			Separator: self.opts.Delimiter,
		},
	})
	if err != nil {
		return fmt.Errorf("datasource(awk): %s: %w", self.path, err)
	}
	if status != 0 {
		return fmt.Errorf("datasource(awk): %s: exit status %d", self.path, status)
	}
	return nil
}

func splitRecords(out string) []string {
	recs := strings.Split(out, cg.RecordSeparator)
	return recs[:len(recs)-1]
}

func (self *CSVSource) Scan(ctx context.Context, req *plan.ScanRequest) ([]plan.Row, error) {
	prog, err := self.generate(req)
	if err != nil {
		return nil, err
	}
	if prog.Filter != "" {
		self.log.Debug("filter pushed into scan", "filter", prog.Filter)
	}

	out := &bytes.Buffer{}
	if err := self.run(ctx, prog.Source, out); err != nil {
		return nil, err
	}

	types := make([]plan.DataType, len(prog.Columns))
	for i, c := range prog.Columns {
		types[i] = self.schema.Field(c).Type
	}

	recs := splitRecords(out.String())
	rows := make([]plan.Row, 0, len(recs))
	for n, rec := range recs {
		if len(types) == 0 {
			rows = append(rows, plan.Row{})
			continue
		}
		cells := strings.Split(rec, cg.FieldSeparator)
		if len(cells) != len(types) {
			return nil, fmt.Errorf("datasource(csv): %s: record %d has %d fields, expect %d",
				self.path, n+1, len(cells), len(types))
		}
		row := make(plan.Row, len(types))
		for i, cell := range cells {
			v, err := parseCell(cell, types[i])
			if err != nil {
				name := self.schema.Field(prog.Columns[i]).Name
				return nil, fmt.Errorf("datasource(csv): %s: column %s: %w", self.path, name, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	self.log.Debug("scan done", "rows", len(rows), "columns", len(types))
	return rows, nil
}
