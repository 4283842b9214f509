package plan

import (
	"context"
	"testing"

	"github.com/dianpeng/awkframe/sql"
	"github.com/stretchr/testify/assert"
)

type testSource struct {
	schema *Schema
	rows   []Row
}

func (self *testSource) Schema() *Schema {
	return self.schema
}

func (self *testSource) Scan(_ context.Context, _ *ScanRequest) ([]Row, error) {
	return self.rows, nil
}

type testCatalog struct {
	tables map[string]LogicalPlan
}

func (self *testCatalog) Table(name string) (LogicalPlan, error) {
	if p, ok := self.tables[name]; ok {
		return p, nil
	}
	return nil, planErr("catalog", ErrTableNotFound, "table %s not found", name)
}

func (self *testCatalog) Path(path string) (LogicalPlan, error) {
	return self.Table(path)
}

func exampleSchema() *Schema {
	return NewSchema(
		&Field{Name: "a", Type: TypeInt64, Nullable: true},
		&Field{Name: "b", Type: TypeInt64, Nullable: true},
		&Field{Name: "c", Type: TypeUtf8, Nullable: true},
	)
}

func exampleScan() *TableScan {
	return NewTableScan("example", &testSource{schema: exampleSchema()})
}

func uScan() *TableScan {
	return NewTableScan("u", &testSource{schema: NewSchema(
		&Field{Name: "id", Type: TypeInt64, Nullable: true},
		&Field{Name: "v", Type: TypeUtf8, Nullable: true},
	)})
}

func newTestCatalog() *testCatalog {
	example := exampleScan()
	view, _ := SelectColumns(example, []string{"a", "c"})
	return &testCatalog{
		tables: map[string]LogicalPlan{
			"example": example,
			"u":       uScan(),
			"ev":      view,
		},
	}
}

func planSQL(t *testing.T, text string) (LogicalPlan, error) {
	code, err := sql.Parse(text)
	assert.Nil(t, err)
	if err != nil {
		return nil, err
	}
	return NewPlanner(newTestCatalog()).Plan(code)
}
