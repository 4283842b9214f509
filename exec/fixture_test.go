package exec

import (
	"context"
	"testing"

	"github.com/dianpeng/awkframe/datasource"
	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/require"
)

func col(n string) *plan.Column {
	return plan.ColumnFromName(n)
}

func lit(v plan.Value) *plan.Literal {
	return &plan.Literal{Value: v}
}

func bin(l plan.Expr, op plan.Operator, r plan.Expr) *plan.BinaryExpr {
	return &plan.BinaryExpr{Left: l, Op: op, Right: r}
}

func memScan(t *testing.T, name string, fields []*plan.Field, rows []plan.Row) *plan.TableScan {
	mem, err := datasource.NewMemTable(plan.NewSchema(fields...), rows)
	require.NoError(t, err)
	return plan.NewTableScan(name, mem)
}

// exampleScan is the table (a, b, c) = (1, 2, x), (2, 2, y), (3, 4, x)
func exampleScan(t *testing.T) *plan.TableScan {
	return memScan(t, "example", []*plan.Field{
		{Name: "a", Type: plan.TypeInt64, Nullable: true},
		{Name: "b", Type: plan.TypeInt64, Nullable: true},
		{Name: "c", Type: plan.TypeUtf8, Nullable: true},
	}, []plan.Row{
		{int64(1), int64(2), "x"},
		{int64(2), int64(2), "y"},
		{int64(3), int64(4), "x"},
	})
}

func idScan(t *testing.T, name string, ids ...plan.Value) *plan.TableScan {
	rows := []plan.Row{}
	for i, id := range ids {
		rows = append(rows, plan.Row{id, int64(i)})
	}
	return memScan(t, name, []*plan.Field{
		{Name: "id", Type: plan.TypeInt64, Nullable: true},
		{Name: "pos", Type: plan.TypeInt64},
	}, rows)
}

func newTestExecutor(t *testing.T, partitions int) *Executor {
	ex, err := NewExecutor(Config{BatchSize: 2, TargetPartitions: partitions}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(ex.Close)
	return ex
}

func run(t *testing.T, p plan.LogicalPlan) []plan.Row {
	rows, err := newTestExecutor(t, 1).Execute(context.Background(), p)
	require.NoError(t, err)
	return rows
}

// evalRow evaluates e over a single row of schema
func evalRow(t *testing.T, schema *plan.Schema, e plan.Expr, row plan.Row) (plan.Value, error) {
	ev, err := newCompiler(schema).compile(e)
	require.NoError(t, err)
	return ev(row)
}
