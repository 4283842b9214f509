package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dianpeng/awkframe/plan"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSource exposes one table of a SQLite database. Only the projection of
// a scan request is pushed into the generated SELECT.
type SQLiteSource struct {
	db     *sql.DB
	table  string
	schema *plan.Schema
}

func quoteIdent(n string) string {
	return `"` + strings.ReplaceAll(n, `"`, `""`) + `"`
}

// affinity maps a declared column type to a data type following SQLite's
// column affinity rules
func affinity(decl string) plan.DataType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return plan.TypeInt64
	case strings.Contains(d, "BOOL"):
		return plan.TypeBool
	case strings.Contains(d, "CHAR"),
		strings.Contains(d, "CLOB"),
		strings.Contains(d, "TEXT"):
		return plan.TypeUtf8
	case strings.Contains(d, "REAL"),
		strings.Contains(d, "FLOA"),
		strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"),
		strings.Contains(d, "DECIMAL"):
		return plan.TypeFloat64
	default:
		return plan.TypeUtf8
	}
}

func OpenSQLite(ctx context.Context, dsn, table string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("datasource(sqlite): failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("datasource(sqlite): failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema, err := tableSchema(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSource{
		db:     db,
		table:  table,
		schema: schema,
	}, nil
}

func tableSchema(ctx context.Context, db *sql.DB, table string) (*plan.Schema, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("datasource(sqlite): %w", err)
	}
	defer rows.Close()

	fields := []*plan.Field{}
	for rows.Next() {
		var (
			cid     int
			name    string
			decl    string
			notNull bool
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("datasource(sqlite): %w", err)
		}
		fields = append(fields, &plan.Field{
			Name:     name,
			Type:     affinity(decl),
			Nullable: !notNull,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasource(sqlite): %w", err)
	}
	if len(fields) == 0 {
		return nil, &plan.Error{
			Stage: "datasource",
			Kind:  plan.ErrTableNotFound,
			Msg:   fmt.Sprintf("sqlite table %s not found", table),
		}
	}
	return plan.NewSchema(fields...), nil
}

func (self *SQLiteSource) Schema() *plan.Schema {
	return self.schema
}

func (self *SQLiteSource) Close() error {
	if self.db == nil {
		return nil
	}
	return self.db.Close()
}

func (self *SQLiteSource) query(req *plan.ScanRequest) (string, []int) {
	cols := []int{}
	if req == nil || req.Projection == nil {
		for i := 0; i < self.schema.Len(); i++ {
			cols = append(cols, i)
		}
	} else {
		cols = req.Projection
	}

	list := []string{}
	for _, c := range cols {
		list = append(list, quoteIdent(self.schema.Field(c).Name))
	}
	// a constant keeps the row count for an empty projection
	if len(list) == 0 {
		list = append(list, "1")
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(list, ", "), quoteIdent(self.table)), cols
}

// ExplainScan returns the SELECT statement executed for req
func (self *SQLiteSource) ExplainScan(req *plan.ScanRequest) (string, error) {
	q, _ := self.query(req)
	return q, nil
}

func (self *SQLiteSource) Scan(ctx context.Context, req *plan.ScanRequest) ([]plan.Row, error) {
	q, cols := self.query(req)
	rows, err := self.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("datasource(sqlite): %w", err)
	}
	defer rows.Close()

	out := []plan.Row{}
	width := len(cols)
	if width == 0 {
		width = 1
	}
	for rows.Next() {
		vals := make([]any, width)
		ptrs := make([]any, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("datasource(sqlite): %w", err)
		}

		row := make(plan.Row, len(cols))
		for i, c := range cols {
			f := self.schema.Field(c)
			v, err := coerce(vals[i], f.Type)
			if err != nil {
				return nil, fmt.Errorf("datasource(sqlite): column %s: %w", f.Name, err)
			}
			row[i] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasource(sqlite): %w", err)
	}
	return out, nil
}

// coerce converts a value returned by the driver to type t, SQLite stores
// any value in any column so the declared type is only a hint
func coerce(v any, t plan.DataType) (plan.Value, error) {
	if ts, ok := v.(time.Time); ok {
		v = ts.Format(time.RFC3339Nano)
	}
	nv, ok := plan.NormalizeValue(v)
	if !ok {
		return nil, fmt.Errorf("unsupported value %T", v)
	}
	if nv == nil {
		return nil, nil
	}

	switch t {
	case plan.TypeInt64:
		switch x := nv.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case string:
			return parseCell(x, t)
		}
	case plan.TypeFloat64:
		switch x := nv.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			return parseCell(x, t)
		}
	case plan.TypeBool:
		switch x := nv.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			return parseCell(x, t)
		}
	case plan.TypeUtf8:
		if s, ok := nv.(string); ok {
			return s, nil
		}
		return plan.FormatValue(nv), nil
	}
	return nil, fmt.Errorf("cannot convert %v to %s", nv, t)
}
