package dataframe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/dianpeng/awkframe/config"
	"github.com/dianpeng/awkframe/datasource"
	"github.com/dianpeng/awkframe/exec"
	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
	"github.com/dianpeng/awkframe/sql"
	"github.com/google/uuid"
)

type Option func(*SessionContext)

func WithConfig(cfg *config.Config) Option {
	return func(s *SessionContext) {
		s.cfg = cfg
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *SessionContext) {
		s.log = log
	}
}

// WithOutput sets where Show renders its tables, stdout by default
func WithOutput(w io.Writer) Option {
	return func(s *SessionContext) {
		s.out = w
	}
}

type tableEntry struct {
	plan   plan.LogicalPlan
	view   bool
	closer io.Closer
}

// SessionContext creates DataFrames and holds the tables and views they can
// reference by name. A session is safe for concurrent use, the DataFrames it
// returns are not.
type SessionContext struct {
	id       string
	cfg      *config.Config
	log      *slog.Logger
	out      io.Writer
	cache    *datasource.Cache
	executor *exec.Executor

	mu     sync.RWMutex
	tables map[string]*tableEntry
}

func NewSessionContext(opts ...Option) (*SessionContext, error) {
	self := &SessionContext{
		id:     uuid.NewString(),
		cfg:    config.Default(),
		out:    os.Stdout,
		tables: map[string]*tableEntry{},
	}
	for _, opt := range opts {
		opt(self)
	}
	if err := self.cfg.Validate(); err != nil {
		return nil, err
	}
	if self.log == nil {
		self.log = logger.Get()
	}
	self.log = self.log.With("session_id", self.id)

	cache, err := datasource.NewCache(self.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	self.cache = cache

	self.executor, err = exec.NewExecutor(exec.Config{
		BatchSize:        self.cfg.BatchSize,
		TargetPartitions: self.cfg.TargetPartitions,
	}, self.log)
	if err != nil {
		return nil, err
	}

	self.log.Debug("session created",
		"batch_size", self.cfg.BatchSize,
		"target_partitions", self.cfg.TargetPartitions)
	return self, nil
}

// NewSessionContextFromEnv reads the configuration from the AWKFRAME_
// environment variables
func NewSessionContextFromEnv(opts ...Option) (*SessionContext, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewSessionContext(append([]Option{WithConfig(cfg)}, opts...)...)
}

func (self *SessionContext) SessionID() string {
	return self.id
}

func (self *SessionContext) Config() *config.Config {
	return self.cfg
}

func (self *SessionContext) newDataFrame(p plan.LogicalPlan) *DataFrame {
	return &DataFrame{inner: p, session: self}
}

/* ----------------------------------------------------------------------------
 * Catalog
 * ---------------------------------------------------------------------------*/

func (self *SessionContext) register(name string, entry *tableEntry, replace bool) error {
	if name == "" {
		return &plan.Error{Stage: "catalog", Kind: plan.ErrInvalidArgument, Msg: "table name must not be empty"}
	}

	self.mu.Lock()
	old, ok := self.tables[name]
	if ok && !replace {
		self.mu.Unlock()
		return fmt.Errorf("catalog: %w: %s", ErrTableExists, name)
	}
	self.tables[name] = entry
	self.mu.Unlock()

	if ok && old.closer != nil {
		if err := old.closer.Close(); err != nil {
			self.log.Warn("failed to close replaced table", "table", name, "error", err)
		}
	}
	self.log.Debug("table registered", "table", name, "view", entry.view)
	return nil
}

func (self *SessionContext) lookup(name string) (*tableEntry, error) {
	self.mu.RLock()
	defer self.mu.RUnlock()
	entry, ok := self.tables[name]
	if !ok {
		return nil, &plan.Error{
			Stage: "catalog",
			Kind:  plan.ErrTableNotFound,
			Msg:   fmt.Sprintf("table %s not found", name),
		}
	}
	return entry, nil
}

// TableNames lists the registered tables and views in order
func (self *SessionContext) TableNames() []string {
	self.mu.RLock()
	defer self.mu.RUnlock()
	out := make([]string, 0, len(self.tables))
	for name := range self.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Table returns a DataFrame over a registered table or view
func (self *SessionContext) Table(name string) (*DataFrame, error) {
	entry, err := self.lookup(name)
	if err != nil {
		return nil, &Error{Op: "Table", Err: err}
	}
	return self.newDataFrame(entry.plan), nil
}

func (self *SessionContext) DeregisterTable(name string) error {
	self.mu.Lock()
	entry, ok := self.tables[name]
	delete(self.tables, name)
	self.mu.Unlock()

	if !ok {
		return &Error{Op: "DeregisterTable", Err: &plan.Error{
			Stage: "catalog",
			Kind:  plan.ErrTableNotFound,
			Msg:   fmt.Sprintf("table %s not found", name),
		}}
	}
	if entry.closer != nil {
		return entry.closer.Close()
	}
	return nil
}

// sessionCatalog resolves the table references of SQL queries
type sessionCatalog struct {
	session *SessionContext
}

func (self *sessionCatalog) Table(name string) (plan.LogicalPlan, error) {
	entry, err := self.session.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.plan, nil
}

func (self *sessionCatalog) Path(path string) (plan.LogicalPlan, error) {
	scan, err := self.session.openCSV(fileStem(path), path, self.session.DefaultCSVReadOptions())
	if err != nil {
		return nil, err
	}
	return scan, nil
}

/* ----------------------------------------------------------------------------
 * CSV
 * ---------------------------------------------------------------------------*/

type CSVReadOptions struct {
	HasHeader bool
	Delimiter rune

	// number of records sampled to infer the column types
	SchemaInferMaxRecords int
}

func (self *SessionContext) DefaultCSVReadOptions() CSVReadOptions {
	return CSVReadOptions{
		HasHeader:             true,
		Delimiter:             ',',
		SchemaInferMaxRecords: self.cfg.SchemaInferMaxRecords,
	}
}

func (self *SessionContext) csvOptions(opts []CSVReadOptions) CSVReadOptions {
	if len(opts) == 0 {
		return self.DefaultCSVReadOptions()
	}
	out := opts[0]
	if out.SchemaInferMaxRecords == 0 {
		out.SchemaInferMaxRecords = self.cfg.SchemaInferMaxRecords
	}
	return out
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (self *SessionContext) openCSV(name, path string, opts CSVReadOptions) (*plan.TableScan, error) {
	src, err := datasource.NewCSVSource(path, datasource.CSVOptions{
		HasHeader:             opts.HasHeader,
		Delimiter:             opts.Delimiter,
		SchemaInferMaxRecords: opts.SchemaInferMaxRecords,
		Cache:                 self.cache,
		Logger:                self.log,
	})
	if err != nil {
		return nil, err
	}
	return plan.NewTableScan(name, src), nil
}

// ReadCSV creates a DataFrame scanning the file at path, the columns are
// qualified by the file name without its extension. Without opts the file has
// a header row and is comma separated
func (self *SessionContext) ReadCSV(ctx context.Context, path string, opts ...CSVReadOptions) (*DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "ReadCSV", Err: err}
	}
	scan, err := self.openCSV(fileStem(path), path, self.csvOptions(opts))
	if err != nil {
		return nil, &Error{Op: "ReadCSV", Err: err}
	}
	return self.newDataFrame(scan), nil
}

func (self *SessionContext) RegisterCSV(ctx context.Context, name, path string, opts ...CSVReadOptions) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "RegisterCSV", Err: err}
	}
	scan, err := self.openCSV(name, path, self.csvOptions(opts))
	if err != nil {
		return &Error{Op: "RegisterCSV", Err: err}
	}
	if err := self.register(name, &tableEntry{plan: scan}, false); err != nil {
		return &Error{Op: "RegisterCSV", Err: err}
	}
	return nil
}

// RegisterSQLite registers table of the SQLite database dsn under name
func (self *SessionContext) RegisterSQLite(ctx context.Context, name, dsn, table string) error {
	src, err := datasource.OpenSQLite(ctx, dsn, table)
	if err != nil {
		return &Error{Op: "RegisterSQLite", Err: err}
	}
	entry := &tableEntry{plan: plan.NewTableScan(name, src), closer: src}
	if err := self.register(name, entry, false); err != nil {
		src.Close()
		return &Error{Op: "RegisterSQLite", Err: err}
	}
	return nil
}

/* ----------------------------------------------------------------------------
 * SQL
 * ---------------------------------------------------------------------------*/

// SQL compiles a query into a DataFrame. CREATE VIEW, CREATE TABLE ... AS,
// CREATE EXTERNAL TABLE and DROP are executed right away against the session
// catalog and return an empty DataFrame
func (self *SessionContext) SQL(ctx context.Context, text string) (*DataFrame, error) {
	code, err := sql.Parse(text)
	if err != nil {
		return nil, &Error{Op: "SQL", Err: err}
	}
	p, err := self.runStmt(ctx, code.Stmt)
	if err != nil {
		return nil, &Error{Op: "SQL", Err: err}
	}
	return self.newDataFrame(p), nil
}

func (self *SessionContext) planner() *plan.Planner {
	return plan.NewPlanner(&sessionCatalog{session: self})
}

func (self *SessionContext) runStmt(ctx context.Context, stmt sql.Stmt) (plan.LogicalPlan, error) {
	empty := plan.NewEmptyRelation(false)

	switch x := stmt.(type) {
	case *sql.Query:
		return self.planner().PlanQuery(x)

	case *sql.CreateView:
		p, err := self.planner().PlanQuery(x.Query)
		if err != nil {
			return nil, err
		}
		return empty, self.register(x.Name, &tableEntry{plan: p, view: true}, x.OrReplace)

	case *sql.CreateTable:
		if x.IfNotExists {
			if _, err := self.lookup(x.Name); err == nil {
				return empty, nil
			}
		}
		p, err := self.planner().PlanQuery(x.Query)
		if err != nil {
			return nil, err
		}
		mem, err := self.materialize(ctx, p)
		if err != nil {
			return nil, err
		}
		return empty, self.register(x.Name, &tableEntry{plan: plan.NewTableScan(x.Name, mem)}, x.OrReplace)

	case *sql.CreateExternalTable:
		if x.IfNotExists {
			if _, err := self.lookup(x.Name); err == nil {
				return empty, nil
			}
		}
		if x.Format != "csv" {
			return nil, &plan.Error{
				Stage: "catalog",
				Kind:  plan.ErrNotSupported,
				Msg:   fmt.Sprintf("external table format %s", x.Format),
			}
		}
		opts := self.DefaultCSVReadOptions()
		opts.HasHeader = x.HasHeader
		if x.Delimiter != "" {
			r, size := utf8.DecodeRuneInString(x.Delimiter)
			if size != len(x.Delimiter) {
				return nil, &plan.Error{
					Stage: "catalog",
					Kind:  plan.ErrInvalidArgument,
					Msg:   fmt.Sprintf("delimiter must be a single character, got %q", x.Delimiter),
				}
			}
			opts.Delimiter = r
		}
		scan, err := self.openCSV(x.Name, x.Location, opts)
		if err != nil {
			return nil, err
		}
		return empty, self.register(x.Name, &tableEntry{plan: scan}, false)

	case *sql.Drop:
		entry, err := self.lookup(x.Name)
		if err != nil {
			if x.IfExists {
				return empty, nil
			}
			return nil, err
		}
		if x.View != entry.view {
			kind := "table"
			if x.View {
				kind = "view"
			}
			return nil, &plan.Error{
				Stage: "catalog",
				Kind:  plan.ErrInvalidArgument,
				Msg:   fmt.Sprintf("%s is not a %s", x.Name, kind),
			}
		}
		return empty, self.DeregisterTable(x.Name)

	default:
		return nil, &plan.Error{
			Stage: "catalog",
			Kind:  plan.ErrNotSupported,
			Msg:   fmt.Sprintf("statement %T", stmt),
		}
	}
}

// materialize executes p into an in memory table, used by CREATE TABLE AS
func (self *SessionContext) materialize(ctx context.Context, p plan.LogicalPlan) (*datasource.MemTable, error) {
	opt, err := plan.Optimize(p)
	if err != nil {
		return nil, err
	}
	rows, err := self.executor.Execute(ctx, opt)
	if err != nil {
		return nil, err
	}
	schema := p.Schema().WithQualifier("")
	seen := map[string]bool{}
	for _, name := range schema.Names() {
		if seen[name] {
			return nil, &plan.Error{
				Stage: "catalog",
				Kind:  plan.ErrDuplicateColumn,
				Msg:   fmt.Sprintf("column %s appears more than once, alias it", name),
			}
		}
		seen[name] = true
	}
	return datasource.NewMemTable(schema, rows)
}

func (self *SessionContext) collect(ctx context.Context, p plan.LogicalPlan) ([]*exec.Batch, error) {
	opt, err := plan.Optimize(p)
	if err != nil {
		return nil, err
	}
	return self.executor.Collect(ctx, opt)
}

// Close releases the SQLite handles of the registered tables and the worker
// pool, the session must not be used afterwards
func (self *SessionContext) Close() error {
	self.mu.Lock()
	tables := self.tables
	self.tables = map[string]*tableEntry{}
	self.mu.Unlock()

	var first error
	for name, entry := range tables {
		if entry.closer == nil {
			continue
		}
		if err := entry.closer.Close(); err != nil {
			self.log.Warn("failed to close table", "table", name, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	self.executor.Close()
	self.cache.Purge()
	return first
}
