// Package exec materializes logical plans. Every operator consumes the fully
// materialized rows of its inputs; independent inputs of joins and unions are
// computed concurrently on a worker pool.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
	"github.com/panjf2000/ants/v2"
)

type Config struct {
	BatchSize        int
	TargetPartitions int
}

type Executor struct {
	cfg  Config
	pool *ants.Pool
	log  *slog.Logger
}

func NewExecutor(cfg Config, log *slog.Logger) (*Executor, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("exec: batch size must be positive, got %d", cfg.BatchSize)
	}
	if log == nil {
		log = logger.Get()
	}
	self := &Executor{
		cfg: cfg,
		log: log,
	}
	if cfg.TargetPartitions > 1 {
		// a full pool runs the task inline, nested joins would otherwise wait
		// on workers held by their parents
		pool, err := ants.NewPool(cfg.TargetPartitions, ants.WithNonblocking(true))
		if err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		self.pool = pool
	}
	return self, nil
}

func (self *Executor) Close() {
	if self.pool != nil {
		self.pool.Release()
		self.pool = nil
	}
}

// Execute runs p and returns every row of the result
func (self *Executor) Execute(ctx context.Context, p plan.LogicalPlan) ([]plan.Row, error) {
	start := time.Now()
	rows, err := self.execute(ctx, p)
	if err != nil {
		return nil, err
	}
	self.log.Debug("plan executed", "rows", len(rows), "elapsed", time.Since(start))
	return rows, nil
}

// Collect runs p and returns the result split into batches
func (self *Executor) Collect(ctx context.Context, p plan.LogicalPlan) ([]*Batch, error) {
	rows, err := self.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return NewBatches(p.Schema(), rows, self.cfg.BatchSize), nil
}

func panicErr(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("exec: panic: %w", err)
	}
	return fmt.Errorf("exec: panic: %v", v)
}

// executeAll runs the plans concurrently when a pool is configured, the
// result keeps the order of plans
func (self *Executor) executeAll(ctx context.Context, plans []plan.LogicalPlan) ([][]plan.Row, error) {
	out := make([][]plan.Row, len(plans))
	if self.pool == nil || len(plans) < 2 {
		for i, p := range plans {
			rows, err := self.execute(ctx, p)
			if err != nil {
				return nil, err
			}
			out[i] = rows
		}
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, p := range plans {
		i, p := i, p
		task := func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					mu.Lock()
					errs = append(errs, panicErr(v))
					mu.Unlock()
					cancel()
				}
			}()
			rows, err := self.execute(ctx, p)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
				return
			}
			out[i] = rows
		}

		wg.Add(1)
		if err := self.pool.Submit(task); err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				wg.Done()
				cancel()
				wg.Wait()
				return nil, fmt.Errorf("exec: %w", err)
			}
			task()
		}
	}
	wg.Wait()

	if len(errs) > 0 {
		// the first failure cancels its siblings, report it rather than the
		// cancellation it caused
		for _, err := range errs {
			if !errors.Is(err, context.Canceled) {
				return nil, err
			}
		}
		return nil, errs[0]
	}
	return out, nil
}

func (self *Executor) execute(ctx context.Context, p plan.LogicalPlan) ([]plan.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch x := p.(type) {
	case *plan.TableScan:
		return self.executeScan(ctx, x)

	case *plan.EmptyRelation:
		if x.ProduceOneRow {
			return []plan.Row{{}}, nil
		}
		return []plan.Row{}, nil

	case *plan.SubqueryAlias:
		return self.execute(ctx, x.Input)

	case *plan.Projection:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeProjection(x, rows)

	case *plan.Filter:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeFilter(x, rows)

	case *plan.Aggregate:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeAggregate(x, rows)

	case *plan.Limit:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeLimit(x, rows), nil

	case *plan.Distinct:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeDistinct(rows), nil

	case *plan.Sort:
		rows, err := self.execute(ctx, x.Input)
		if err != nil {
			return nil, err
		}
		return executeSort(x, rows)

	case *plan.Union:
		inputs, err := self.executeAll(ctx, x.Branches)
		if err != nil {
			return nil, err
		}
		out := []plan.Row{}
		for _, rows := range inputs {
			out = append(out, rows...)
		}
		return out, nil

	case *plan.Join:
		inputs, err := self.executeAll(ctx, []plan.LogicalPlan{x.Left, x.Right})
		if err != nil {
			return nil, err
		}
		return executeJoin(x, inputs[0], inputs[1])

	default:
		return nil, fmt.Errorf("exec: unknown plan node %T", p)
	}
}

func (self *Executor) executeScan(ctx context.Context, x *plan.TableScan) ([]plan.Row, error) {
	rows, err := x.Source.Scan(ctx, &plan.ScanRequest{
		Projection: x.Projection,
		Filters:    x.Filters,
	})
	if err != nil {
		return nil, err
	}
	width := x.Schema().Len()
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("exec: table %s returned %d values in row %d, expect %d",
				x.Name, len(r), i, width)
		}
	}
	self.log.Debug("table scanned", "table", x.Name, "rows", len(rows))
	return rows, nil
}
