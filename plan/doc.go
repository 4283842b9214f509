package plan

// The following documentation is used to describe how a query is been mapped
// from SQL text, or from the DataFrame builders, into a logical plan.
//
// A logical plan is a tree of nodes, each node describes one relational
// operation and carries its output schema. The schema is computed and checked
// when the node is built, so a plan that exists is always well typed. The
// builders (NewProjection, NewFilter, ...) are the only way to create a node
// and they return typed errors, see errors.go.
//
// 1) TableScan
//    Leaf node reading rows out of a TableSource. After optimization it may
//    carry a column projection and a list of pushed filters. Pushed filters
//    are a hint only, the source may return a superset of the qualified rows
//    and the Filter node above the scan stays in the plan.
//
// 2) Projection, Filter, Limit, Distinct, Sort
//    Single input transformations. Sort keys are SortExpr annotations with
//    an explicit direction and null placement.
//
// 3) Aggregate
//    Groups by a list of expressions and computes aggregate expressions. A
//    grouping set (GROUPING SETS, CUBE, ROLLUP) is flattened into the list of
//    its distinct member expressions plus the list of sets, each set being the
//    indices of the member expressions grouped in that pass. The output schema
//    is the group columns followed by the aggregate columns.
//
// 4) Join
//    Equi join on pairs of key expressions with an optional residual filter
//    which is only evaluated for matched pairs. Semi and anti joins output
//    only one side.
//
// 5) Union
//    Concatenation of inputs sharing the same column names and types. Union
//    distinct is a Distinct over a Union.
//
// 6) SubqueryAlias
//    Re-qualifies every column of its input with a new name, used for table
//    aliases and views.
//
// The optimizer, see optimize.go, performs 2 rewrites, early filter pushdown
// into table scans and across inner joins, and projection pushdown into table
// scans. Both are copy on write, the input plan is never mutated since it may
// be shared by many DataFrame handles.
