package sql

// IsAggFunc reports whether the function name is an aggregation
func IsAggFunc(n string) bool {
	switch n {
	case "min", "max", "sum", "avg", "mean", "count",
		"approx_distinct", "approx_median",
		"approx_percentile_cont", "approx_percentile_cont_with_weight":
		return true
	default:
		return false
	}
}

// HasAggCall reports whether any aggregation call shows up inside of expr
func HasAggCall(expr Expr) bool {
	found := false
	VisitExpr(expr, func(e Expr) bool {
		if e.Type() == ExprCall && IsAggFunc(e.(*Call).Name) {
			found = true
		}
		return !found
	})
	return found
}
