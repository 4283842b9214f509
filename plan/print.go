package plan

import (
	"strings"

	"github.com/fatih/color"
)

// Printing the plan out, for testing, debugging, visualization purpose etc ...
//
// Each node is printed on its own line, children indented by 2 spaces:
//
//   Limit: skip=0, fetch=100
//     Filter: a <= b
//       TableScan: example projection=[a, b, c]

func Display(p LogicalPlan) string {
	buf := &strings.Builder{}
	printNode(p, 0, buf, func(s string) string { return s })
	return buf.String()
}

// DisplayColor is Display with the node names highlighted, for terminals
func DisplayColor(p LogicalPlan) string {
	name := color.New(color.FgCyan, color.Bold).SprintFunc()
	buf := &strings.Builder{}
	printNode(p, 0, buf, func(s string) string {
		if pos := strings.IndexAny(s, ": "); pos > 0 {
			return name(s[:pos]) + s[pos:]
		}
		return name(s)
	})
	return buf.String()
}

// DisplaySchema prints the output schema of p, one column per line
func DisplaySchema(p LogicalPlan) string {
	buf := &strings.Builder{}
	for _, f := range p.Schema().Fields {
		buf.WriteString(f.QualifiedName())
		buf.WriteString(": ")
		buf.WriteString(f.Type.String())
		if f.Nullable {
			buf.WriteString(" (nullable)")
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

func printNode(
	p LogicalPlan,
	depth int,
	buf *strings.Builder,
	decorate func(string) string,
) {
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteString(decorate(p.describe()))
	buf.WriteString("\n")
	for _, in := range p.Inputs() {
		printNode(in, depth+1, buf, decorate)
	}
}

// Walk visits every node of p in pre-order
func Walk(p LogicalPlan, fn func(LogicalPlan)) {
	fn(p)
	for _, in := range p.Inputs() {
		Walk(in, fn)
	}
}
