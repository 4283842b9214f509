package datasource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dianpeng/awkframe/plan"
)

// ----------------------------------------------------------------------------
//
// Schema inference. Every column starts as Int64 and is widened by the
// sampled values, in the order Int64, Float64, Boolean and finally Utf8. An
// empty cell is null and does not take part. A column without any sampled
// value is Utf8.
//
// ----------------------------------------------------------------------------

type typeGuess struct {
	seen    bool
	isInt   bool
	isFloat bool
	isBool  bool
}

func newTypeGuess() *typeGuess {
	return &typeGuess{
		isInt:   true,
		isFloat: true,
		isBool:  true,
	}
}

func isBoolText(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "false")
}

func (self *typeGuess) add(v string) {
	if v == "" {
		return
	}
	self.seen = true
	if self.isInt {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			self.isInt = false
		}
	}
	if self.isFloat {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			self.isFloat = false
		}
	}
	if self.isBool && !isBoolText(v) {
		self.isBool = false
	}
}

func (self *typeGuess) result() plan.DataType {
	switch {
	case !self.seen:
		return plan.TypeUtf8
	case self.isInt:
		return plan.TypeInt64
	case self.isFloat:
		return plan.TypeFloat64
	case self.isBool:
		return plan.TypeBool
	default:
		return plan.TypeUtf8
	}
}

func defaultColumnName(idx int) string {
	return fmt.Sprintf("column_%d", idx+1)
}

// inferSchema builds the schema from the sampled records, the first record is
// the header when hasHeader is set
func inferSchema(records [][]string, hasHeader bool) (*plan.Schema, error) {
	header := []string{}
	if hasHeader {
		if len(records) == 0 {
			return nil, fmt.Errorf("datasource(csv): missing header row")
		}
		header = records[0]
		records = records[1:]
	}

	width := len(header)
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("datasource(csv): no column found")
	}

	guess := make([]*typeGuess, width)
	for i := range guess {
		guess[i] = newTypeGuess()
	}
	for _, r := range records {
		for i, v := range r {
			guess[i].add(v)
		}
	}

	seen := map[string]int{}
	fields := make([]*plan.Field, 0, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = defaultColumnName(i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++

		fields = append(fields, &plan.Field{
			Name:     name,
			Type:     guess[i].result(),
			Nullable: true,
		})
	}
	return plan.NewSchema(fields...), nil
}

// parseCell converts the text of a cell into a value of type t
func parseCell(v string, t plan.DataType) (plan.Value, error) {
	if v == "" {
		return nil, nil
	}
	switch t {
	case plan.TypeInt64:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s", v, t)
		}
		return i, nil
	case plan.TypeFloat64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as %s", v, t)
		}
		return f, nil
	case plan.TypeBool:
		if !isBoolText(v) {
			return nil, fmt.Errorf("cannot parse %q as %s", v, t)
		}
		return strings.EqualFold(v, "true"), nil
	default:
		return v, nil
	}
}
