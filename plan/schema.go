package plan

import (
	"strings"
)

type Field struct {
	Qualifier string // table name or alias, empty for computed columns
	Name      string
	Type      DataType
	Nullable  bool
}

func (self *Field) QualifiedName() string {
	if self.Qualifier == "" {
		return self.Name
	}
	return self.Qualifier + "." + self.Name
}

func (self *Field) String() string {
	return self.QualifiedName() + ":" + self.Type.String()
}

// Schema is the ordered list of output columns of a plan node. A Schema is
// never mutated after construction
type Schema struct {
	Fields []*Field
}

func NewSchema(fields ...*Field) *Schema {
	return &Schema{Fields: fields}
}

func (self *Schema) Len() int {
	return len(self.Fields)
}

func (self *Schema) Field(idx int) *Field {
	return self.Fields[idx]
}

func (self *Schema) Names() []string {
	out := make([]string, 0, len(self.Fields))
	for _, f := range self.Fields {
		out = append(out, f.Name)
	}
	return out
}

func (self *Schema) Types() []DataType {
	out := make([]DataType, 0, len(self.Fields))
	for _, f := range self.Fields {
		out = append(out, f.Type)
	}
	return out
}

// IndexOf finds the column by its optional qualifier and its name. An
// unqualified name matching columns from more than one relation is ambiguous
func (self *Schema) IndexOf(qualifier, name string) (int, error) {
	found := -1
	for idx, f := range self.Fields {
		if f.Name != name {
			continue
		}
		if qualifier != "" && f.Qualifier != qualifier {
			continue
		}
		if found >= 0 {
			return -1, planErr("resolve", ErrAmbiguousColumn,
				"column %s is ambiguous, candidates %s and %s",
				qualifiedName(qualifier, name),
				self.Fields[found].QualifiedName(),
				f.QualifiedName())
		}
		found = idx
	}
	if found < 0 {
		return -1, planErr("resolve", ErrUnresolvedColumn,
			"column %s not found, valid fields are [%s]",
			qualifiedName(qualifier, name),
			strings.Join(self.qualifiedNames(), ", "))
	}
	return found, nil
}

// Resolve accepts a column written as "name" or "qualifier.name". A name
// which itself contains a dot, like an aggregate output column, is tried
// verbatim first
func (self *Schema) Resolve(name string) (int, error) {
	idx, err := self.IndexOf("", name)
	if err == nil {
		return idx, nil
	}
	if pos := strings.IndexByte(name, '.'); pos > 0 && pos < len(name)-1 {
		return self.IndexOf(name[:pos], name[pos+1:])
	}
	return -1, err
}

// Merge concatenates 2 schemas, used by joins
func (self *Schema) Merge(other *Schema) *Schema {
	fields := make([]*Field, 0, self.Len()+other.Len())
	fields = append(fields, self.Fields...)
	fields = append(fields, other.Fields...)
	return &Schema{Fields: fields}
}

// Equivalent reports whether 2 schemas have the same column names and types
// in the same order. Qualifiers and nullability are ignored
func (self *Schema) Equivalent(other *Schema) bool {
	if self.Len() != other.Len() {
		return false
	}
	for idx, f := range self.Fields {
		o := other.Fields[idx]
		if f.Name != o.Name || f.Type != o.Type {
			return false
		}
	}
	return true
}

// WithQualifier re-qualifies every column, used by table aliases
func (self *Schema) WithQualifier(qualifier string) *Schema {
	fields := make([]*Field, 0, self.Len())
	for _, f := range self.Fields {
		nf := *f
		nf.Qualifier = qualifier
		fields = append(fields, &nf)
	}
	return &Schema{Fields: fields}
}

// WithNullable marks every column nullable, used for the padded side of an
// outer join
func (self *Schema) WithNullable() *Schema {
	fields := make([]*Field, 0, self.Len())
	for _, f := range self.Fields {
		nf := *f
		nf.Nullable = true
		fields = append(fields, &nf)
	}
	return &Schema{Fields: fields}
}

func (self *Schema) qualifiedNames() []string {
	out := make([]string, 0, len(self.Fields))
	for _, f := range self.Fields {
		out = append(out, f.QualifiedName())
	}
	return out
}

func (self *Schema) String() string {
	parts := make([]string, 0, len(self.Fields))
	for _, f := range self.Fields {
		parts = append(parts, f.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func qualifiedName(qualifier, name string) string {
	if qualifier == "" {
		return name
	}
	return qualifier + "." + name
}
