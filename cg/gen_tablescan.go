package cg

import (
	"fmt"
	"strings"
	"text/template"
)

type tableScanGen struct {
	HasHeader bool
	Filter    string
	Print     string
}

const tableScanTemplate = `BEGIN {
  OFS = sprintf("%c", 31);
  ORS = sprintf("%c", 30);
}
{
{{- if .HasHeader}}
  if (FNR <= 1) {
    next;
  }
{{- end}}
{{- if ne .Filter ""}}
  if (!({{.Filter}})) {
    next;
  }
{{- end}}
  print {{.Print}};
}
`

var tableScanTmpl = template.Must(newtemplate(tableScanTemplate))

func newtemplate(
	xx string,
) (*template.Template, error) {
	return template.New("[template]").Parse(xx)
}

// printList renders the print arguments for the projected columns. A scan
// without columns still emits one empty record per input record so that the
// row count is preserved.
func printList(cols []int) string {
	if len(cols) == 0 {
		return `""`
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, field(c))
	}
	return strings.Join(out, ", ")
}

func (self *tableScanGen) gen() (string, error) {
	out := &strings.Builder{}
	if err := tableScanTmpl.Execute(out, self); err != nil {
		return "", err
	}
	return out.String(), nil
}

// The sample program prints the field count and every field of the leading
// records, it is used to infer the schema of a file.
const sampleTemplate = `BEGIN {
  OFS = sprintf("%c", 31);
  ORS = sprintf("%c", 30);
}
{
  line = "";
  for (i = 1; i <= NF; i++) {
    line = (i == 1) ? $i : (line OFS $i);
  }
  print NF, line;
  if (NR >= {{.}}) {
    exit;
  }
}
`

var sampleTmpl = template.Must(newtemplate(sampleTemplate))

// GenerateSample returns the program printing at most records records, each
// output record is the field count followed by the fields
func GenerateSample(records int) (string, error) {
	if records <= 0 {
		return "", fmt.Errorf("codegen(Sample): record count must be positive, got %d", records)
	}
	out := &strings.Builder{}
	if err := sampleTmpl.Execute(out, records); err != nil {
		return "", err
	}
	return out.String(), nil
}
