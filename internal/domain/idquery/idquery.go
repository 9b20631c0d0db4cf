package idquery

import (
	"strings"

	"github.com/kailas-cloud/multiid/internal/domain/idfield"
)

// Separator joins per-field clauses (logical OR).
const Separator = " || "

// Query is a flat OR of phrase matches of one value across identifier fields.
type Query string

// Build returns `f1:"v" || f2:"v" ...` for every field in order.
// An empty field list is treated as ["id"]. Only double quotes in value are escaped.
func Build(fields idfield.List, value string) Query {
	fields = fields.OrDefault()
	escaped := quoteEscaper.Replace(value)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(f)
		b.WriteString(`:"`)
		b.WriteString(escaped)
		b.WriteByte('"')
	}
	return Query(b.String())
}

// String returns the expression.
func (q Query) String() string { return string(q) }

var quoteEscaper = strings.NewReplacer(`"`, `\"`)
