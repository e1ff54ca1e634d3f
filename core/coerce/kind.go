package coerce

import "strings"

// Kind is the coercion class of a declared column type.
type Kind int

const (
	// KindOther covers text, numeric/decimal, boolean, json and anything unrecognised.
	KindOther Kind = iota
	// KindInteger covers integer-like declared types.
	KindInteger
	// KindFloat covers floating-point declared types.
	KindFloat
	// KindDate covers date, time and timestamp declared types.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

var kindsByType = map[string]Kind{
	"smallint":    KindInteger,
	"integer":     KindInteger,
	"int":         KindInteger,
	"bigint":      KindInteger,
	"int2":        KindInteger,
	"int4":        KindInteger,
	"int8":        KindInteger,
	"tinyint":     KindInteger,
	"mediumint":   KindInteger,
	"smallserial": KindInteger,
	"serial":      KindInteger,
	"bigserial":   KindInteger,

	"real":             KindFloat,
	"double precision": KindFloat,
	"double":           KindFloat,
	"float":            KindFloat,
	"float4":           KindFloat,
	"float8":           KindFloat,

	"date":                        KindDate,
	"time":                        KindDate,
	"timestamp":                   KindDate,
	"timestamptz":                 KindDate,
	"datetime":                    KindDate,
	"timestamp without time zone": KindDate,
	"timestamp with time zone":    KindDate,
	"time without time zone":      KindDate,
	"time with time zone":         KindDate,
}

// KindOf classifies a declared SQL type as reported by the catalog.
// Length/precision modifiers and the mysql "unsigned" suffix are ignored.
func KindOf(dataType string) Kind {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(t[i:], ')'); j >= 0 {
			rest = t[i+j+1:]
		}
		t = strings.TrimSpace(t[:i] + rest)
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, "unsigned"))
	t = strings.TrimSpace(strings.TrimSuffix(t, "zerofill"))
	if k, ok := kindsByType[t]; ok {
		return k
	}
	return KindOther
}
