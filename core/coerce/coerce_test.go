package coerce

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"integer":                        KindInteger,
		"BIGINT":                         KindInteger,
		"int(11) unsigned":               KindInteger,
		"tinyint(1)":                     KindInteger,
		"double precision":               KindFloat,
		"real":                           KindFloat,
		"float8":                         KindFloat,
		"date":                           KindDate,
		"timestamp without time zone":    KindDate,
		"timestamp(6) without time zone": KindDate,
		"datetime":                       KindDate,
		"numeric":                        KindOther,
		"decimal(10,2)":                  KindOther,
		"character varying":              KindOther,
		"varchar(60)":                    KindOther,
		"boolean":                        KindOther,
		"jsonb":                          KindOther,
		"":                               KindOther,
	}

	for in, want := range tests {
		assert.Equal(t, want, KindOf(in), in)
	}
}

func TestValue_MissingIsNullForEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindInteger, KindFloat, KindDate, KindOther} {
		assert.Nil(t, Value(Missing, kind), kind.String())
		assert.Nil(t, Value(nil, kind), kind.String())
		assert.Nil(t, Value(math.NaN(), kind), kind.String())
	}
}

func TestValue_Narrowing(t *testing.T) {
	assert.Equal(t, int64(5), Value("5", KindInteger))
	assert.Equal(t, int64(5), Value("5.0", KindInteger))
	assert.Equal(t, int64(7), Value(int32(7), KindInteger))
	assert.Equal(t, int64(3), Value(3.0, KindInteger))
	assert.Equal(t, 2.5, Value("2.5", KindFloat))
	assert.Equal(t, float64(float32(0.5)), Value(float32(0.5), KindFloat))
}

func TestValue_FailOpen(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "abc", Value("abc", KindInteger))
	assert.Equal(t, "5.5", Value("5.5", KindInteger))
	assert.Equal(t, 4, Value(4, KindFloat))
	assert.Equal(t, "2024-10-04", Value("2024-10-04", KindDate))
	assert.Equal(t, now, Value(now, KindDate))
	assert.Equal(t, "12.50", Value("12.50", KindOther))
	assert.Equal(t, true, Value(true, KindOther))
	assert.Equal(t, "x", Value("x", Kind(99)))
}

func TestRow(t *testing.T) {
	got := Row(
		[]any{"1", Missing, "2.5", "hello", "extra"},
		[]Kind{KindInteger, KindDate, KindFloat, KindOther},
	)
	assert.Equal(t, []any{int64(1), nil, 2.5, "hello", "extra"}, got)
}
