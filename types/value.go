package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// Null is the global null value
	Null = &NullValue{}
	// True is the global true value
	True = &Bool{Value: true}
	// False is the global false value
	False = &Bool{Value: false}
)

// Kind defines the value kind enum
type Kind string

const (
	// KindNull kind used to represent the null value
	KindNull Kind = "null"
	// KindInt kind used to represent 64-bit integers
	KindInt Kind = "int"
	// KindDecimal kind used to represent fixed-point decimals
	KindDecimal Kind = "decimal"
	// KindDouble kind used to represent floating-point numbers
	KindDouble Kind = "double"
	// KindString kind used to represent strings
	KindString Kind = "string"
	// KindBool kind used to represent booleans
	KindBool Kind = "bool"
	// KindDateTime kind used to represent timestamps
	KindDateTime Kind = "datetime"
	// KindGuid kind used to represent globally unique identifiers
	KindGuid Kind = "guid"
)

// numericKinds kinds that participate in arithmetic promotion
var numericKinds = map[Kind]bool{
	KindInt:     true,
	KindDecimal: true,
	KindDouble:  true,
}

// DateTimeFormat is the invariant text form of datetime values.
const DateTimeFormat = "2006-01-02 15:04:05"

// Value abstraction of the typed scalars flowing through rows and expressions
type Value interface {
	Kind() Kind
	Format() string
}

// Int is the representation of 64-bit integers
type Int struct {
	Value int64
}

// Kind returns the value kind
func (v *Int) Kind() Kind {
	return KindInt
}

// Format returns the invariant text form of the value
func (v *Int) Format() string {
	return strconv.FormatInt(v.Value, 10)
}

// Decimal is the representation of fixed-point decimals
type Decimal struct {
	Value decimal.Decimal
}

// Kind returns the value kind
func (v *Decimal) Kind() Kind {
	return KindDecimal
}

// Format returns the invariant text form of the value
func (v *Decimal) Format() string {
	return v.Value.String()
}

// Double is the representation of floating-point numbers
type Double struct {
	Value float64
}

// Kind returns the value kind
func (v *Double) Kind() Kind {
	return KindDouble
}

// Format returns the invariant text form of the value
func (v *Double) Format() string {
	return strconv.FormatFloat(v.Value, 'g', -1, 64)
}

// String is the representation of strings
type String struct {
	Value string
}

// Kind returns the value kind
func (v *String) Kind() Kind {
	return KindString
}

// Format returns the invariant text form of the value
func (v *String) Format() string {
	return v.Value
}

// Bool is the representation of booleans
type Bool struct {
	Value bool
}

// Kind returns the value kind
func (v *Bool) Kind() Kind {
	return KindBool
}

// Format returns the invariant text form of the value
func (v *Bool) Format() string {
	return strconv.FormatBool(v.Value)
}

// DateTime is the representation of timestamps
type DateTime struct {
	Value time.Time
}

// Kind returns the value kind
func (v *DateTime) Kind() Kind {
	return KindDateTime
}

// Format returns the invariant text form of the value
func (v *DateTime) Format() string {
	return v.Value.Format(DateTimeFormat)
}

// Guid is the representation of globally unique identifiers
type Guid struct {
	Value uuid.UUID
}

// Kind returns the value kind
func (v *Guid) Kind() Kind {
	return KindGuid
}

// Format returns the invariant text form of the value
func (v *Guid) Format() string {
	return v.Value.String()
}

// NullValue is the representation of the null value
type NullValue struct{}

// Kind returns the value kind
func (v *NullValue) Kind() Kind {
	return KindNull
}

// Format returns the invariant text form of the value
func (v *NullValue) Format() string {
	return ""
}

// IsNull reports whether the value is absent or the null value
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

// IsNumeric reports whether the value participates in numeric promotion
func IsNumeric(v Value) bool {
	return v != nil && numericKinds[v.Kind()]
}

// NewBool returns the shared boolean value for the native input
func NewBool(input bool) *Bool {
	if input {
		return True
	}

	return False
}

// AsDecimal converts a numeric value to its decimal form
func AsDecimal(v Value) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case *Int:
		return decimal.NewFromInt(val.Value), true
	case *Decimal:
		return val.Value, true
	case *Double:
		return decimal.NewFromFloat(val.Value), true
	}

	return decimal.Decimal{}, false
}

// ParseNumeric parses the string as a numeric value if possible
func ParseNumeric(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}

	return d, true
}

// FromNative converts a native Go scalar to a Value.
// Unknown types fall back to their string form.
func FromNative(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null
	case bool:
		return NewBool(val)
	case int:
		return &Int{Value: int64(val)}
	case int64:
		return &Int{Value: val}
	case float64:
		return &Double{Value: val}
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return &DateTime{Value: t.UTC()}
		}

		if t, err := time.Parse(DateTimeFormat, val); err == nil {
			return &DateTime{Value: t.UTC()}
		}

		if id, err := uuid.Parse(val); err == nil {
			return &Guid{Value: id}
		}

		return &String{Value: val}
	case time.Time:
		return &DateTime{Value: val.UTC()}
	case uuid.UUID:
		return &Guid{Value: val}
	case decimal.Decimal:
		return &Decimal{Value: val}
	}

	return &String{Value: fmt.Sprintf("%v", v)}
}
