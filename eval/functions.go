package eval

import (
	"fmt"
	"strings"
	"time"

	"github.com/fetchql/fetchql/types"
)

// Function represents a scalar function contract
type Function struct {
	Name        string
	MinArgs     int
	MaxArgs     int
	AcceptsNull bool // skip the NULL-argument short circuit
	DatePartArg bool // first argument is a datepart keyword
	Fn          func(args []types.Value) (types.Value, error)
}

// Registry is an immutable case-insensitive table of scalar functions.
// It is built once per evaluator and never mutated afterwards.
type Registry struct {
	funcs map[string]*Function
}

// NewRegistry builds the default function table
func NewRegistry() *Registry {
	r := &Registry{funcs: map[string]*Function{}}

	for _, fn := range []*Function{
		{Name: "GETDATE", Fn: getDate},
		{Name: "GETUTCDATE", Fn: getUTCDate},
		{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Fn: datePartExtractor(DatePartYear)},
		{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Fn: datePartExtractor(DatePartMonth)},
		{Name: "DAY", MinArgs: 1, MaxArgs: 1, Fn: datePartExtractor(DatePartDay)},
		{Name: "DATEADD", MinArgs: 3, MaxArgs: 3, DatePartArg: true, Fn: fnDateAdd},
		{Name: "DATEDIFF", MinArgs: 3, MaxArgs: 3, DatePartArg: true, Fn: fnDateDiff},
		{Name: "DATEPART", MinArgs: 2, MaxArgs: 2, DatePartArg: true, Fn: fnDatePart},
		{Name: "DATETRUNC", MinArgs: 2, MaxArgs: 2, DatePartArg: true, Fn: fnDateTrunc},
		{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Fn: fnUpper},
		{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Fn: fnLower},
		{Name: "LEN", MinArgs: 1, MaxArgs: 1, Fn: fnLen},
		{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Fn: fnTrim},
		{Name: "LEFT", MinArgs: 2, MaxArgs: 2, Fn: fnLeft},
		{Name: "RIGHT", MinArgs: 2, MaxArgs: 2, Fn: fnRight},
		{Name: "REPLACE", MinArgs: 3, MaxArgs: 3, Fn: fnReplace},
		{Name: "SUBSTRING", MinArgs: 3, MaxArgs: 3, Fn: fnSubstring},
		{Name: "ISNULL", MinArgs: 2, MaxArgs: 2, AcceptsNull: true, Fn: fnIsNull},
	} {
		r.funcs[strings.ToLower(fn.Name)] = fn
	}

	return r
}

// Lookup finds a function by case-insensitive name
func (r *Registry) Lookup(name string) (*Function, bool) {
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

// Call dispatches a function by name, enforcing arity and the NULL-argument
// short circuit: NULL in any argument yields NULL unless the function opts
// out (ISNULL) or takes no arguments (GETDATE, GETUTCDATE).
func (r *Registry) Call(name string, args []types.Value) (types.Value, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown function %s: %w", name, ErrUnsupported)
	}

	if len(args) < fn.MinArgs || len(args) > fn.MaxArgs {
		return nil, fmt.Errorf("%s: expected between %d and %d arguments, got %d",
			fn.Name, fn.MinArgs, fn.MaxArgs, len(args))
	}

	if !fn.AcceptsNull {
		for _, a := range args {
			if types.IsNull(a) {
				return types.Null, nil
			}
		}
	}

	return fn.Fn(args)
}

func getDate([]types.Value) (types.Value, error) {
	return &types.DateTime{Value: time.Now()}, nil
}

func getUTCDate([]types.Value) (types.Value, error) {
	return &types.DateTime{Value: time.Now().UTC()}, nil
}

func datePartExtractor(part DatePart) func([]types.Value) (types.Value, error) {
	return func(args []types.Value) (types.Value, error) {
		t, err := argDateTime(args[0])
		if err != nil {
			return nil, err
		}

		return &types.Int{Value: datePartOf(part, t)}, nil
	}
}

func fnDateAdd(args []types.Value) (types.Value, error) {
	part, err := argDatePart(args[0])
	if err != nil {
		return nil, err
	}

	n, err := argInt(args[1])
	if err != nil {
		return nil, err
	}

	t, err := argDateTime(args[2])
	if err != nil {
		return nil, err
	}

	return &types.DateTime{Value: dateAdd(part, n, t)}, nil
}

func fnDateDiff(args []types.Value) (types.Value, error) {
	part, err := argDatePart(args[0])
	if err != nil {
		return nil, err
	}

	a, err := argDateTime(args[1])
	if err != nil {
		return nil, err
	}

	b, err := argDateTime(args[2])
	if err != nil {
		return nil, err
	}

	diff, err := dateDiff(part, a, b)
	if err != nil {
		return nil, err
	}

	return &types.Int{Value: diff}, nil
}

func fnDatePart(args []types.Value) (types.Value, error) {
	part, err := argDatePart(args[0])
	if err != nil {
		return nil, err
	}

	t, err := argDateTime(args[1])
	if err != nil {
		return nil, err
	}

	return &types.Int{Value: datePartOf(part, t)}, nil
}

func fnDateTrunc(args []types.Value) (types.Value, error) {
	part, err := argDatePart(args[0])
	if err != nil {
		return nil, err
	}

	t, err := argDateTime(args[1])
	if err != nil {
		return nil, err
	}

	return &types.DateTime{Value: dateTrunc(part, t)}, nil
}

func fnUpper(args []types.Value) (types.Value, error) {
	return &types.String{Value: strings.ToUpper(args[0].Format())}, nil
}

func fnLower(args []types.Value) (types.Value, error) {
	return &types.String{Value: strings.ToLower(args[0].Format())}, nil
}

// fnLen returns the character count excluding trailing spaces
func fnLen(args []types.Value) (types.Value, error) {
	s := strings.TrimRight(args[0].Format(), " ")
	return &types.Int{Value: int64(len([]rune(s)))}, nil
}

func fnTrim(args []types.Value) (types.Value, error) {
	return &types.String{Value: strings.TrimSpace(args[0].Format())}, nil
}

func fnLeft(args []types.Value) (types.Value, error) {
	n, err := argInt(args[1])
	if err != nil {
		return nil, err
	}

	runes := []rune(args[0].Format())
	if n < 0 {
		return nil, fmt.Errorf("LEFT: negative length")
	}

	if n > int64(len(runes)) {
		n = int64(len(runes))
	}

	return &types.String{Value: string(runes[:n])}, nil
}

func fnRight(args []types.Value) (types.Value, error) {
	n, err := argInt(args[1])
	if err != nil {
		return nil, err
	}

	runes := []rune(args[0].Format())
	if n < 0 {
		return nil, fmt.Errorf("RIGHT: negative length")
	}

	if n > int64(len(runes)) {
		n = int64(len(runes))
	}

	return &types.String{Value: string(runes[int64(len(runes))-n:])}, nil
}

func fnReplace(args []types.Value) (types.Value, error) {
	return &types.String{
		Value: strings.ReplaceAll(args[0].Format(), args[1].Format(), args[2].Format()),
	}, nil
}

// fnSubstring extracts a substring with 1-based start
func fnSubstring(args []types.Value) (types.Value, error) {
	start, err := argInt(args[1])
	if err != nil {
		return nil, err
	}

	length, err := argInt(args[2])
	if err != nil {
		return nil, err
	}

	if length < 0 {
		return nil, fmt.Errorf("SUBSTRING: negative length")
	}

	runes := []rune(args[0].Format())

	// start is 1-based and may fall before the string
	from := start - 1
	to := from + length

	if from < 0 {
		from = 0
	}

	if from > int64(len(runes)) {
		from = int64(len(runes))
	}

	if to < from {
		to = from
	}

	if to > int64(len(runes)) {
		to = int64(len(runes))
	}

	return &types.String{Value: string(runes[from:to])}, nil
}

func fnIsNull(args []types.Value) (types.Value, error) {
	if types.IsNull(args[0]) {
		return args[1], nil
	}

	return args[0], nil
}

func argDatePart(v types.Value) (DatePart, error) {
	s, ok := v.(*types.String)
	if !ok {
		return "", fmt.Errorf("%q: %w", v.Format(), ErrInvalidDatePart)
	}

	return ParseDatePart(s.Value)
}

func argInt(v types.Value) (int64, error) {
	d, ok := types.AsDecimal(v)
	if !ok {
		return 0, fmt.Errorf("expected a numeric argument, got %s", v.Kind())
	}

	return d.IntPart(), nil
}

// dateTimeLayouts accepted when coercing strings to datetime values
var dateTimeLayouts = []string{
	types.DateTimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func argDateTime(v types.Value) (time.Time, error) {
	switch val := v.(type) {
	case *types.DateTime:
		return val.Value, nil
	case *types.String:
		return parseDateTime(val.Value)
	}

	return time.Time{}, fmt.Errorf("expected a datetime argument, got %s", v.Kind())
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot convert %q to datetime", s)
}
