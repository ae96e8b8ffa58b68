package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fetchql/fetchql/types"
	"github.com/google/uuid"
)

// convertStyles maps T-SQL CONVERT styles to datetime layouts
var convertStyles = map[int64]string{
	101: "01/02/2006",
	102: "2006.01.02",
	103: "02/01/2006",
	104: "02.01.2006",
	105: "02-01-2006",
	110: "01-02-2006",
	111: "2006/01/02",
	112: "20060102",
	120: "2006-01-02 15:04:05",
	121: "2006-01-02 15:04:05.000",
	126: "2006-01-02T15:04:05",
}

// castValue implements CAST and CONVERT. A null input casts to null for
// every target type.
func castValue(v types.Value, typeName string, style *int64) (types.Value, error) {
	if types.IsNull(v) {
		return types.Null, nil
	}

	base, precision := splitTypeName(typeName)

	switch base {
	case "int", "bigint", "smallint", "tinyint":
		return castInt(v)
	case "decimal", "numeric", "money":
		return castDecimal(v)
	case "float", "real":
		return castDouble(v)
	case "bit":
		return castBool(v)
	case "varchar", "nvarchar", "char", "nchar", "text":
		return castString(v, precision, style)
	case "datetime", "datetime2", "smalldatetime":
		return castDateTime(v)
	case "date":
		t, err := castDateTime(v)
		if err != nil {
			return nil, err
		}

		dt := t.(*types.DateTime)

		return &types.DateTime{Value: dateTrunc(DatePartDay, dt.Value)}, nil
	case "uniqueidentifier":
		return castGuid(v)
	}

	return nil, fmt.Errorf("cast to %s: %w", typeName, ErrUnsupported)
}

// splitTypeName separates "varchar(100)" into base name and precision
func splitTypeName(typeName string) (string, int64) {
	name := strings.ToLower(strings.TrimSpace(typeName))

	open := strings.Index(name, "(")
	if open < 0 {
		return name, -1
	}

	base := name[:open]

	args := strings.TrimSuffix(name[open+1:], ")")
	if comma := strings.Index(args, ","); comma >= 0 {
		args = args[:comma]
	}

	precision, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return base, -1
	}

	return base, precision
}

func castInt(v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case *types.Bool:
		if val.Value {
			return &types.Int{Value: 1}, nil
		}

		return &types.Int{Value: 0}, nil
	case *types.String:
		d, ok := types.ParseNumeric(strings.TrimSpace(val.Value))
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to int", val.Value)
		}

		return &types.Int{Value: d.IntPart()}, nil
	}

	if d, ok := types.AsDecimal(v); ok {
		return &types.Int{Value: d.IntPart()}, nil
	}

	return nil, fmt.Errorf("cannot convert %s to int", v.Kind())
}

func castDecimal(v types.Value) (types.Value, error) {
	if d, ok := types.AsDecimal(v); ok {
		return &types.Decimal{Value: d}, nil
	}

	if s, ok := v.(*types.String); ok {
		d, ok := types.ParseNumeric(strings.TrimSpace(s.Value))
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to decimal", s.Value)
		}

		return &types.Decimal{Value: d}, nil
	}

	return nil, fmt.Errorf("cannot convert %s to decimal", v.Kind())
}

func castDouble(v types.Value) (types.Value, error) {
	if d, ok := types.AsDecimal(v); ok {
		return &types.Double{Value: d.InexactFloat64()}, nil
	}

	if s, ok := v.(*types.String); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float", s.Value)
		}

		return &types.Double{Value: f}, nil
	}

	return nil, fmt.Errorf("cannot convert %s to float", v.Kind())
}

func castBool(v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case *types.Bool:
		return val, nil
	case *types.String:
		switch strings.ToLower(strings.TrimSpace(val.Value)) {
		case "true", "1":
			return types.True, nil
		case "false", "0":
			return types.False, nil
		}

		return nil, fmt.Errorf("cannot convert %q to bit", val.Value)
	}

	if d, ok := types.AsDecimal(v); ok {
		return types.NewBool(!d.IsZero()), nil
	}

	return nil, fmt.Errorf("cannot convert %s to bit", v.Kind())
}

func castString(v types.Value, precision int64, style *int64) (types.Value, error) {
	s := v.Format()

	if dt, ok := v.(*types.DateTime); ok && style != nil {
		layout, ok := convertStyles[*style]
		if !ok {
			return nil, fmt.Errorf("unknown convert style %d", *style)
		}

		s = dt.Value.Format(layout)
	}

	if precision >= 0 {
		runes := []rune(s)
		if int64(len(runes)) > precision {
			s = string(runes[:precision])
		}
	}

	return &types.String{Value: s}, nil
}

func castDateTime(v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case *types.DateTime:
		return val, nil
	case *types.String:
		t, err := parseDateTime(val.Value)
		if err != nil {
			return nil, err
		}

		return &types.DateTime{Value: t}, nil
	}

	return nil, fmt.Errorf("cannot convert %s to datetime", v.Kind())
}

func castGuid(v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case *types.Guid:
		return val, nil
	case *types.String:
		id, err := uuid.Parse(strings.TrimSpace(val.Value))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to uniqueidentifier", val.Value)
		}

		return &types.Guid{Value: id}, nil
	}

	return nil, fmt.Errorf("cannot convert %s to uniqueidentifier", v.Kind())
}
