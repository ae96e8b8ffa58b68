package types

import "strings"

// Compare compares two values under the coercion ladder used by every
// comparison predicate:
//
//	two numerics compare as decimals;
//	a numeric against a parsable numeric string compares numerically;
//	datetime, guid and bool compare natively when both sides share the kind;
//	anything else compares as case-insensitive strings.
//
// It returns ok=false when either side is null; null never compares equal
// to anything, including null.
func Compare(a, b Value) (int, bool) {
	if IsNull(a) || IsNull(b) {
		return 0, false
	}

	if IsNumeric(a) && IsNumeric(b) {
		return compareNumeric(a, b)
	}

	if IsNumeric(a) && b.Kind() == KindString {
		if d, ok := ParseNumeric(b.Format()); ok {
			da, _ := AsDecimal(a)
			return da.Cmp(d), true
		}
	}

	if a.Kind() == KindString && IsNumeric(b) {
		if d, ok := ParseNumeric(a.Format()); ok {
			db, _ := AsDecimal(b)
			return d.Cmp(db), true
		}
	}

	if a.Kind() == b.Kind() {
		switch av := a.(type) {
		case *DateTime:
			bv := b.(*DateTime)
			return av.Value.Compare(bv.Value), true
		case *Guid:
			bv := b.(*Guid)
			return strings.Compare(av.Value.String(), bv.Value.String()), true
		case *Bool:
			bv := b.(*Bool)
			return compareBool(av.Value, bv.Value), true
		}
	}

	return compareFold(a.Format(), b.Format()), true
}

// Equal reports whether the two values compare equal under Compare.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

func compareNumeric(a, b Value) (int, bool) {
	da, _ := AsDecimal(a)
	db, _ := AsDecimal(b)

	return da.Cmp(db), true
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
