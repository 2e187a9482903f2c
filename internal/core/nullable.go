package core

import "github.com/shopspring/decimal"

// The admin forms treat "no value" loosely: an untouched field, a cleared
// field and a zero all mean the same thing to the backend, which expects an
// explicit null. These helpers collapse every falsy form to nil so exactly
// one canonical sentinel goes over the wire.

// Nullable collapses nil and the empty string to nil.
func Nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// NullableID collapses nil and a zero id to nil.
func NullableID(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

// NullableInt collapses nil and zero to nil.
func NullableInt(n *int) *int {
	if n == nil || *n == 0 {
		return nil
	}
	return n
}

// NullableDecimal collapses nil and a zero amount to nil.
func NullableDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}
