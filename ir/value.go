package ir

import (
	"fmt"
	"math/big"
)

// Value is a constant, typed datum: the payload a Constant block emits, or
// an intermediate result of constant propagation (query.FindConstants).
// Scalars carry a bit pattern; composites carry element Values.
type Value struct {
	typ   Type
	bits  *big.Int // KindInt/KindPointer/float kinds: raw bit pattern
	elems []Value  // KindStruct/KindVector
}

// NewIntValue builds a constant integer value, truncated to the type's
// bit width.
func NewIntValue(width uint, v int64) Value {
	t := Int(width)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), width), big.NewInt(1))
	bits := new(big.Int).And(big.NewInt(v), mask)
	return Value{typ: t, bits: bits}
}

// NewBitsValue builds a constant scalar value from an explicit bit
// pattern, for pointer/float kinds or widths too large for int64.
func NewBitsValue(t Type, bits *big.Int) Value {
	return Value{typ: t, bits: new(big.Int).Set(bits)}
}

// NewStructValue builds a constant struct value from element values. The
// element values' types must match t's declared element types in order.
func NewStructValue(t Type, elems ...Value) (Value, error) {
	decl := t.Elems()
	if len(decl) != len(elems) {
		return Value{}, fmt.Errorf("struct literal has %d elements, type wants %d", len(elems), len(decl))
	}
	for i, e := range elems {
		if !e.typ.Equal(decl[i]) {
			return Value{}, fmt.Errorf("struct element %d: type %s does not match %s", i, e.typ, decl[i])
		}
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{typ: t, elems: cp}, nil
}

// NewVectorValue builds a constant vector value from element values, all
// of which must match t's element type.
func NewVectorValue(t Type, elems ...Value) (Value, error) {
	if t.Len() != len(elems) {
		return Value{}, fmt.Errorf("vector literal has %d elements, type wants %d", len(elems), t.Len())
	}
	et := t.ElemType()
	for i, e := range elems {
		if !e.typ.Equal(et) {
			return Value{}, fmt.Errorf("vector element %d: type %s does not match %s", i, e.typ, et)
		}
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{typ: t, elems: cp}, nil
}

// Type reports the value's type.
func (v Value) Type() Type { return v.typ }

// Bits returns the raw bit pattern of a scalar value. It panics on a
// composite value.
func (v Value) Bits() *big.Int {
	if v.bits == nil {
		lperrPanicWrongKind("Bits", v.typ.kind)
	}
	return new(big.Int).Set(v.bits)
}

// Int64 returns the raw bit pattern of a scalar integer value as an
// int64, for the common case where the width fits.
func (v Value) Int64() int64 {
	return v.Bits().Int64()
}

// Extract projects a constant composite value via a sequence of indices,
// mirroring the stdlib Extract block's semantics. Each path element steps
// one struct field or vector lane deeper.
func (v Value) Extract(path ...int) (Value, error) {
	cur := v
	for _, idx := range path {
		if cur.elems == nil {
			return Value{}, fmt.Errorf("cannot index scalar value of type %s", cur.typ)
		}
		if idx < 0 || idx >= len(cur.elems) {
			return Value{}, fmt.Errorf("index %d out of range for %s", idx, cur.typ)
		}
		cur = cur.elems[idx]
	}
	return cur, nil
}

// Concat builds the composite Join of this value with others, in order,
// as the stdlib Join block would at constant-propagation time.
func Concat(t Type, parts ...Value) (Value, error) {
	switch t.Kind() {
	case KindStruct:
		return NewStructValue(t, parts...)
	case KindVector:
		return NewVectorValue(t, parts...)
	default:
		return Value{}, fmt.Errorf("cannot concatenate into scalar type %s", t)
	}
}

// Equal reports whether two constant values are identical (same type,
// same bits or same element values).
func (v Value) Equal(o Value) bool {
	if !v.typ.Equal(o.typ) {
		return false
	}
	if v.bits != nil {
		return o.bits != nil && v.bits.Cmp(o.bits) == 0
	}
	if len(v.elems) != len(o.elems) {
		return false
	}
	for i := range v.elems {
		if !v.elems[i].Equal(o.elems[i]) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	if v.bits != nil {
		return fmt.Sprintf("%s %s", v.typ, v.bits.String())
	}
	return fmt.Sprintf("%s %v", v.typ, v.elems)
}
