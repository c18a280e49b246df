// Package ir is the synthflow intermediate representation: types, ports,
// blocks, connections, the connection database, and modules. It realizes
// §3–4.1 of the design.
package ir

import (
	"fmt"
	"strings"
)

// Kind tags the shape of a Type.
type Kind int

const (
	KindInt Kind = iota
	KindHalf
	KindFloat
	KindDouble
	KindQuad
	KindVoid
	KindPointer
	KindStruct
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindHalf:
		return "half"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindQuad:
		return "quad"
	case KindVoid:
		return "void"
	case KindPointer:
		return "ptr"
	case KindStruct:
		return "struct"
	case KindVector:
		return "vector"
	default:
		return "?"
	}
}

// pointerWidth is the implementation-defined bit width of an opaque
// Pointer type.
const pointerWidth = 64

// scalarWidth gives the fixed bit width of every non-composite, non-Int
// Kind. Int carries its own explicit width; composites sum their elements.
var scalarWidth = map[Kind]uint{
	KindHalf:    16,
	KindFloat:   32,
	KindDouble:  64,
	KindQuad:    128,
	KindVoid:    0,
	KindPointer: pointerWidth,
}

// Type is a tagged sum: integer of width w; half/float/double/quad; void;
// pointer; struct of ordered element types; vector of N elements of a
// shared element type. Types are immutable values, safe to copy and
// compare with Equal.
type Type struct {
	kind     Kind
	width    uint   // KindInt only
	elems    []Type // KindStruct only
	elemType *Type  // KindVector only
	vecLen   int    // KindVector only
}

// Int returns an integer type of the given bit width.
func Int(width uint) Type {
	if width == 0 {
		lperrPanicZeroWidth()
	}
	return Type{kind: KindInt, width: width}
}

// Void returns the zero-width void type.
func Void() Type { return Type{kind: KindVoid} }

// Pointer returns the opaque pointer type.
func Pointer() Type { return Type{kind: KindPointer} }

// Half returns the IEEE-754 half precision float type.
func Half() Type { return Type{kind: KindHalf} }

// Float returns the IEEE-754 single precision float type.
func Float() Type { return Type{kind: KindFloat} }

// Double returns the IEEE-754 double precision float type.
func Double() Type { return Type{kind: KindDouble} }

// Quad returns the IEEE-754 quad precision float type.
func Quad() Type { return Type{kind: KindQuad} }

// Struct returns a struct type with the given ordered element types.
func Struct(elems ...Type) Type {
	cp := make([]Type, len(elems))
	copy(cp, elems)
	return Type{kind: KindStruct, elems: cp}
}

// Vector returns a vector type of n elements of the given element type.
func Vector(elem Type, n int) Type {
	if n <= 0 {
		lperrPanicBadVecLen(n)
	}
	et := elem
	return Type{kind: KindVector, elemType: &et, vecLen: n}
}

// Kind reports the tag of the type.
func (t Type) Kind() Kind { return t.kind }

// Elems returns the ordered element types of a struct type. It is nil for
// any other kind.
func (t Type) Elems() []Type {
	if t.kind != KindStruct {
		return nil
	}
	return t.elems
}

// ElemType returns the element type of a vector type. It panics on any
// other kind — callers must check Kind first.
func (t Type) ElemType() Type {
	if t.kind != KindVector {
		lperrPanicWrongKind("ElemType", t.kind)
	}
	return *t.elemType
}

// Len returns the element count of a vector type, or 0 for any other kind.
func (t Type) Len() int {
	if t.kind != KindVector {
		return 0
	}
	return t.vecLen
}

// BitWidth computes the bit width of the type inductively: the scalar
// width table for primitives, 0 for void, and the sum (struct) or product
// (vector) of element widths for composites.
func (t Type) BitWidth() uint {
	switch t.kind {
	case KindInt:
		return t.width
	case KindStruct:
		var sum uint
		for _, e := range t.elems {
			sum += e.BitWidth()
		}
		return sum
	case KindVector:
		return uint(t.vecLen) * t.ElemType().BitWidth()
	default:
		return scalarWidth[t.kind]
	}
}

// Equal reports whether two types are structurally identical.
func (t Type) Equal(other Type) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindInt:
		return t.width == other.width
	case KindStruct:
		if len(t.elems) != len(other.elems) {
			return false
		}
		for i := range t.elems {
			if !t.elems[i].Equal(other.elems[i]) {
				return false
			}
		}
		return true
	case KindVector:
		return t.vecLen == other.vecLen && t.ElemType().Equal(other.ElemType())
	default:
		return true
	}
}

// String renders the type the way the printer package embeds it in
// graphviz/text diagnostics.
func (t Type) String() string {
	switch t.kind {
	case KindInt:
		return fmt.Sprintf("i%d", t.width)
	case KindStruct:
		parts := make([]string, len(t.elems))
		for i, e := range t.elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindVector:
		return fmt.Sprintf("<%d x %s>", t.vecLen, t.ElemType())
	default:
		return t.kind.String()
	}
}

func lperrPanicZeroWidth() {
	panic("ImplementationError: ir.Int called with width 0")
}

func lperrPanicBadVecLen(n int) {
	panic(fmt.Sprintf("ImplementationError: ir.Vector called with n=%d", n))
}

func lperrPanicWrongKind(op string, k Kind) {
	panic(fmt.Sprintf("ImplementationError: %s called on non-vector type (kind=%s)", op, k))
}
