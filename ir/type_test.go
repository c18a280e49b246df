package ir

import "testing"

func TestBitWidth(t *testing.T) {
	cases := []struct {
		name string
		t    Type
		want uint
	}{
		{"int8", Int(8), 8},
		{"int32", Int(32), 32},
		{"float", Float(), 32},
		{"double", Double(), 64},
		{"void", Void(), 0},
		{"pointer", Pointer(), 64},
		{"struct", Struct(Int(8), Int(16), Float()), 56},
		{"vector", Vector(Int(8), 4), 32},
		{"nested struct", Struct(Struct(Int(4), Int(4)), Int(8)), 16},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.t.BitWidth(); got != c.want {
				t.Errorf("BitWidth() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestTypeEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same int width", Int(8), Int(8), true},
		{"different int width", Int(8), Int(16), false},
		{"different kind", Int(8), Float(), false},
		{"equal structs", Struct(Int(8), Float()), Struct(Int(8), Float()), true},
		{"structs differ by field", Struct(Int(8), Float()), Struct(Int(8), Double()), false},
		{"structs differ by arity", Struct(Int(8)), Struct(Int(8), Int(8)), false},
		{"equal vectors", Vector(Int(8), 4), Vector(Int(8), 4), true},
		{"vectors differ by len", Vector(Int(8), 4), Vector(Int(8), 8), false},
		{"void equals void", Void(), Void(), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.want {
				t.Errorf("Equal() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	cases := []struct {
		t    Type
		want string
	}{
		{Int(32), "i32"},
		{Float(), "float"},
		{Struct(Int(8), Int(16)), "{i8, i16}"},
		{Vector(Int(8), 4), "<4 x i8>"},
	}
	for _, c := range cases {
		if got := c.t.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestIntZeroWidthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Int(0) to panic")
		}
	}()
	Int(0)
}

func TestVectorNonPositiveLenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Vector with n<=0 to panic")
		}
	}()
	Vector(Int(8), 0)
}

func TestElemTypeOnNonVectorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ElemType on non-vector to panic")
		}
	}()
	Int(8).ElemType()
}
