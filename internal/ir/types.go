package ir

import "fmt"

// Type is a value type carried by instruction results and typed operands.
// The set mirrors the type suffixes the lexer/parser recognize (§4.1):
// i8..i128, f32..f128, v64.
type Type interface {
	String() string
	Size() int
}

type IntType struct{ Bits int }

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }
func (t *IntType) Size() int      { return (t.Bits + 7) / 8 }

type FloatType struct{ Bits int }

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }
func (t *FloatType) Size() int      { return (t.Bits + 7) / 8 }

// VecType is the v64 vector type: 64 bits, opaque to arithmetic.
type VecType struct{}

func (t *VecType) String() string { return "v64" }
func (t *VecType) Size() int      { return 8 }

var (
	I8   = &IntType{8}
	I16  = &IntType{16}
	I32  = &IntType{32}
	I64  = &IntType{64}
	I128 = &IntType{128}
	F32  = &FloatType{32}
	F64  = &FloatType{64}
	F80  = &FloatType{80}
	F128 = &FloatType{128}
	V64  = &VecType{}
)

// typesByName maps the lexical type suffix spelling to its Type.
var typesByName = map[string]Type{
	"i8": I8, "i16": I16, "i32": I32, "i64": I64, "i128": I128,
	"f32": F32, "f64": F64, "f80": F80, "f128": F128,
	"v64": V64,
}

// LookupType resolves a type-suffix token's spelling, e.g. "i64".
func LookupType(name string) (Type, bool) {
	t, ok := typesByName[name]
	return t, ok
}
