package interp

import (
	"fmt"

	"yc/ast"
)

// FuncStore pairs a function declaration with the instance context it
// was declared in, if any. The context is held through a placeholder
// cell, so releasing the context never destroys the instance; the cell
// stays in the instance's back-reference list while the method exists.
type FuncStore struct {
	Decl    *ast.FuncDecl
	context Cell
}

func NewFuncStore(fd *ast.FuncDecl, instance *Value) *FuncStore {
	fs := &FuncStore{Decl: fd}
	fs.context.placeholder = true
	if instance != nil {
		fs.context.Acquire(instance)
	}
	return fs
}

func (fs *FuncStore) Context() *Value { return fs.context.Get() }

// Value is a runtime value: a declared type, a payload, a const flag,
// and the registry of every cell currently holding it.
type Value struct {
	Type  ast.TypeDecl
	Const bool

	cells     []*Cell
	destroyed bool

	// Payload; which field is live follows Type.
	B     bool
	U8    uint8
	I32   int32
	F32   float32
	F64   float64
	Ch    byte
	Str   string
	Arr   []*Cell        // fixed-length array elements
	Fn    *FuncStore     // TFunc
	RtFn  string         // TRuntime: built-in name
	Class *ast.ClassDecl // TRuntime: class descriptor
	Union *ast.UnionDecl // TRuntime: union descriptor
	Inst  *SymTable      // TClass: instance state
	// TypeArg is a generic binding: a type stored as a value under the
	// generic parameter's name in an instance table.
	TypeArg *ast.TypeDecl
}

var voidValue = &Value{Type: ast.TypeDecl{Base: ast.TVoid}}

// Void is the sentinel for expressions with no value.
func Void() *Value { return voidValue }

func (v *Value) IsVoid() bool { return v.Type.Base == ast.TVoid }

func NewBool(b bool) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TBool}, B: b}
}

func NewUint8(u uint8) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TUint8}, U8: u}
}

func NewChar(c byte) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TChar}, Ch: c}
}

func NewInt32(i int32) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TInt32}, I32: i}
}

func NewFp32(f float32) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TFp32}, F32: f}
}

func NewFp64(f float64) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TFp64}, F64: f}
}

func NewStr(s string) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TStr}, Str: s}
}

func NewFunc(fs *FuncStore) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TFunc}, Fn: fs, Const: true}
}

func NewRuntimeFunc(name string) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TRuntime}, RtFn: name, Const: true}
}

func NewClassDescriptor(cd *ast.ClassDecl) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TRuntime}, Class: cd, Const: true}
}

func NewUnionDescriptor(ud *ast.UnionDecl) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TRuntime}, Union: ud, Const: true}
}

func NewInstance(st *SymTable, typ ast.TypeDecl) *Value {
	return &Value{Type: typ, Inst: st}
}

func NewTypeArg(td *ast.TypeDecl) *Value {
	return &Value{Type: ast.TypeDecl{Base: ast.TRuntime}, TypeArg: td, Const: true}
}

// Zero builds the zero value for a declared type; an array of length N
// pre-materializes N cells each holding a fresh zero element.
func Zero(td *ast.TypeDecl) *Value {
	if td.ArrayLen != 0 {
		elem := *td
		elem.ArrayLen = 0
		arr := &Value{Type: *td, Arr: make([]*Cell, td.ArrayLen)}
		for i := range arr.Arr {
			cell := &Cell{}
			cell.Acquire(Zero(&elem))
			arr.Arr[i] = cell
		}
		return arr
	}

	switch td.Base {
	case ast.TBool:
		return NewBool(false)
	case ast.TUint8:
		return NewUint8(0)
	case ast.TChar:
		return NewChar(0)
	case ast.TInt32:
		return NewInt32(0)
	case ast.TFp32:
		return NewFp32(0)
	case ast.TFp64:
		return NewFp64(0)
	case ast.TStr:
		return NewStr("")
	default:
		return &Value{Type: *td}
	}
}

// RefCount is the number of cells currently holding the value.
func (v *Value) RefCount() int { return len(v.cells) }

func (v *Value) Destroyed() bool { return v.destroyed }

// destroy releases everything the value owns. Arrays release their
// element cells; instances pop every frame of their table.
func (v *Value) destroy() {
	if v.destroyed || v == voidValue {
		return
	}
	v.destroyed = true
	for _, cell := range v.Arr {
		cell.Release()
	}
	v.Arr = nil
	if v.Inst != nil {
		v.Inst.Reset()
		v.Inst = nil
	}
}

// DeepCopy clones the value and, recursively, everything it owns.
// Function and descriptor values are shared, matching the copy
// discipline for non-data payloads.
func (v *Value) DeepCopy() *Value {
	clone := &Value{Type: v.Type, Const: v.Const,
		B: v.B, U8: v.U8, I32: v.I32, F32: v.F32, F64: v.F64,
		Ch: v.Ch, Str: v.Str,
		Fn: v.Fn, RtFn: v.RtFn, Class: v.Class, Union: v.Union,
		TypeArg: v.TypeArg,
	}
	if v.Arr != nil {
		clone.Arr = make([]*Cell, len(v.Arr))
		for i, cell := range v.Arr {
			c := &Cell{}
			if elem := cell.Get(); elem != nil {
				c.Acquire(elem.DeepCopy())
			}
			clone.Arr[i] = c
		}
	}
	if v.Inst != nil {
		clone.Inst = v.Inst.DeepCopy()
	}
	return clone
}

func (v *Value) String() string {
	if v.Type.ArrayLen != 0 {
		return v.Type.String()
	}
	switch v.Type.Base {
	case ast.TVoid:
		return "void"
	case ast.TBool:
		return fmt.Sprintf("%t", v.B)
	case ast.TUint8:
		return fmt.Sprintf("%d", v.U8)
	case ast.TChar:
		return string(v.Ch)
	case ast.TInt32:
		return fmt.Sprintf("%d", v.I32)
	case ast.TFp32:
		return fmt.Sprintf("%g", v.F32)
	case ast.TFp64:
		return fmt.Sprintf("%g", v.F64)
	case ast.TStr:
		return v.Str
	case ast.TClass:
		return v.Type.String() + " instance"
	case ast.TFunc:
		return fmt.Sprintf("<fn %s>", v.Fn.Decl.Name)
	case ast.TRuntime:
		switch {
		case v.Class != nil:
			return "<class " + v.Class.Name.String() + ">"
		case v.Union != nil:
			return "<union " + v.Union.Name.String() + ">"
		case v.TypeArg != nil:
			return "<type " + v.TypeArg.String() + ">"
		default:
			return "<builtin " + v.RtFn + ">"
		}
	}
	return "<unknown>"
}
