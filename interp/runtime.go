package interp

import (
	"fmt"

	"yc/ast"
	"yc/errs"
	"yc/lexer"
	"yc/parser"
	"yc/token"
)

// The built-in runtime. Each name is pre-registered as a
// runtime-function value; dispatch is by name at call time.

var runtimeNames = []string{
	"print",
	"debug",
	"to_char",
	"to_uint8",
	"to_int32",
	"to_fp32",
	"to_fp64",
	"__string_size",
	"__move",
	"__deepcopy",
	"import",
	"open",
}

func (in *Interpreter) bindRuntime() {
	for _, name := range runtimeNames {
		in.st.Define(ast.NewName(name), NewRuntimeFunc(name))
	}
}

func (in *Interpreter) dispatchRuntime(name string, v *ast.ExprVal, pos *token.Pos) (*Value, error) {
	call := v.Call
	switch name {
	case "print":
		return in.runtimePrint(call, pos)
	case "debug":
		return in.runtimeDebug(call, pos)
	case "to_char":
		return in.runtimeCast(ast.TChar, call, pos)
	case "to_uint8":
		return in.runtimeCast(ast.TUint8, call, pos)
	case "to_int32":
		return in.runtimeCast(ast.TInt32, call, pos)
	case "to_fp32":
		return in.runtimeCast(ast.TFp32, call, pos)
	case "to_fp64":
		return in.runtimeCast(ast.TFp64, call, pos)
	case "__string_size":
		return in.runtimeStringSize(call, pos)
	case "__move":
		return in.runtimeAssign(moveAssign, call, pos)
	case "__deepcopy":
		return in.runtimeAssign(deepAssign, call, pos)
	case "import":
		return in.runtimeImport(call, pos)
	case "open":
		return nil, errs.New(errs.NotImplemented, pos, "open() is reserved")
	}
	return nil, errs.New(errs.Internal, pos, "unknown runtime function %s", name)
}

func (in *Interpreter) runtimePrint(call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	for _, arg := range call.Args {
		val, err := in.evalEval(arg)
		if err != nil {
			return nil, err
		}
		if val.Type.ArrayLen != 0 {
			return nil, errs.New(errs.Type, pos, "cannot print an array")
		}
		switch val.Type.Base {
		case ast.TUint8:
			fmt.Fprintf(in.out, "%d ", val.U8)
		case ast.TInt32:
			fmt.Fprintf(in.out, "%d ", val.I32)
		case ast.TFp32:
			fmt.Fprintf(in.out, "%g ", val.F32)
		case ast.TFp64:
			fmt.Fprintf(in.out, "%g ", val.F64)
		case ast.TChar:
			fmt.Fprintf(in.out, "%c ", val.Ch)
		case ast.TStr:
			fmt.Fprintf(in.out, "%s ", val.Str)
		default:
			return nil, errs.New(errs.Type, pos, "unsupported type: %s", val.Type.String())
		}
	}
	fmt.Fprintln(in.out)
	return Void(), nil
}

func (in *Interpreter) runtimeDebug(call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	for _, arg := range call.Args {
		val, err := in.evalEval(arg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(in.out, "Debug info:")
		fmt.Fprintf(in.out, "\tConst Flag: %t\n", val.Const)
		fmt.Fprintf(in.out, "\tReference Counter: %d\n", val.RefCount())
		fmt.Fprintf(in.out, "\tType: %s\n", val.Type.String())
		fmt.Fprintf(in.out, "\tValue: %s\n", val.String())
	}
	return Void(), nil
}

// castable kinds for the to_* conversions
func scalarOf(v *Value) (float64, bool) {
	switch v.Type.Base {
	case ast.TUint8:
		return float64(v.U8), true
	case ast.TChar:
		return float64(v.Ch), true
	case ast.TInt32:
		return float64(v.I32), true
	case ast.TFp32:
		return float64(v.F32), true
	case ast.TFp64:
		return v.F64, true
	}
	return 0, false
}

func (in *Interpreter) runtimeCast(to ast.BaseType, call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	if len(call.Args) != 1 {
		return nil, errs.New(errs.Arity, pos, "type cast expects 1 argument but got %d", len(call.Args))
	}
	val, err := in.evalEval(call.Args[0])
	if err != nil {
		return nil, err
	}
	if val.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, pos, "type cast: operand is an array")
	}

	// int-valued source kinds convert exactly; float sources truncate
	switch to {
	case ast.TFp32, ast.TFp64:
		f, ok := scalarOf(val)
		if !ok {
			return nil, errs.New(errs.Type, pos, "type cast: unsupported type %s", val.Type.String())
		}
		if to == ast.TFp32 {
			return NewFp32(float32(f)), nil
		}
		return NewFp64(f), nil
	}

	var n int64
	switch val.Type.Base {
	case ast.TUint8:
		n = int64(val.U8)
	case ast.TChar:
		n = int64(val.Ch)
	case ast.TInt32:
		n = int64(val.I32)
	case ast.TFp32:
		n = int64(val.F32)
	case ast.TFp64:
		n = int64(val.F64)
	default:
		return nil, errs.New(errs.Type, pos, "type cast: unsupported type %s", val.Type.String())
	}

	switch to {
	case ast.TChar:
		return NewChar(byte(n)), nil
	case ast.TUint8:
		return NewUint8(uint8(n)), nil
	case ast.TInt32:
		return NewInt32(int32(n)), nil
	}
	return nil, errs.New(errs.Internal, pos, "bad cast target")
}

func (in *Interpreter) runtimeStringSize(call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	if len(call.Args) != 1 {
		return nil, errs.New(errs.Arity, pos, "__string_size expects 1 argument but got %d", len(call.Args))
	}
	val, err := in.evalEval(call.Args[0])
	if err != nil {
		return nil, err
	}
	if val.Type.Base != ast.TStr || val.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, pos, "__string_size: operand is %s, not str", val.Type.String())
	}
	return NewInt32(int32(len(val.Str))), nil
}

// runtimeAssign is the intrinsic form of the move and deepcopy
// disciplines: the first argument is taken unevaluated as an lvalue.
func (in *Interpreter) runtimeAssign(kind assignKind, call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	if len(call.Args) != 2 {
		return nil, errs.New(errs.Arity, pos, "assignment intrinsic expects 2 arguments but got %d", len(call.Args))
	}
	e := &ast.EvalExpr{Op: token.ASSIGN, L: call.Args[0], R: call.Args[1], Pos: *pos}
	return in.assign(e, kind)
}

func (in *Interpreter) runtimeImport(call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	if len(call.Args) != 1 {
		return nil, errs.New(errs.Arity, pos, "import expects 1 argument but got %d", len(call.Args))
	}
	val, err := in.evalEval(call.Args[0])
	if err != nil {
		return nil, err
	}
	if val.Type.Base != ast.TStr || val.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, pos, "import: operand is %s, not str", val.Type.String())
	}
	if in.Loader == nil {
		return nil, errs.New(errs.Import, pos, "no file loader configured")
	}

	source, err := in.Loader(val.Str)
	if err != nil {
		return nil, errs.New(errs.Import, pos, "%s: %v", val.Str, err)
	}
	toks, err := lexer.New(source).Scan()
	if err != nil {
		return nil, errs.New(errs.Import, pos, "%s failed to parse: %v", val.Str, err)
	}
	prog, err := parser.New(toks).Parse()
	if err != nil {
		return nil, errs.New(errs.Import, pos, "%s failed to parse: %v", val.Str, err)
	}

	// The module's declarations live in their own table; the returned
	// value wraps it like a class instance.
	module := NewSymTable()
	module.PushFrame()
	outer := in.st
	in.st = module
	declErr := in.Declare(prog)
	in.st = outer
	if declErr != nil {
		return nil, declErr
	}

	typ := ast.TypeDecl{Base: ast.TClass, Class: ast.NewName("import")}
	return NewInstance(module, typ), nil
}
