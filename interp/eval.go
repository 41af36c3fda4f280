// Package interp walks the AST directly. The walker is a synchronous
// recursive evaluator over a process-wide symbol table; control
// transfer (`return`, `break`, `continue`) travels as a signal next to
// the value, and errors unwind with frame pops still running so cell
// releases complete.
package interp

import (
	"io"
	"strconv"

	"yc/ast"
	"yc/errs"
	"yc/token"
)

type signal int

const (
	sigNone signal = iota
	sigReturn
	sigBreak
	sigContinue
)

type Interpreter struct {
	st  *SymTable
	out io.Writer

	// Loader reads the source behind an import path. The CLI wires the
	// file system in; a nil loader fails every import.
	Loader func(path string) (string, error)
}

func New(out io.Writer) *Interpreter {
	return &Interpreter{st: NewSymTable(), out: out}
}

// Globals exposes the symbol table; the REPL keeps one session table.
func (in *Interpreter) Globals() *SymTable { return in.st }

// BindRuntime registers the built-in names into the current top frame.
func (in *Interpreter) BindRuntime() { in.bindRuntime() }

// EvalStatements runs statements in the current frame (no new scope)
// and returns the value of a trailing bare expression, or nil.
func (in *Interpreter) EvalStatements(exprs []ast.Expr) (*Value, error) {
	var last *Value
	for _, e := range exprs {
		if ee, isEval := e.(*ast.EvalExpr); isEval {
			val, err := in.evalEval(ee)
			if err != nil {
				return nil, err
			}
			last = val
			continue
		}
		if _, _, err := in.execExpr(e); err != nil {
			return nil, err
		}
		last = nil
	}
	return last, nil
}

// Run executes a program: built-ins and top-level declarations are
// registered into the global frames, then main() is called in a fresh
// child frame.
func (in *Interpreter) Run(prog *ast.Program) error {
	in.st.PushFrame()
	in.bindRuntime()
	in.st.PushFrame()
	defer in.st.Reset()

	if err := in.Declare(prog); err != nil {
		return err
	}

	mainCell, err := in.st.Lookup(ast.NewName("main"), nil)
	if err != nil {
		return err
	}
	fn := mainCell.Get()
	if fn == nil || fn.Type.Base != ast.TFunc {
		return errs.New(errs.Type, nil, "main is not a function")
	}
	_, err = in.callFunc(fn.Fn, nil, nil)
	return err
}

// Declare registers a program's top-level declarations into the
// current global frame.
func (in *Interpreter) Declare(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		if err := in.declare(decl); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) declare(decl ast.Decl) error {
	switch d := decl.(type) {
	case *ast.VarDecl:
		_, err := in.execVarDecl(d)
		return err
	case *ast.FuncDecl:
		in.st.Define(d.Name, NewFunc(NewFuncStore(d, nil)))
		return nil
	case *ast.ClassDecl:
		return in.declareClass(d)
	case *ast.UnionDecl:
		return in.declareUnion(d)
	default:
		return errs.New(errs.Internal, nil, "unknown declaration")
	}
}

func (in *Interpreter) declareClass(cd *ast.ClassDecl) error {
	in.st.Define(cd.Name, NewClassDescriptor(cd))
	// The constructor is also reachable as Class.new on the outer
	// table; dotted lookup bypasses the instance table for it.
	if ctor := cd.FindMethod("new"); ctor != nil {
		in.st.Define(cd.Name.Member("new"), NewFunc(NewFuncStore(ctor, nil)))
	}
	return nil
}

func (in *Interpreter) declareUnion(ud *ast.UnionDecl) error {
	inner := NewSymTable()
	inner.PushFrame()
	for _, variant := range ud.Variants {
		variant.Name = ast.NewName(variant.Name.Base, ud.Name.Base)
		if variant.Generic == "" {
			variant.Generic = ud.Generic
		}
		inner.Define(ast.NewName(variant.Name.Base), NewClassDescriptor(variant))
	}

	desc := NewUnionDescriptor(ud)
	desc.Inst = inner
	in.st.Define(ud.Name, desc)
	return nil
}

// --------------- Statements --------------- //

func (in *Interpreter) execExprs(body []ast.Expr) (signal, *Value, error) {
	for _, e := range body {
		sig, val, err := in.execExpr(e)
		if err != nil || sig != sigNone {
			return sig, val, err
		}
	}
	return sigNone, Void(), nil
}

func (in *Interpreter) execExpr(e ast.Expr) (signal, *Value, error) {
	switch x := e.(type) {
	case *ast.EmptyExpr:
		return sigNone, Void(), nil
	case *ast.VarDecl:
		_, err := in.execVarDecl(x)
		return sigNone, Void(), err
	case *ast.IfExpr:
		return in.execIf(x)
	case *ast.WhileExpr:
		return in.execWhile(x)
	case *ast.ForExpr:
		return in.execFor(x)
	case *ast.MatchExpr:
		return in.execMatch(x)
	case *ast.RetExpr:
		if x.Value == nil {
			return sigReturn, Void(), nil
		}
		val, err := in.evalEval(x.Value)
		if err != nil {
			return sigNone, nil, err
		}
		return sigReturn, val, nil
	case *ast.BreakExpr:
		return sigBreak, Void(), nil
	case *ast.ContinueExpr:
		return sigContinue, Void(), nil
	case *ast.EvalExpr:
		_, err := in.evalEval(x)
		return sigNone, Void(), err
	default:
		return sigNone, nil, errs.New(errs.Internal, nil, "unknown statement")
	}
}

func (in *Interpreter) execVarDecl(vd *ast.VarDecl) (*Value, error) {
	var val *Value

	switch {
	case vd.Type == nil || vd.Type.Base == ast.TVoid:
		// const definitions and `var x : void` both need an
		// initializer to know their type
		if vd.Init == nil {
			return nil, errs.New(errs.Type, &vd.Pos,
				"variable %s has unknown type", vd.Name)
		}
		init, err := in.evalEval(vd.Init)
		if err != nil {
			return nil, err
		}
		if init.IsVoid() {
			return nil, errs.New(errs.Type, &vd.Pos,
				"variable %s has void type", vd.Name)
		}
		val = init
	case vd.Init != nil:
		init, err := in.evalEval(vd.Init)
		if err != nil {
			return nil, err
		}
		if init.IsVoid() {
			return nil, errs.New(errs.Type, &vd.Pos,
				"variable %s has void type", vd.Name)
		}
		declared := in.resolveType(vd.Type)
		if !in.typesEqual(declared, &init.Type) {
			return nil, errs.New(errs.Type, &vd.Pos,
				"variable %s: type %s cannot be assigned to %s",
				vd.Name, init.Type.String(), declared.String())
		}
		val = init
	default:
		val = Zero(in.resolveType(vd.Type))
	}

	if vd.IsConst {
		val.Const = true
	}
	in.st.Define(vd.Name, val)
	return val, nil
}

// runBlock executes a body in its own frame. A value traveling out of
// the block is pinned across the pop so the frame's releases cannot
// destroy it.
func (in *Interpreter) runBlock(body []ast.Expr) (signal, *Value, error) {
	in.st.PushFrame()
	sig, val, err := in.execExprs(body)
	unpin := pin(val)
	in.st.PopFrame()
	unpin()
	return sig, val, err
}

func (in *Interpreter) condition(cond *ast.EvalExpr, pos token.Pos) (bool, error) {
	val, err := in.evalEval(cond)
	if err != nil {
		return false, err
	}
	if val.Type.Base != ast.TBool || val.Type.ArrayLen != 0 {
		return false, errs.New(errs.Type, &pos, "expression is not boolean")
	}
	return val.B, nil
}

func (in *Interpreter) execIf(ie *ast.IfExpr) (signal, *Value, error) {
	ok, err := in.condition(ie.Cond, ie.Pos)
	if err != nil {
		return sigNone, nil, err
	}
	if ok {
		return in.runBlock(ie.Then)
	}
	if ie.Else != nil {
		return in.runBlock(ie.Else)
	}
	return sigNone, Void(), nil
}

func (in *Interpreter) execWhile(we *ast.WhileExpr) (signal, *Value, error) {
	// one frame for the whole loop; body declarations persist across
	// iterations
	in.st.PushFrame()

	for {
		ok, err := in.condition(we.Cond, we.Pos)
		if err != nil {
			in.st.PopFrame()
			return sigNone, nil, err
		}
		if !ok {
			break
		}

		sig, val, err := in.execExprs(we.Body)
		if err != nil || sig == sigReturn {
			unpin := pin(val)
			in.st.PopFrame()
			unpin()
			return sig, val, err
		}
		if sig == sigBreak {
			break
		}
	}

	in.st.PopFrame()
	return sigNone, Void(), nil
}

func (in *Interpreter) execFor(fe *ast.ForExpr) (signal, *Value, error) {
	in.st.PushFrame()

	if _, _, err := in.execExpr(fe.Init); err != nil {
		in.st.PopFrame()
		return sigNone, nil, err
	}

	for {
		ok, err := in.condition(fe.Cond, fe.Pos)
		if err != nil {
			in.st.PopFrame()
			return sigNone, nil, err
		}
		if !ok {
			break
		}

		sig, val, err := in.execExprs(fe.Body)
		if err != nil || sig == sigReturn {
			unpin := pin(val)
			in.st.PopFrame()
			unpin()
			return sig, val, err
		}
		if sig == sigBreak {
			break
		}

		if _, err := in.evalEval(fe.Step); err != nil {
			in.st.PopFrame()
			return sigNone, nil, err
		}
	}

	in.st.PopFrame()
	return sigNone, Void(), nil
}

func (in *Interpreter) execMatch(me *ast.MatchExpr) (signal, *Value, error) {
	subject, err := in.evalEval(me.Subject)
	if err != nil {
		return sigNone, nil, err
	}
	if subject.Type.Base != ast.TClass || len(subject.Type.Class.Owners) == 0 {
		return sigNone, nil, errs.New(errs.Type, &me.Pos,
			"match subject is not a union value")
	}

	tag := subject.Type.Class.Base
	for i := range me.Lines {
		line := &me.Lines[i]
		if line.Name != tag {
			continue
		}

		in.st.PushFrame()
		if line.Capture != "" {
			in.st.Define(ast.NewName(line.Capture), subject)
		}
		sig, val, err := in.execExprs(line.Body)
		unpin := pin(val)
		in.st.PopFrame()
		unpin()
		return sig, val, err
	}
	return sigNone, Void(), nil
}

// --------------- Expressions --------------- //

func (in *Interpreter) evalEval(e *ast.EvalExpr) (*Value, error) {
	if e.IsVal() {
		return in.evalExprVal(e.Val)
	}

	if e.Op == token.ASSIGN {
		return in.assign(e, copyAssign)
	}
	return in.binaryOp(e)
}

func (in *Interpreter) evalExprVal(v *ast.ExprVal) (*Value, error) {
	if v.IsLiteral {
		return literalValue(v)
	}
	if v.Call != nil {
		return in.evalCall(v)
	}

	cell, err := in.lvalueCell(v)
	if err != nil {
		return nil, err
	}
	val := cell.Get()
	if val == nil {
		return nil, errs.New(errs.Name, &v.Pos, "variable %s has no value", v.Ref)
	}
	return val, nil
}

func literalValue(v *ast.ExprVal) (*Value, error) {
	switch v.Type.Base {
	case ast.TInt32:
		n, err := strconv.ParseInt(v.Literal, 10, 32)
		if err != nil {
			return nil, errs.New(errs.Type, &v.Pos, "int literal out of range: %s", v.Literal)
		}
		return NewInt32(int32(n)), nil
	case ast.TFp32:
		f, err := strconv.ParseFloat(v.Literal, 32)
		if err != nil {
			return nil, errs.New(errs.Type, &v.Pos, "bad float literal: %s", v.Literal)
		}
		return NewFp32(float32(f)), nil
	case ast.TChar:
		return NewChar(v.Literal[0]), nil
	case ast.TStr:
		return NewStr(v.Literal), nil
	}
	return nil, errs.New(errs.Internal, &v.Pos, "bad literal type %s", v.Type)
}

// lvalueCell resolves a (possibly indexed) reference to its cell.
func (in *Interpreter) lvalueCell(v *ast.ExprVal) (*Cell, error) {
	var index *Value
	if v.Index != nil {
		var err error
		if index, err = in.evalEval(v.Index); err != nil {
			return nil, err
		}
	}
	return in.st.LookupCell(v, index)
}

type assignKind int

const (
	copyAssign assignKind = iota
	moveAssign
	deepAssign
)

// assign implements the three disciplines over a common shape: resolve
// the lvalue cell, type-check, then bind according to the discipline.
func (in *Interpreter) assign(e *ast.EvalExpr, kind assignKind) (*Value, error) {
	if !e.L.IsVal() || e.L.Val.IsLiteral {
		return nil, errs.New(errs.Type, &e.Pos, "lvalue is not a variable")
	}

	cell, err := in.lvalueCell(e.L.Val)
	if err != nil {
		return nil, err
	}
	if cur := cell.Get(); cur != nil && cur.Const {
		return nil, errs.New(errs.Const, &e.Pos, "constant cannot be assigned")
	}

	right, err := in.evalEval(e.R)
	if err != nil {
		return nil, err
	}
	if cur := cell.Get(); cur != nil && !in.typesEqual(&cur.Type, &right.Type) {
		return nil, errs.New(errs.Type, &e.Pos,
			"type %s cannot be assigned to %s", right.Type.String(), cur.Type.String())
	}

	switch kind {
	case moveAssign:
		right.Const = false
		cell.MoveInto(right)
	case deepAssign:
		cell.Acquire(in.deepCopyValue(right))
	default:
		cell.Acquire(right)
	}
	return Void(), nil
}

// deepCopyValue clones a value recursively; methods of a cloned
// instance are rebound so their `this` context is the clone.
func (in *Interpreter) deepCopyValue(v *Value) *Value {
	clone := v.DeepCopy()
	if clone.Inst == nil {
		return clone
	}
	for _, frame := range clone.Inst.frames {
		for _, cell := range frame {
			held := cell.Get()
			if held != nil && held.Type.Base == ast.TFunc && held.Fn.Context() != nil {
				cell.Acquire(NewFunc(NewFuncStore(held.Fn.Decl, clone)))
			}
		}
	}
	return clone
}

// --------------- Calls and construction --------------- //

func (in *Interpreter) evalCall(v *ast.ExprVal) (*Value, error) {
	cell, err := in.st.Lookup(v.Ref, &v.Pos)
	if err != nil {
		return nil, err
	}
	fn := cell.Get()
	if fn == nil {
		return nil, errs.New(errs.Name, &v.Pos, "variable %s has no value", v.Ref)
	}

	var result *Value
	switch {
	case fn.Type.Base == ast.TRuntime && fn.Class != nil:
		result, err = in.construct(fn.Class, v.Call, &v.Pos)
	case fn.Type.Base == ast.TRuntime && fn.Union != nil:
		return nil, errs.New(errs.Type, &v.Pos, "union %s cannot be called; construct a variant", v.Ref)
	case fn.Type.Base == ast.TRuntime:
		result, err = in.dispatchRuntime(fn.RtFn, v, &v.Pos)
	case fn.Type.Base == ast.TFunc:
		result, err = in.userCall(fn.Fn, v, &v.Pos)
	default:
		return nil, errs.New(errs.Type, &v.Pos, "%s cannot be called", v.Ref)
	}
	if err != nil {
		return nil, err
	}

	if v.Index != nil {
		return in.indexInto(result, v)
	}
	return result, nil
}

func (in *Interpreter) indexInto(arr *Value, v *ast.ExprVal) (*Value, error) {
	index, err := in.evalEval(v.Index)
	if err != nil {
		return nil, err
	}
	if arr.Type.ArrayLen == 0 {
		return nil, errs.New(errs.Type, &v.Pos, "%s is not an array", v.Ref)
	}
	if index.Type.Base != ast.TInt32 || index.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, &v.Pos, "array index must be an int32")
	}
	if index.I32 < 0 || int(index.I32) >= len(arr.Arr) {
		return nil, errs.New(errs.Index, &v.Pos, "array index out of bound")
	}
	elem := arr.Arr[index.I32].Get()
	if elem == nil {
		return nil, errs.New(errs.Name, &v.Pos, "array element has no value")
	}
	return elem, nil
}

func (in *Interpreter) userCall(fs *FuncStore, v *ast.ExprVal, pos *token.Pos) (*Value, error) {
	var args []*ast.EvalExpr
	if v.Call != nil {
		args = v.Call.Args
	}
	return in.callFunc(fs, args, pos)
}

func (in *Interpreter) callFunc(fs *FuncStore, args []*ast.EvalExpr, pos *token.Pos) (*Value, error) {
	fd := fs.Decl
	if len(args) != len(fd.Params) {
		return nil, errs.New(errs.Arity, pos,
			"%s expects %d arguments but got %d", fd.Name, len(fd.Params), len(args))
	}

	vals := make([]*Value, len(args))
	for i, arg := range args {
		val, err := in.evalEval(arg)
		if err != nil {
			return nil, err
		}
		prm := fd.Params[i]
		want := prm.Type
		// a method's parameter types may name the class's generic
		// parameter, bound in the instance table
		if ctx := fs.Context(); ctx != nil && ctx.Inst != nil {
			want = resolveTypeIn(ctx.Inst, want)
		}
		if !in.typesEqual(want, &val.Type) {
			return nil, errs.New(errs.Type, pos, "type mismatch for argument %s", prm.Name)
		}
		vals[i] = val
	}

	in.st.PushFrame()
	for i, prm := range fd.Params {
		in.st.Define(ast.NewName(prm.Name), vals[i])
	}
	if ctx := fs.Context(); ctx != nil {
		in.st.Define(ast.NewName("this"), ctx)
	}

	sig, ret, err := in.execExprs(fd.Body)
	if sig != sigReturn {
		ret = Void()
	}
	unpin := pin(ret)
	in.st.PopFrame()
	unpin()
	return ret, err
}

// construct implements `new`: fresh instance table, generic binding,
// member declarations in order, `this` through a placeholder cell,
// then the class's `new` method.
func (in *Interpreter) construct(cd *ast.ClassDecl, call *ast.FuncCall, pos *token.Pos) (*Value, error) {
	ctor := cd.FindMethod("new")
	if ctor == nil {
		return nil, errs.New(errs.Name, pos, "class %s has no constructor", cd.Name)
	}

	instType := ast.TypeDecl{Base: ast.TClass, Class: cd.Name}
	inst := NewSymTable()
	inst.PushFrame()
	if call != nil && call.GenArg != nil {
		if cd.Generic == "" {
			return nil, errs.New(errs.Type, pos, "class %s is not generic", cd.Name)
		}
		genArg := in.resolveType(call.GenArg)
		inst.Define(ast.NewName(cd.Generic), NewTypeArg(genArg))
		instType.Gen = genArg
	}
	context := NewInstance(inst, instType)

	// Member declarations run against the instance table itself.
	outer := in.st
	in.st = inst
	for _, member := range cd.Members {
		var err error
		switch m := member.(type) {
		case *ast.VarDecl:
			_, err = in.execVarDecl(m)
		case *ast.FuncDecl:
			inst.Define(m.Name, NewFunc(NewFuncStore(m, context)))
		default:
			err = errs.New(errs.Internal, pos, "unsupported class member")
		}
		if err != nil {
			in.st = outer
			return nil, err
		}
	}
	in.st = outer

	var args []*ast.EvalExpr
	if call != nil {
		args = call.Args
	}
	if len(args) != len(ctor.Params) {
		return nil, errs.New(errs.Arity, pos,
			"new %s expects %d arguments but got %d", cd.Name, len(ctor.Params), len(args))
	}

	in.st.PushFrame()
	thisCell := in.st.Define(ast.NewName("this"), context)

	for i, arg := range args {
		val, err := in.evalEval(arg)
		if err != nil {
			in.st.PopFrame()
			return nil, err
		}
		prm := ctor.Params[i]
		want := in.substituteGeneric(prm.Type, cd.Generic, instType.Gen)
		if !in.typesEqual(want, &val.Type) {
			in.st.PopFrame()
			return nil, errs.New(errs.Type, pos, "type mismatch for argument %s", prm.Name)
		}
		in.st.Define(ast.NewName(prm.Name), val)
	}

	_, _, err := in.execExprs(ctor.Body)
	// drop the transient `this` alias without touching the instance
	thisCell.clear()
	in.st.PopFrame()
	if err != nil {
		return nil, err
	}
	return context, nil
}

// substituteGeneric rewrites a reference to the class's type parameter
// into the bound argument.
func (in *Interpreter) substituteGeneric(td *ast.TypeDecl, param string, bound *ast.TypeDecl) *ast.TypeDecl {
	if param == "" || bound == nil || td == nil {
		return td
	}
	if td.Base == ast.TClass && !td.Class.Dotted() && td.Class.Base == param {
		if td.ArrayLen == 0 {
			return bound
		}
		merged := *bound
		merged.ArrayLen = td.ArrayLen
		return &merged
	}
	return td
}

// --------------- Types --------------- //

// resolveType substitutes a generic parameter bound in scope; a class
// type whose name is bound to a type argument reads as that argument.
func (in *Interpreter) resolveType(td *ast.TypeDecl) *ast.TypeDecl {
	return resolveTypeIn(in.st, td)
}

func resolveTypeIn(st *SymTable, td *ast.TypeDecl) *ast.TypeDecl {
	if td == nil || td.Base != ast.TClass || td.Class.Dotted() {
		return td
	}
	cell, err := st.Lookup(td.Class, nil)
	if err != nil {
		return td
	}
	if v := cell.Get(); v != nil && v.TypeArg != nil {
		if td.ArrayLen == 0 {
			return v.TypeArg
		}
		merged := *v.TypeArg
		merged.ArrayLen = td.ArrayLen
		return &merged
	}
	return td
}

func (in *Interpreter) typesEqual(a, b *ast.TypeDecl) bool {
	return in.resolveType(a).Equal(in.resolveType(b))
}
