package interp

import (
	"yc/ast"
	"yc/errs"
	"yc/token"
)

// binaryOp evaluates both operands and dispatches on the operator.
// Operand types must be equal and scalar; the table mirrors the
// surface language:
//
//	+ - * /   uint8 int32 fp32 fp64
//	%         uint8 int32
//	& | ^     uint8 int32
//	== !=     all primitives
//	< <= > >= numerics
//	&& ||     booleans (numerics coerce on zero/non-zero)
func (in *Interpreter) binaryOp(e *ast.EvalExpr) (*Value, error) {
	left, err := in.evalEval(e.L)
	if err != nil {
		return nil, err
	}
	right, err := in.evalEval(e.R)
	if err != nil {
		return nil, err
	}

	if left.Type.ArrayLen != 0 || right.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, &e.Pos,
			"%s cannot operate on %s", e.Op, left.Type.String())
	}
	if !in.typesEqual(&left.Type, &right.Type) {
		return nil, errs.New(errs.Type, &e.Pos, "type mismatch: %s %s %s",
			left.Type.String(), e.Op, right.Type.String())
	}

	switch e.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH:
		return in.arith(e, left, right)
	case token.PERCENT, token.AMP, token.PIPE, token.CARET:
		return in.integerOp(e, left, right)
	case token.EQ, token.NEQ:
		return in.equality(e, left, right)
	case token.LT, token.LE, token.GT, token.GE:
		return in.comparison(e, left, right)
	case token.ANDAND, token.OROR:
		return in.logical(e, left, right)
	}
	return nil, errs.New(errs.Internal, &e.Pos, "unhandled operator %s", e.Op)
}

func (in *Interpreter) opError(e *ast.EvalExpr, t *ast.TypeDecl) error {
	return errs.New(errs.Type, &e.Pos, "%s cannot operate on %s", e.Op, t.String())
}

func (in *Interpreter) arith(e *ast.EvalExpr, l, r *Value) (*Value, error) {
	if e.Op == token.SLASH {
		switch l.Type.Base {
		case ast.TUint8:
			if r.U8 == 0 {
				return nil, errs.New(errs.Interpreter, &e.Pos, "integer division by zero")
			}
		case ast.TInt32:
			if r.I32 == 0 {
				return nil, errs.New(errs.Interpreter, &e.Pos, "integer division by zero")
			}
		}
	}

	switch l.Type.Base {
	case ast.TUint8:
		switch e.Op {
		case token.PLUS:
			return NewUint8(l.U8 + r.U8), nil
		case token.MINUS:
			return NewUint8(l.U8 - r.U8), nil
		case token.STAR:
			return NewUint8(l.U8 * r.U8), nil
		case token.SLASH:
			return NewUint8(l.U8 / r.U8), nil
		}
	case ast.TInt32:
		switch e.Op {
		case token.PLUS:
			return NewInt32(l.I32 + r.I32), nil
		case token.MINUS:
			return NewInt32(l.I32 - r.I32), nil
		case token.STAR:
			return NewInt32(l.I32 * r.I32), nil
		case token.SLASH:
			return NewInt32(l.I32 / r.I32), nil
		}
	case ast.TFp32:
		switch e.Op {
		case token.PLUS:
			return NewFp32(l.F32 + r.F32), nil
		case token.MINUS:
			return NewFp32(l.F32 - r.F32), nil
		case token.STAR:
			return NewFp32(l.F32 * r.F32), nil
		case token.SLASH:
			return NewFp32(l.F32 / r.F32), nil
		}
	case ast.TFp64:
		switch e.Op {
		case token.PLUS:
			return NewFp64(l.F64 + r.F64), nil
		case token.MINUS:
			return NewFp64(l.F64 - r.F64), nil
		case token.STAR:
			return NewFp64(l.F64 * r.F64), nil
		case token.SLASH:
			return NewFp64(l.F64 / r.F64), nil
		}
	}
	return nil, in.opError(e, &l.Type)
}

func (in *Interpreter) integerOp(e *ast.EvalExpr, l, r *Value) (*Value, error) {
	switch l.Type.Base {
	case ast.TUint8:
		switch e.Op {
		case token.PERCENT:
			if r.U8 == 0 {
				return nil, errs.New(errs.Interpreter, &e.Pos, "integer division by zero")
			}
			return NewUint8(l.U8 % r.U8), nil
		case token.AMP:
			return NewUint8(l.U8 & r.U8), nil
		case token.PIPE:
			return NewUint8(l.U8 | r.U8), nil
		case token.CARET:
			return NewUint8(l.U8 ^ r.U8), nil
		}
	case ast.TInt32:
		switch e.Op {
		case token.PERCENT:
			if r.I32 == 0 {
				return nil, errs.New(errs.Interpreter, &e.Pos, "integer division by zero")
			}
			return NewInt32(l.I32 % r.I32), nil
		case token.AMP:
			return NewInt32(l.I32 & r.I32), nil
		case token.PIPE:
			return NewInt32(l.I32 | r.I32), nil
		case token.CARET:
			return NewInt32(l.I32 ^ r.I32), nil
		}
	}
	return nil, in.opError(e, &l.Type)
}

func (in *Interpreter) equality(e *ast.EvalExpr, l, r *Value) (*Value, error) {
	var eq bool
	switch l.Type.Base {
	case ast.TBool:
		eq = l.B == r.B
	case ast.TUint8:
		eq = l.U8 == r.U8
	case ast.TInt32:
		eq = l.I32 == r.I32
	case ast.TFp32:
		eq = l.F32 == r.F32
	case ast.TFp64:
		eq = l.F64 == r.F64
	case ast.TChar:
		eq = l.Ch == r.Ch
	case ast.TStr:
		eq = l.Str == r.Str
	default:
		return nil, in.opError(e, &l.Type)
	}
	if e.Op == token.NEQ {
		eq = !eq
	}
	return NewBool(eq), nil
}

func (in *Interpreter) comparison(e *ast.EvalExpr, l, r *Value) (*Value, error) {
	var lt, eq bool
	switch l.Type.Base {
	case ast.TUint8:
		lt, eq = l.U8 < r.U8, l.U8 == r.U8
	case ast.TInt32:
		lt, eq = l.I32 < r.I32, l.I32 == r.I32
	case ast.TFp32:
		lt, eq = l.F32 < r.F32, l.F32 == r.F32
	case ast.TFp64:
		lt, eq = l.F64 < r.F64, l.F64 == r.F64
	default:
		return nil, in.opError(e, &l.Type)
	}

	var result bool
	switch e.Op {
	case token.LT:
		result = lt
	case token.LE:
		result = lt || eq
	case token.GT:
		result = !lt && !eq
	case token.GE:
		result = !lt
	}
	return NewBool(result), nil
}

func (in *Interpreter) logical(e *ast.EvalExpr, l, r *Value) (*Value, error) {
	lb, ok := truthy(l)
	if !ok {
		return nil, in.opError(e, &l.Type)
	}
	rb, ok := truthy(r)
	if !ok {
		return nil, in.opError(e, &r.Type)
	}

	if e.Op == token.ANDAND {
		return NewBool(lb && rb), nil
	}
	return NewBool(lb || rb), nil
}

// truthy coerces the operand of a logical operator: booleans as-is,
// numerics on zero/non-zero.
func truthy(v *Value) (bool, bool) {
	switch v.Type.Base {
	case ast.TBool:
		return v.B, true
	case ast.TUint8:
		return v.U8 != 0, true
	case ast.TInt32:
		return v.I32 != 0, true
	case ast.TFp32:
		return v.F32 != 0, true
	case ast.TFp64:
		return v.F64 != 0, true
	}
	return false, false
}
