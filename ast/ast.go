// Implements this grammar:
// program        → statement* EOF ;
// statement      → funcDecl | varDef | constDef | classDef | unionDef ;
// funcDecl       → "function" NAME generic? "(" params? ")" ( ":" type )? "{" exprList "}" ;
// classDef       → "class" NAME generic? "{" ( varDef | constDef | funcDecl )* "}" ;
// unionDef       → "union" NAME generic? "{" classDef* "}" ;
// varDef         → "var" NAME ":" type ( "=" evalExpr )? ";" ;
// constDef       → "const" NAME "=" evalExpr ";" ;
// generic        → "<" NAME ">" ;
// params         → param ( "," param )* ;
// param          → NAME ":" type ;
// type           → ( PRIM_KEYWORD | namePath ) ( "<" type ">" )? ( "[" INT "]" )? ;
// exprList       → expr* ;
// expr           → varDef | constDef | if | while | for | match | return
//                | "break" ";" | "continue" ";" | ";" | evalExpr ";" ;
// if             → "if" "(" evalExpr ")" "{" exprList "}" ( "else" "{" exprList "}" )? ;
// while          → "while" "(" evalExpr ")" "{" exprList "}" ;
// for            → "for" "(" ( varDef | evalExpr ";" ) evalExpr ";" evalExpr ";"? ")" "{" exprList "}" ;
// match          → "match" "(" evalExpr ")" "{" matchLine* "}" ;
// matchLine      → NAME ( "(" NAME ")" )? "{" exprList "}" ;
// return         → "return" evalExpr? ";" ;
//
// evalExpr       → assign ;
// assign         → logicOr ( "=" assign )? ;
// logicOr        → logicAnd ( "||" logicAnd )* ;
// logicAnd       → bitOr ( "&&" bitOr )* ;
// bitOr          → bitXor ( "|" bitXor )* ;
// bitXor         → bitAnd ( "^" bitAnd )* ;
// bitAnd         → equality ( "&" equality )* ;
// equality       → comparison ( ( "==" | "!=" ) comparison )* ;
// comparison     → term ( ( "<" | "<=" | ">" | ">=" ) term )* ;
// term           → factor ( ( "+" | "-" ) factor )* ;
// factor         → primary ( ( "*" | "/" | "%" ) primary )* ;
// primary        → INT | FLOAT | CHAR | STRING | "(" evalExpr ")"
//                | namePath ( ( "<" ( NAME | PRIM_KEYWORD ) ">" )? callArgs )? index? ;
// namePath       → NAME ( "." NAME )* ;
// callArgs       → "(" ( evalExpr ( "," evalExpr )* )? ")" ;
// index          → "[" evalExpr "]" ;

package ast

import (
	"fmt"
	"strings"

	"yc/token"
)

// Name is a base identifier plus the enclosing class/owner segments.
type Name struct {
	Owners []string
	Base   string
}

func NewName(base string, owners ...string) Name {
	return Name{Base: base, Owners: owners}
}

// Owner drops the base and returns the enclosing path as a Name.
func (n Name) Owner() Name {
	return Name{
		Base:   n.Owners[len(n.Owners)-1],
		Owners: n.Owners[:len(n.Owners)-1],
	}
}

// Member returns base as a member of n.
func (n Name) Member(base string) Name {
	owners := make([]string, 0, len(n.Owners)+1)
	owners = append(owners, n.Owners...)
	owners = append(owners, n.Base)
	return Name{Base: base, Owners: owners}
}

func (n Name) Dotted() bool { return len(n.Owners) > 0 }

func (n Name) Equal(o Name) bool {
	if n.Base != o.Base || len(n.Owners) != len(o.Owners) {
		return false
	}
	for i := range n.Owners {
		if n.Owners[i] != o.Owners[i] {
			return false
		}
	}
	return true
}

func (n Name) String() string {
	sb := strings.Builder{}
	for _, owner := range n.Owners {
		sb.WriteString(owner + ".")
	}
	sb.WriteString(n.Base)
	return sb.String()
}

type BaseType int

const (
	TVoid BaseType = iota
	TBool
	TUint8
	TChar
	TInt32
	TFp32
	TFp64
	TStr
	TClass

	// Interpreter-internal kinds; no surface syntax produces them.
	TFunc
	TRuntime
)

var baseTypes = [...]string{
	TVoid:    "void",
	TBool:    "bool",
	TUint8:   "uint8",
	TChar:    "char",
	TInt32:   "int32",
	TFp32:    "fp32",
	TFp64:    "fp64",
	TStr:     "str",
	TClass:   "class",
	TFunc:    "function",
	TRuntime: "runtime",
}

// TypeDecl is a declared type: a base kind, an array length (0 for
// scalar), the class name path for TClass, and an optional generic
// argument.
type TypeDecl struct {
	Base     BaseType
	ArrayLen int
	Class    Name
	Gen      *TypeDecl
}

func (t *TypeDecl) Equal(o *TypeDecl) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Base != o.Base || t.ArrayLen != o.ArrayLen {
		return false
	}
	if t.Base == TClass && !t.Class.Equal(o.Class) {
		return false
	}
	if (t.Gen == nil) != (o.Gen == nil) {
		return false
	}
	if t.Gen != nil && !t.Gen.Equal(o.Gen) {
		return false
	}
	return true
}

func (t *TypeDecl) String() string {
	sb := strings.Builder{}
	if t.Base == TClass {
		sb.WriteString(t.Class.String())
	} else {
		sb.WriteString(baseTypes[t.Base])
	}
	if t.Gen != nil {
		sb.WriteString("<" + t.Gen.String() + ">")
	}
	if t.ArrayLen != 0 {
		fmt.Fprintf(&sb, "[%d]", t.ArrayLen)
	}
	return sb.String()
}

// Decl is a top-level (or class-member) declaration.
type Decl interface {
	fmt.Stringer
	declNode()
}

func (*VarDecl) declNode()   {}
func (*FuncDecl) declNode()  {}
func (*ClassDecl) declNode() {}
func (*UnionDecl) declNode() {}

// Expr is a statement-level expression inside a body.
type Expr interface {
	fmt.Stringer
	exprNode()
}

func (*EmptyExpr) exprNode()    {}
func (*VarDecl) exprNode()      {}
func (*IfExpr) exprNode()       {}
func (*WhileExpr) exprNode()    {}
func (*ForExpr) exprNode()      {}
func (*MatchExpr) exprNode()    {}
func (*RetExpr) exprNode()      {}
func (*BreakExpr) exprNode()    {}
func (*ContinueExpr) exprNode() {}
func (*EvalExpr) exprNode()     {}

type Program struct {
	Decls []Decl
}

// VarDecl covers `var` and `const` definitions, at top level, inside a
// class body, and as a statement.
type VarDecl struct {
	Name     Name
	Type     *TypeDecl // nil for const definitions (type is inferred)
	Init     *EvalExpr
	IsConst  bool
	IsGlobal bool
	Pos      token.Pos
}

type Param struct {
	Name string
	Type *TypeDecl
}

type FuncDecl struct {
	Name    Name
	Generic string // "" if not generic
	Params  []Param
	Ret     *TypeDecl
	Body    []Expr
	Pos     token.Pos
}

type ClassDecl struct {
	Name    Name
	Generic string
	Members []Decl
	Pos     token.Pos
}

// FindMethod returns the member function declaration named base, or nil.
func (cd *ClassDecl) FindMethod(base string) *FuncDecl {
	for _, m := range cd.Members {
		if fd, ok := m.(*FuncDecl); ok && fd.Name.Base == base {
			return fd
		}
	}
	return nil
}

type UnionDecl struct {
	Name     Name
	Generic  string
	Variants []*ClassDecl
	Pos      token.Pos
}

type EmptyExpr struct {
	Pos token.Pos
}

type IfExpr struct {
	Cond *EvalExpr
	Then []Expr
	Else []Expr
	Pos  token.Pos
}

type WhileExpr struct {
	Cond *EvalExpr
	Body []Expr
	Pos  token.Pos
}

// ForExpr's Init is a statement so that `for (var i : int32 = 0; …)`
// declares into the loop's own frame; Cond and Step stay plain
// expressions.
type ForExpr struct {
	Init Expr
	Cond *EvalExpr
	Step *EvalExpr
	Body []Expr
	Pos  token.Pos
}

type MatchLine struct {
	Name    string
	Capture string // "" if the line binds nothing
	Body    []Expr
	Pos     token.Pos
}

type MatchExpr struct {
	Subject *EvalExpr
	Lines   []MatchLine
	Pos     token.Pos
}

type RetExpr struct {
	Value *EvalExpr // nil for a bare `return;`
	Pos   token.Pos
}

type BreakExpr struct {
	Pos token.Pos
}

type ContinueExpr struct {
	Pos token.Pos
}

// EvalExpr is a binary expression tree. A node is either a leaf (Val
// set) or an operator over two subtrees.
type EvalExpr struct {
	Val *ExprVal

	Op  token.Kind
	L   *EvalExpr
	R   *EvalExpr
	Pos token.Pos
}

func (e *EvalExpr) IsVal() bool { return e.Val != nil }

// FuncCall is the argument list of a reference used as a call, plus an
// optional generic argument from a `Name<Type>(…)` construction site.
type FuncCall struct {
	Args   []*EvalExpr
	GenArg *TypeDecl
}

// ExprVal is a leaf: either a primitive literal or a reference with an
// optional call and an optional array index.
type ExprVal struct {
	// Literal leaf
	IsLiteral bool
	Literal   string
	Type      *TypeDecl

	// Reference leaf
	Ref   Name
	Call  *FuncCall
	Index *EvalExpr

	Pos token.Pos
}
