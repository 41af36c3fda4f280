package ast

import (
	"fmt"
	"strings"

	"yc/token"
)

// Canonical pretty-printers. Parsing a printed program yields an equal
// tree modulo source positions, which the parser tests rely on.

func (p *Program) String() string {
	sb := strings.Builder{}
	for _, decl := range p.Decls {
		sb.WriteString(decl.String() + "\n")
	}
	return sb.String()
}

func genString(generic string) string {
	if generic == "" {
		return ""
	}
	return "<" + generic + ">"
}

func blockString(sb *strings.Builder, indent string, body []Expr) {
	sb.WriteString("{\n")
	inner := indent + "    "
	for _, e := range body {
		s := e.String()
		// statement-level eval expressions carry their own terminator
		if _, isEval := e.(*EvalExpr); isEval {
			s += ";"
		}
		for _, line := range strings.Split(s, "\n") {
			sb.WriteString(inner + line + "\n")
		}
	}
	sb.WriteString(indent + "}")
}

func (vd *VarDecl) String() string {
	sb := strings.Builder{}
	if vd.IsConst && vd.Type == nil {
		sb.WriteString("const " + vd.Name.String())
	} else {
		sb.WriteString("var " + vd.Name.String() + " : " + vd.Type.String())
	}
	if vd.Init != nil {
		sb.WriteString(" = " + vd.Init.String())
	}
	sb.WriteString(";")
	return sb.String()
}

func (fd *FuncDecl) String() string {
	sb := strings.Builder{}
	sb.WriteString("function " + fd.Name.String() + genString(fd.Generic) + "(")
	for i, p := range fd.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name + " : " + p.Type.String())
	}
	sb.WriteString(")")
	if fd.Ret != nil && fd.Ret.Base != TVoid {
		sb.WriteString(" : " + fd.Ret.String())
	}
	sb.WriteString(" ")
	blockString(&sb, "", fd.Body)
	return sb.String()
}

func (cd *ClassDecl) String() string {
	sb := strings.Builder{}
	sb.WriteString("class " + cd.Name.Base + genString(cd.Generic) + " {\n")
	for _, m := range cd.Members {
		for _, line := range strings.Split(m.String(), "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func (ud *UnionDecl) String() string {
	sb := strings.Builder{}
	sb.WriteString("union " + ud.Name.Base + genString(ud.Generic) + " {\n")
	for _, cl := range ud.Variants {
		for _, line := range strings.Split(cl.String(), "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func (*EmptyExpr) String() string { return ";" }

func (ie *IfExpr) String() string {
	sb := strings.Builder{}
	sb.WriteString("if (" + ie.Cond.String() + ") ")
	blockString(&sb, "", ie.Then)
	if ie.Else != nil {
		sb.WriteString(" else ")
		blockString(&sb, "", ie.Else)
	}
	return sb.String()
}

func (we *WhileExpr) String() string {
	sb := strings.Builder{}
	sb.WriteString("while (" + we.Cond.String() + ") ")
	blockString(&sb, "", we.Body)
	return sb.String()
}

func (fe *ForExpr) String() string {
	sb := strings.Builder{}
	init := fe.Init.String()
	if _, isEval := fe.Init.(*EvalExpr); isEval {
		init += ";"
	}
	fmt.Fprintf(&sb, "for (%s %s; %s;) ", init, fe.Cond, fe.Step)
	blockString(&sb, "", fe.Body)
	return sb.String()
}

func (ml *MatchLine) String() string {
	sb := strings.Builder{}
	sb.WriteString(ml.Name)
	if ml.Capture != "" {
		sb.WriteString("(" + ml.Capture + ")")
	}
	sb.WriteString(" ")
	blockString(&sb, "", ml.Body)
	return sb.String()
}

func (me *MatchExpr) String() string {
	sb := strings.Builder{}
	sb.WriteString("match (" + me.Subject.String() + ") {\n")
	for i := range me.Lines {
		for _, line := range strings.Split(me.Lines[i].String(), "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}

func (re *RetExpr) String() string {
	if re.Value == nil {
		return "return;"
	}
	return "return " + re.Value.String() + ";"
}

func (*BreakExpr) String() string    { return "break;" }
func (*ContinueExpr) String() string { return "continue;" }

func (e *EvalExpr) String() string {
	if e.IsVal() {
		return e.Val.String()
	}
	return "(" + e.L.String() + " " + e.Op.String() + " " + e.R.String() + ")"
}

func (v *ExprVal) String() string {
	if v.IsLiteral {
		switch v.Type.Base {
		case TStr:
			return quote(v.Literal, '"')
		case TChar:
			return quote(v.Literal, '\'')
		default:
			return v.Literal
		}
	}

	sb := strings.Builder{}
	sb.WriteString(v.Ref.String())
	if v.Call != nil {
		if v.Call.GenArg != nil {
			sb.WriteString("<" + v.Call.GenArg.String() + ">")
		}
		sb.WriteByte('(')
		for i, arg := range v.Call.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.String())
		}
		sb.WriteByte(')')
	}
	if v.Index != nil {
		sb.WriteString("[" + v.Index.String() + "]")
	}
	return sb.String()
}

var escapes = map[byte]string{
	'\a': `\a`,
	'\b': `\b`,
	'\t': `\t`,
	'\n': `\n`,
	'\v': `\v`,
	'\f': `\f`,
	'\r': `\r`,
	'\\': `\\`,
}

func quote(s string, delim byte) string {
	sb := strings.Builder{}
	sb.WriteByte(delim)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if esc, found := escapes[c]; found {
			sb.WriteString(esc)
		} else if c == delim {
			sb.WriteByte('\\')
			sb.WriteByte(c)
		} else {
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(delim)
	return sb.String()
}

// Literal is a convenience constructor used by the parser. Number
// tokens carry their text in the lexeme; string and char tokens carry
// the cooked value in the literal field (which may be empty for "").
func Literal(tok token.Token, base BaseType) *ExprVal {
	lit := tok.Literal
	if tok.Kind == token.INT || tok.Kind == token.FLOAT {
		lit = tok.Lexeme
	}
	return &ExprVal{
		IsLiteral: true,
		Literal:   lit,
		Type:      &TypeDecl{Base: base},
		Pos:       tok.Pos,
	}
}
