package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yc/errs"
	"yc/token"
)

func kindsOf(toks []token.Token) []token.Kind {
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestScanPunctuation(t *testing.T) {
	toks, err := New("( ) { } [ ] , : ; . + - * / % ^").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACKET, token.RBRACKET, token.COMMA, token.COLON,
		token.SEMICOLON, token.DOT, token.PLUS, token.MINUS, token.STAR,
		token.SLASH, token.PERCENT, token.CARET, token.EOF,
	}, kindsOf(toks))
}

func TestScanMultiCharOperators(t *testing.T) {
	toks, err := New("== = != ! <= < >= > && & || |").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.EQ, token.ASSIGN, token.NEQ, token.BANG, token.LE, token.LT,
		token.GE, token.GT, token.ANDAND, token.AMP, token.OROR,
		token.PIPE, token.EOF,
	}, kindsOf(toks))
}

func TestScanKeywords(t *testing.T) {
	toks, err := New("var const function class union if else match while for break continue return").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.VAR, token.CONST, token.FUNCTION, token.CLASS, token.UNION,
		token.IF, token.ELSE, token.MATCH, token.WHILE, token.FOR,
		token.BREAK, token.CONTINUE, token.RETURN, token.EOF,
	}, kindsOf(toks))
}

func TestScanTypeKeywords(t *testing.T) {
	toks, err := New("void bool int32 uint8 char fp32 fp64 str").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.VOID, token.BOOL, token.INT32, token.UINT8, token.CHART,
		token.FP32, token.FP64, token.STR, token.EOF,
	}, kindsOf(toks))
}

func TestScanNumbers(t *testing.T) {
	toks, err := New("42 3.25 0 10.0").Scan()
	require.NoError(t, err)

	require.Len(t, toks, 5)
	assert.Equal(t, token.INT, toks[0].Kind)
	assert.Equal(t, "42", toks[0].Lexeme)
	assert.Equal(t, token.FLOAT, toks[1].Kind)
	assert.Equal(t, "3.25", toks[1].Lexeme)
	assert.Equal(t, token.INT, toks[2].Kind)
	assert.Equal(t, token.FLOAT, toks[3].Kind)
}

func TestFloatHasExactlyOneDot(t *testing.T) {
	// the second '.' ends the literal and scans as DOT
	toks, err := New("1.2.3").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.FLOAT, token.DOT, token.INT, token.EOF,
	}, kindsOf(toks))
	assert.Equal(t, "1.2", toks[0].Lexeme)
}

func TestScanStringLiteral(t *testing.T) {
	toks, err := New(`"hello world"`).Scan()
	require.NoError(t, err)

	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"hello world"`, toks[0].Lexeme)
	assert.Equal(t, "hello world", toks[0].Literal)
}

func TestScanStringEscapes(t *testing.T) {
	toks, err := New(`"a\tb\nc\"d\\e"`).Scan()
	require.NoError(t, err)

	assert.Equal(t, "a\tb\nc\"d\\e", toks[0].Literal)
}

func TestScanCharLiteral(t *testing.T) {
	toks, err := New(`'x' '\n' '\''`).Scan()
	require.NoError(t, err)

	require.Len(t, toks, 4)
	assert.Equal(t, "x", toks[0].Literal)
	assert.Equal(t, "\n", toks[1].Literal)
	assert.Equal(t, "'", toks[2].Literal)
}

func TestScanComment(t *testing.T) {
	toks, err := New("1 # the rest is ignored ;;;\n2").Scan()
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{token.INT, token.INT, token.EOF}, kindsOf(toks))
	assert.Equal(t, 2, toks[1].Pos.Row)
}

func TestScanPositions(t *testing.T) {
	toks, err := New("var x\n  = 1;").Scan()
	require.NoError(t, err)

	assert.Equal(t, 1, toks[0].Pos.Row)
	assert.Equal(t, 1, toks[0].Pos.Col)
	assert.Equal(t, "var x", toks[0].Pos.Line)

	assert.Equal(t, 1, toks[1].Pos.Row)
	assert.Equal(t, 5, toks[1].Pos.Col)

	// '=' on the second line, after two spaces
	assert.Equal(t, 2, toks[2].Pos.Row)
	assert.Equal(t, 3, toks[2].Pos.Col)
	assert.Equal(t, "  = 1;", toks[2].Pos.Line)
}

func TestScanUnknownCharacter(t *testing.T) {
	_, err := New("var @").Scan()

	var lexErr *errs.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, errs.Lexical, lexErr.Kind)
	require.NotNil(t, lexErr.Pos)
	assert.Equal(t, 1, lexErr.Pos.Row)
}

func TestScanUnterminatedString(t *testing.T) {
	_, err := New(`"no closing quote`).Scan()

	var lexErr *errs.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, errs.Lexical, lexErr.Kind)
}

func TestScanUnterminatedChar(t *testing.T) {
	_, err := New("'a").Scan()

	var lexErr *errs.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, errs.Lexical, lexErr.Kind)
}

func TestScanBadEscape(t *testing.T) {
	_, err := New(`"\q"`).Scan()

	var lexErr *errs.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, errs.Lexical, lexErr.Kind)
}

func TestScanIdentifiers(t *testing.T) {
	toks, err := New("foo _bar baz9 __string_size").Scan()
	require.NoError(t, err)

	for _, tok := range toks[:4] {
		assert.Equal(t, token.IDENT, tok.Kind)
	}
	assert.Equal(t, "__string_size", toks[3].Lexeme)
}
