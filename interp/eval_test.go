package interp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yc/errs"
	"yc/lexer"
	"yc/parser"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	toks, err := lexer.New(source).Scan()
	require.NoError(t, err)
	prog, err := parser.New(toks).Parse()
	require.NoError(t, err)

	out := &strings.Builder{}
	in := New(out)
	runErr := in.Run(prog)
	return out.String(), runErr
}

func runOK(t *testing.T, source string) string {
	t.Helper()
	out, err := run(t, source)
	require.NoError(t, err)
	return out
}

func runKind(t *testing.T, source string) errs.Kind {
	t.Helper()
	_, err := run(t, source)
	var ycErr *errs.Error
	require.ErrorAs(t, err, &ycErr)
	return ycErr.Kind
}

func inMain(body string) string {
	return "function main() : int32 {\n" + body + "\nreturn 0;\n}"
}

// --------------- End-to-end scenarios --------------- //

func TestArithmeticPrecedence(t *testing.T) {
	out := runOK(t, "function main() : int32 { print(1+2*3); return 0; }")
	assert.Equal(t, "7 \n", out)
}

func TestArrayFill(t *testing.T) {
	out := runOK(t, `function main() : int32 {
		var a : int32[3];
		for (var i : int32 = 0; i < 3; i = i + 1;) { a[i] = i*i; }
		print(a[2]);
		return 0;
	}`)
	assert.Equal(t, "4 \n", out)
}

func TestStringSize(t *testing.T) {
	out := runOK(t, `function main() : int32 {
		var s : str = "hi";
		print(__string_size(s));
		return 0;
	}`)
	assert.Equal(t, "2 \n", out)
}

func TestConstAssignment(t *testing.T) {
	kind := runKind(t, inMain("const k = 5; k = 6;"))
	assert.Equal(t, errs.Const, kind)
}

func TestClassConstruction(t *testing.T) {
	out := runOK(t, `
class Box {
	var v : int32;
	function new(x : int32) { this.v = x; }
}
function main() : int32 {
	var b : Box = Box(7);
	print(b.v);
	return 0;
}`)
	assert.Equal(t, "7 \n", out)
}

func TestCopySemantics(t *testing.T) {
	out := runOK(t, inMain(`
		var x : int32 = 1;
		var y : int32 = x;
		y = 2;
		print(x);
		print(y);`))
	assert.Equal(t, "1 \n2 \n", out)
}

// --------------- Operators --------------- //

func TestOperatorTable(t *testing.T) {
	cases := map[string]string{
		"print(7 - 2);":                     "5 \n",
		"print(7 / 2);":                     "3 \n",
		"print(7 % 2);":                     "1 \n",
		"print(6 & 3);":                     "2 \n",
		"print(6 | 3);":                     "7 \n",
		"print(6 ^ 3);":                     "5 \n",
		"print(2.5 + 0.25);":                "2.75 \n",
		"if (1 < 2) { print(1); }":          "1 \n",
		"if (2 <= 2) { print(1); }":         "1 \n",
		"if (3 > 2) { print(1); }":          "1 \n",
		"if (2 >= 3) { print(1); }":         "",
		"if (1 == 1) { print(1); }":         "1 \n",
		"if (1 != 1) { print(1); }":         "",
		"if ('a' == 'a') { print(1); }":     "1 \n",
		"if ('a' != 'b') { print(1); }":     "1 \n",
		`if ("ab" == "ab") { print(1); }`:   "1 \n",
		`if ("ab" != "ba") { print(1); }`:   "1 \n",
		"if (1 == 1 && 2 == 2) { print(1); }": "1 \n",
		"if (1 == 2 || 2 == 2) { print(1); }": "1 \n",
		"if (1 && 0) { print(1); }":         "",
		"if (1 || 0) { print(1); }":         "1 \n",
	}

	for source, want := range cases {
		assert.Equal(t, want, runOK(t, inMain(source)), "source: %s", source)
	}
}

func TestUint8Wraps(t *testing.T) {
	out := runOK(t, inMain(`
		var u : uint8 = to_uint8(200);
		var v : uint8 = to_uint8(100);
		print(u + v);`))
	assert.Equal(t, "44 \n", out)
}

func TestDivisionByZero(t *testing.T) {
	assert.Equal(t, errs.Interpreter, runKind(t, inMain("print(1 / 0);")))
	assert.Equal(t, errs.Interpreter, runKind(t, inMain("print(1 % 0);")))
}

func TestFloatDivisionByZeroIsInf(t *testing.T) {
	out := runOK(t, inMain("print(1.0 / 0.0);"))
	assert.Equal(t, "+Inf \n", out)
}

func TestOperatorTypeMismatch(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("print(1 + 2.5);")))
	assert.Equal(t, errs.Type, runKind(t, inMain(`print("a" + "b");`)))
	assert.Equal(t, errs.Type, runKind(t, inMain("print(2.5 % 2.0);")))
}

func TestArrayIsNotOperable(t *testing.T) {
	kind := runKind(t, inMain("var a : int32[2]; var b : int32[2]; print(a + b);"))
	assert.Equal(t, errs.Type, kind)
}

// --------------- Control flow --------------- //

func TestIfElse(t *testing.T) {
	out := runOK(t, inMain(`
		var x : int32 = 5;
		if (x < 3) { print(1); } else { print(2); }`))
	assert.Equal(t, "2 \n", out)
}

func TestNonBoolCondition(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("if (0) { }")))
	assert.Equal(t, errs.Type, runKind(t, inMain("while (1) { }")))
	assert.Equal(t, errs.Type, runKind(t, inMain("for (var i : int32 = 0; i; i = i + 1;) { }")))
}

func TestWhileBreakContinue(t *testing.T) {
	out := runOK(t, inMain(`
		var i : int32 = 0;
		var sum : int32 = 0;
		while (i < 10) {
			i = i + 1;
			if (i % 2 == 0) { continue; }
			if (i > 5) { break; }
			sum = sum + i;
		}
		print(sum);`))
	assert.Equal(t, "9 \n", out)
}

func TestReturnUnwindsLoops(t *testing.T) {
	out := runOK(t, `
function f() : int32 {
	while (1 == 1) {
		for (var i : int32 = 0; i < 10; i = i + 1;) {
			if (i == 3) { return i; }
		}
	}
	return 0;
}
function main() : int32 { print(f()); return 0; }`)
	assert.Equal(t, "3 \n", out)
}

func TestBlockScoping(t *testing.T) {
	// the inner declaration shadows; the outer binding survives the block
	out := runOK(t, inMain(`
		var x : int32 = 1;
		if (1 == 1) {
			var x : int32 = 2;
			print(x);
		}
		print(x);`))
	assert.Equal(t, "2 \n1 \n", out)
}

// --------------- Declarations and names --------------- //

func TestUndeclaredName(t *testing.T) {
	assert.Equal(t, errs.Name, runKind(t, inMain("print(nope);")))
}

func TestVarInitTypeMismatch(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain(`var x : int32 = "s";`)))
}

func TestVoidVarNeedsInit(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("var x : void;")))
}

func TestGlobalVariables(t *testing.T) {
	out := runOK(t, `
var counter : int32 = 40;
function bump() { counter = counter + 2; }
function main() : int32 { bump(); print(counter); return 0; }`)
	assert.Equal(t, "42 \n", out)
}

func TestFunctionArity(t *testing.T) {
	src := `
function f(a : int32) : int32 { return a; }
function main() : int32 { f(1, 2); return 0; }`
	assert.Equal(t, errs.Arity, runKind(t, src))
}

func TestArgumentTypeMismatch(t *testing.T) {
	src := `
function f(a : int32) : int32 { return a; }
function main() : int32 { f("s"); return 0; }`
	assert.Equal(t, errs.Type, runKind(t, src))
}

func TestCallingNonCallable(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("var x : int32 = 1; x();")))
}

func TestIndexOutOfBounds(t *testing.T) {
	assert.Equal(t, errs.Index, runKind(t, inMain("var a : int32[3]; print(a[3]);")))
	assert.Equal(t, errs.Index, runKind(t, inMain("var a : int32[3]; a[3] = 1;")))
}

func TestIndexInBounds(t *testing.T) {
	out := runOK(t, inMain("var a : int32[3]; a[0] = 5; print(a[0]);"))
	assert.Equal(t, "5 \n", out)
}

// --------------- Built-ins --------------- //

func TestCasts(t *testing.T) {
	cases := map[string]string{
		"print(to_int32('a'));":        "97 \n",
		"print(to_char(98));":          "b \n",
		"print(to_fp64(3));":           "3 \n",
		"print(to_fp32(1) + 0.5);":     "1.5 \n",
		"print(to_int32(2.9));":        "2 \n",
		"print(to_uint8(300));":        "44 \n",
		"print(to_int32(to_uint8(7)));": "7 \n",
	}
	for source, want := range cases {
		assert.Equal(t, want, runOK(t, inMain(source)), "source: %s", source)
	}
}

func TestCastArity(t *testing.T) {
	assert.Equal(t, errs.Arity, runKind(t, inMain("to_int32(1, 2);")))
}

func TestCastRejectsStr(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain(`to_int32("5");`)))
}

func TestPrintRejectsArray(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("var a : int32[2]; print(a);")))
}

func TestStringSizeWantsStr(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("__string_size(5);")))
	assert.Equal(t, errs.Arity, runKind(t, inMain("__string_size();")))
}

func TestOpenIsReserved(t *testing.T) {
	assert.Equal(t, errs.NotImplemented, runKind(t, inMain(`open("f");`)))
}

func TestDebugShowsRegistryState(t *testing.T) {
	out := runOK(t, inMain("var x : int32 = 3; debug(x);"))
	assert.Contains(t, out, "Const Flag: false")
	assert.Contains(t, out, "Reference Counter: 1")
	assert.Contains(t, out, "Type: int32")
	assert.Contains(t, out, "Value: 3")
}

func TestImport(t *testing.T) {
	source := inMain(`
		const m = import("lib");
		print(m.add(1, 2));`)

	toks, err := lexer.New(source).Scan()
	require.NoError(t, err)
	prog, err := parser.New(toks).Parse()
	require.NoError(t, err)

	out := &strings.Builder{}
	in := New(out)
	in.Loader = func(path string) (string, error) {
		assert.Equal(t, "lib", path)
		return "function add(a : int32, b : int32) : int32 { return a + b; }", nil
	}
	require.NoError(t, in.Run(prog))
	assert.Equal(t, "3 \n", out.String())
}

func TestImportWithoutLoader(t *testing.T) {
	assert.Equal(t, errs.Import, runKind(t, inMain(`import("lib");`)))
}

// --------------- Classes, unions, generics --------------- //

func TestMethodCall(t *testing.T) {
	out := runOK(t, `
class Counter {
	var n : int32;
	function new() { this.n = 0; }
	function bump() { this.n = this.n + 1; }
	function value() : int32 { return this.n; }
}
function main() : int32 {
	var c : Counter = Counter();
	c.bump();
	c.bump();
	print(c.value());
	return 0;
}`)
	assert.Equal(t, "2 \n", out)
}

func TestConstructorLookupBypass(t *testing.T) {
	// Box.new resolves on the outer table, not inside an instance
	out := runOK(t, `
class Box {
	var v : int32;
	function new(x : int32) { this.v = x; }
}
function main() : int32 {
	debug(Box.new);
	return 0;
}`)
	assert.Contains(t, out, "Type: function")
}

func TestGenerics(t *testing.T) {
	out := runOK(t, `
class Holder<T> {
	var v : T;
	function new(x : T) { this.v = x; }
	function get() : T { return this.v; }
}
function main() : int32 {
	var h : Holder<int32> = Holder<int32>(41);
	print(h.get() + 1);
	var s : Holder<str> = Holder<str>("hi");
	print(s.get());
	return 0;
}`)
	assert.Equal(t, "42 \nhi \n", out)
}

func TestGenericTypeMismatch(t *testing.T) {
	src := `
class Holder<T> {
	var v : T;
	function new(x : T) { this.v = x; }
}
function main() : int32 {
	var h : Holder<int32> = Holder<int32>("s");
	return 0;
}`
	assert.Equal(t, errs.Type, runKind(t, src))
}

const shapeUnion = `
union Shape {
	class Circle {
		var r : int32;
		function new(r2 : int32) { this.r = r2; }
	}
	class Point {
		function new() { }
	}
}
`

func TestUnionMatch(t *testing.T) {
	out := runOK(t, shapeUnion+`
function main() : int32 {
	var s : Shape.Circle = Shape.Circle(5);
	match (s) {
		Point { print(0); }
		Circle(c) { print(c.r); }
	}
	return 0;
}`)
	assert.Equal(t, "5 \n", out)
}

func TestMatchFirstWins(t *testing.T) {
	out := runOK(t, shapeUnion+`
function main() : int32 {
	var s : Shape.Point = Shape.Point();
	match (s) {
		Point { print(1); }
		Point { print(2); }
	}
	return 0;
}`)
	assert.Equal(t, "1 \n", out)
}

func TestMatchNoLineMatches(t *testing.T) {
	out := runOK(t, shapeUnion+`
function main() : int32 {
	var s : Shape.Point = Shape.Point();
	match (s) {
		Circle(c) { print(c.r); }
	}
	print(9);
	return 0;
}`)
	assert.Equal(t, "9 \n", out)
}

func TestMatchNonUnionSubject(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("var x : int32 = 1; match (x) { }")))
}

// --------------- Assignment disciplines --------------- //

func TestMoveDiscipline(t *testing.T) {
	out := runOK(t, inMain(`
		var a : int32 = 1;
		var b : int32 = 2;
		__move(b, a);
		print(b);`))
	assert.Equal(t, "1 \n", out)
}

func TestMoveInvalidatesSource(t *testing.T) {
	kind := runKind(t, inMain(`
		var a : int32 = 1;
		var b : int32 = 2;
		__move(b, a);
		print(a);`))
	assert.Equal(t, errs.Name, kind)
}

func TestMoveRejectsConstTarget(t *testing.T) {
	kind := runKind(t, inMain(`
		var a : int32 = 1;
		const b = 2;
		__move(b, a);`))
	assert.Equal(t, errs.Const, kind)
}

func TestDeepCopyDiscipline(t *testing.T) {
	out := runOK(t, `
class Box {
	var v : int32;
	function new(x : int32) { this.v = x; }
}
function main() : int32 {
	var b : Box = Box(7);
	var c : Box = Box(0);
	__deepcopy(c, b);
	c.v = 9;
	print(b.v);
	print(c.v);
	return 0;
}`)
	assert.Equal(t, "7 \n9 \n", out)
}

func TestDeepCopyRebindsMethods(t *testing.T) {
	out := runOK(t, `
class Counter {
	var n : int32;
	function new(x : int32) { this.n = x; }
	function bump() { this.n = this.n + 1; }
}
function main() : int32 {
	var a : Counter = Counter(10);
	var b : Counter = Counter(0);
	__deepcopy(b, a);
	b.bump();
	print(a.n);
	print(b.n);
	return 0;
}`)
	assert.Equal(t, "10 \n11 \n", out)
}

func TestCopySharesThenRebinds(t *testing.T) {
	// `=` rebinds the left cell without invalidating other references
	out := runOK(t, inMain(`
		var a : int32 = 1;
		var b : int32 = 5;
		b = a;
		a = 3;
		print(a);
		print(b);`))
	assert.Equal(t, "3 \n1 \n", out)
}

func TestAssignTypeMismatch(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain(`var x : int32 = 1; x = "s";`)))
}

func TestAssignToLiteral(t *testing.T) {
	assert.Equal(t, errs.Type, runKind(t, inMain("1 = 2;")))
}

func TestAssignToCall(t *testing.T) {
	src := `
function f() : int32 { return 1; }
function main() : int32 { f() = 2; return 0; }`
	assert.Equal(t, errs.Type, runKind(t, src))
}

// --------------- Errors carry positions --------------- //

func TestRuntimeErrorHasPosition(t *testing.T) {
	_, err := run(t, "function main() : int32 {\n    print(1 / 0);\n    return 0;\n}")

	var ycErr *errs.Error
	require.ErrorAs(t, err, &ycErr)
	require.NotNil(t, ycErr.Pos)
	assert.Equal(t, 2, ycErr.Pos.Row)
	assert.Contains(t, ycErr.Error(), "line 2:")
	assert.Contains(t, ycErr.Error(), "print(1 / 0);")
}

func TestMissingMain(t *testing.T) {
	assert.Equal(t, errs.Name, runKind(t, "var x : int32 = 1;"))
}
