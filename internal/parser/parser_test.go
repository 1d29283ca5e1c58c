package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/klare-lang/klare/internal/ast"
	"github.com/klare-lang/klare/internal/diagnostic"
	"github.com/klare-lang/klare/internal/lexer"
	"github.com/klare-lang/klare/internal/token"
)

func parseSource(t *testing.T, src string) *ast.AST {
	t.Helper()
	lx := lexer.New("test.klr", []byte(src))
	tokens := lx.Tokenize()
	p := New("test.klr", []byte(src), tokens, lx.LineStarts())
	tree, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return tree
}

func parseError(t *testing.T, src string) *diagnostic.Error {
	t.Helper()
	lx := lexer.New("test.klr", []byte(src))
	tokens := lx.Tokenize()
	p := New("test.klr", []byte(src), tokens, lx.LineStarts())
	tree, err := p.Parse()
	if err == nil {
		t.Fatalf("expected parse error for %q, got none", src)
	}
	if tree != nil {
		t.Fatalf("expected no AST on error, got one for %q", src)
	}
	var diag *diagnostic.Error
	if !errors.As(err, &diag) {
		t.Fatalf("expected *diagnostic.Error, got %T", err)
	}
	return diag
}

func rootChildren(t *testing.T, tree *ast.AST) []uint32 {
	t.Helper()
	if len(tree.Nodes) == 0 || tree.Nodes[0].Kind != ast.KindRoot {
		t.Fatalf("node 0 is not the root")
	}
	return tree.Nodes[0].Children
}

func singleDecl(t *testing.T, tree *ast.AST) *ast.Node {
	t.Helper()
	children := rootChildren(t, tree)
	if len(children) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(children))
	}
	n := &tree.Nodes[children[0]]
	if n.Kind != ast.KindDecl {
		t.Fatalf("expected DECL, got %s", n.Kind)
	}
	return n
}

func TestSimpleDecl(t *testing.T) {
	tree := parseSource(t, "var x: i32 = 0;")
	decl := singleDecl(t, tree)

	if decl.Flags != ast.FlagNone {
		t.Errorf("expected no flags, got %b", decl.Flags)
	}
	if decl.Decl.Type == 0 {
		t.Fatalf("expected a type node")
	}
	typeNode := tree.Nodes[decl.Decl.Type]
	if typeNode.Kind != ast.KindType || typeNode.Token.Kind != token.I32 {
		t.Errorf("expected type i32, got %s over %s", typeNode.Kind, typeNode.Token.Kind)
	}
	if decl.Decl.Init == 0 {
		t.Fatalf("expected an initializer")
	}
	initNode := tree.Nodes[decl.Decl.Init]
	if initNode.Kind != ast.KindLiteral || initNode.Token.Kind != token.NumLiteral {
		t.Errorf("expected numeric literal initializer, got %s", initNode.Kind)
	}
}

func TestConstArrayDecl(t *testing.T) {
	tree := parseSource(t, "const arr: i32[] = { 1, 2, 3, 4, 5 };")
	decl := singleDecl(t, tree)

	if decl.Flags&ast.FlagIsConst == 0 {
		t.Errorf("expected is-const flag")
	}
	typeNode := tree.Nodes[decl.Decl.Type]
	if typeNode.Kind != ast.KindArrayType {
		t.Fatalf("expected ARRAY_TYPE, got %s", typeNode.Kind)
	}
	elem := tree.Nodes[typeNode.Children[0]]
	if elem.Kind != ast.KindType || elem.Token.Kind != token.I32 {
		t.Errorf("expected i32 element type, got %s", elem.Token.Kind)
	}

	initNode := tree.Nodes[decl.Decl.Init]
	if initNode.Kind != ast.KindArrayInit {
		t.Fatalf("expected ARRAY_INIT, got %s", initNode.Kind)
	}
	if len(initNode.Children) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(initNode.Children))
	}
	for _, c := range initNode.Children {
		if tree.Nodes[c].Kind != ast.KindLiteral {
			t.Errorf("expected literal element, got %s", tree.Nodes[c].Kind)
		}
	}
}

func TestInferredDecl(t *testing.T) {
	tree := parseSource(t, "var x = 5;")
	decl := singleDecl(t, tree)

	if decl.Flags&ast.FlagTypeInfer == 0 {
		t.Errorf("expected type-infer flag")
	}
	if decl.Decl.Type != 0 {
		t.Errorf("expected no type node, got %d", decl.Decl.Type)
	}
	if decl.Decl.Init == 0 {
		t.Errorf("expected initializer")
	}
}

func TestDeclWithoutInitializer(t *testing.T) {
	tree := parseSource(t, "var x: u64;")
	decl := singleDecl(t, tree)
	if decl.Decl.Init != 0 {
		t.Errorf("expected no initializer, got %d", decl.Decl.Init)
	}
	if decl.Decl.Type == 0 {
		t.Errorf("expected a type node")
	}
}

func TestNestedGenericDecl(t *testing.T) {
	tree := parseSource(t, "var x: Share<Share<i32>> = null;")
	decl := singleDecl(t, tree)

	outer := tree.Nodes[decl.Decl.Type]
	if outer.Kind != ast.KindType || outer.Token.Kind != token.Share {
		t.Fatalf("expected outer Share, got %s", outer.Token.Kind)
	}
	if len(outer.Children) != 1 {
		t.Fatalf("expected one inner type, got %d", len(outer.Children))
	}
	inner := tree.Nodes[outer.Children[0]]
	if inner.Kind != ast.KindType || inner.Token.Kind != token.Share {
		t.Fatalf("expected inner Share, got %s", inner.Token.Kind)
	}
	leaf := tree.Nodes[inner.Children[0]]
	if leaf.Token.Kind != token.I32 {
		t.Fatalf("expected i32 leaf, got %s", leaf.Token.Kind)
	}

	initNode := tree.Nodes[decl.Decl.Init]
	if initNode.Kind != ast.KindLiteral || initNode.Token.Kind != token.Null {
		t.Errorf("expected null literal, got %s", initNode.Token.Kind)
	}
}

func TestOwnershipQualifiers(t *testing.T) {
	for _, q := range []string{"Own", "Share", "Ref", "Pin"} {
		tree := parseSource(t, "var p: "+q+"<u8> = null;")
		decl := singleDecl(t, tree)
		outer := tree.Nodes[decl.Decl.Type]
		if outer.Kind != ast.KindType {
			t.Errorf("%s: expected TYPE, got %s", q, outer.Kind)
		}
		if len(outer.Children) != 1 {
			t.Errorf("%s: expected wrapped inner type", q)
		}
	}
}

func TestNamedGenericType(t *testing.T) {
	tree := parseSource(t, "var m: Map<string, i32> = null;")
	decl := singleDecl(t, tree)
	m := tree.Nodes[decl.Decl.Type]
	if m.Kind != ast.KindType || len(m.Children) != 2 {
		t.Fatalf("expected Map with 2 generic arguments, got %d", len(m.Children))
	}
	if tree.Nodes[m.Children[0]].Token.Kind != token.String {
		t.Errorf("expected string argument")
	}
	if tree.Nodes[m.Children[1]].Token.Kind != token.I32 {
		t.Errorf("expected i32 argument")
	}
}

func TestFunctionDecl(t *testing.T) {
	tree := parseSource(t, "function add(x: i32, y: i32) -> i32 {}")
	children := rootChildren(t, tree)
	if len(children) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(children))
	}
	fn := tree.Nodes[children[0]]
	if fn.Kind != ast.KindFunction {
		t.Fatalf("expected FUNCTION, got %s", fn.Kind)
	}

	var params []uint32
	for _, c := range fn.Children {
		if tree.Nodes[c].Kind == ast.KindDecl {
			params = append(params, c)
		}
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	for _, p := range params {
		pt := tree.Nodes[tree.Nodes[p].Decl.Type]
		if pt.Kind != ast.KindType || pt.Token.Kind != token.I32 {
			t.Errorf("expected i32 parameter type, got %s", pt.Token.Kind)
		}
	}

	if fn.Function.ReturnType == 0 {
		t.Fatalf("expected return type")
	}
	ret := tree.Nodes[fn.Function.ReturnType]
	if ret.Kind != ast.KindType || ret.Token.Kind != token.I32 {
		t.Errorf("expected i32 return type, got %s", ret.Token.Kind)
	}

	if fn.Function.Body == 0 {
		t.Fatalf("expected body")
	}
	body := tree.Nodes[fn.Function.Body]
	if body.Kind != ast.KindBlock || len(body.Children) != 0 {
		t.Errorf("expected empty block body")
	}
}

func TestGenericFunction(t *testing.T) {
	tree := parseSource(t, "function pack<T, Rest...>(head: T) -> void {}")
	fn := tree.Nodes[rootChildren(t, tree)[0]]

	var generics []uint32
	for _, c := range fn.Children {
		if tree.Nodes[c].Kind == ast.KindType {
			generics = append(generics, c)
		}
	}
	// Two generic parameters plus the return type.
	if len(generics) != 3 {
		t.Fatalf("expected 3 TYPE children, got %d", len(generics))
	}
	if tree.Nodes[generics[0]].Flags&ast.FlagVariadic != 0 {
		t.Errorf("T should not be variadic")
	}
	if tree.Nodes[generics[1]].Flags&ast.FlagVariadic == 0 {
		t.Errorf("Rest... should be variadic")
	}
}

func TestLambdaExpression(t *testing.T) {
	tree := parseSource(t, "var f = function(x: i32) -> i32 { return x; };")
	decl := singleDecl(t, tree)
	fn := tree.Nodes[decl.Decl.Init]
	if fn.Kind != ast.KindFunction {
		t.Fatalf("expected FUNCTION initializer, got %s", fn.Kind)
	}
	if fn.Function.Body == 0 || fn.Function.ReturnType == 0 {
		t.Errorf("lambda missing body or return type")
	}
}

func TestForStatement(t *testing.T) {
	tree := parseSource(t, "function loop() -> void { for (var i = 0; i < 10; i += 1) {} }")
	fn := tree.Nodes[rootChildren(t, tree)[0]]
	body := tree.Nodes[fn.Function.Body]
	if len(body.Children) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(body.Children))
	}
	forNode := tree.Nodes[body.Children[0]]
	if forNode.Kind != ast.KindFor {
		t.Fatalf("expected FOR, got %s", forNode.Kind)
	}
	if len(forNode.Children) != 4 {
		t.Fatalf("expected 4 children (init, cond, incr, body), got %d", len(forNode.Children))
	}

	init := tree.Nodes[forNode.Children[0]]
	if init.Kind != ast.KindDecl {
		t.Errorf("expected DECL init, got %s", init.Kind)
	}
	cond := tree.Nodes[forNode.Children[1]]
	if cond.Kind != ast.KindBinaryExpr || cond.Binary.Op != token.Less {
		t.Errorf("expected binary '<' condition, got %s", cond.Kind)
	}
	incr := tree.Nodes[forNode.Children[2]]
	if incr.Kind != ast.KindBinaryExpr || incr.Binary.Op != token.PlusEq {
		t.Errorf("expected binary '+=' increment, got %s", incr.Kind)
	}
	blk := tree.Nodes[forNode.Children[3]]
	if blk.Kind != ast.KindBlock || len(blk.Children) != 0 {
		t.Errorf("expected empty block, got %s", blk.Kind)
	}
}

func TestEmptyForClauses(t *testing.T) {
	tree := parseSource(t, "function spin() -> void { for (;;) {} }")
	fn := tree.Nodes[rootChildren(t, tree)[0]]
	body := tree.Nodes[fn.Function.Body]
	forNode := tree.Nodes[body.Children[0]]
	if len(forNode.Children) != 1 {
		t.Fatalf("expected only the body child, got %d", len(forNode.Children))
	}
	if tree.Nodes[forNode.Children[0]].Kind != ast.KindBlock {
		t.Errorf("expected block child")
	}
}

func TestIfElseChain(t *testing.T) {
	src := `function classify(x: i32) -> void {
		if (x < 0) { return; } else if (x == 0) { return; } else { return; }
	}`
	tree := parseSource(t, src)
	fn := tree.Nodes[rootChildren(t, tree)[0]]
	body := tree.Nodes[fn.Function.Body]
	ifNode := tree.Nodes[body.Children[0]]
	if ifNode.Kind != ast.KindIf {
		t.Fatalf("expected IF, got %s", ifNode.Kind)
	}
	if len(ifNode.Children) != 3 {
		t.Fatalf("expected condition, then, else; got %d children", len(ifNode.Children))
	}
	elseNode := tree.Nodes[ifNode.Children[2]]
	if elseNode.Kind != ast.KindIf {
		t.Fatalf("expected nested IF in else branch, got %s", elseNode.Kind)
	}
	if len(elseNode.Children) != 3 {
		t.Fatalf("expected nested if with else block, got %d children", len(elseNode.Children))
	}
}

func TestWhileStatement(t *testing.T) {
	tree := parseSource(t, "function spin() -> void { while (true) { break; } }")
	fn := tree.Nodes[rootChildren(t, tree)[0]]
	body := tree.Nodes[fn.Function.Body]
	whileNode := tree.Nodes[body.Children[0]]
	if whileNode.Kind != ast.KindWhile || len(whileNode.Children) != 2 {
		t.Fatalf("expected WHILE with condition and body")
	}
	loopBody := tree.Nodes[whileNode.Children[1]]
	if len(loopBody.Children) != 1 || tree.Nodes[loopBody.Children[0]].Kind != ast.KindBreak {
		t.Errorf("expected single BREAK statement")
	}
}

func TestContinueStatement(t *testing.T) {
	tree := parseSource(t, "function spin() -> void { while (true) { continue; } }")
	fn := tree.Nodes[rootChildren(t, tree)[0]]
	body := tree.Nodes[fn.Function.Body]
	loopBody := tree.Nodes[tree.Nodes[body.Children[0]].Children[1]]
	if tree.Nodes[loopBody.Children[0]].Kind != ast.KindContinue {
		t.Errorf("expected CONTINUE statement")
	}
}

// exprFromDecl parses "var x = <expr>;" and returns the initializer.
func exprFromDecl(t *testing.T, expr string) (*ast.AST, *ast.Node) {
	t.Helper()
	tree := parseSource(t, "var x = "+expr+";")
	decl := singleDecl(t, tree)
	return tree, &tree.Nodes[decl.Decl.Init]
}

func TestBinaryPrecedence(t *testing.T) {
	tree, n := exprFromDecl(t, "1 + 2 * 3")
	if n.Kind != ast.KindBinaryExpr || n.Binary.Op != token.Plus {
		t.Fatalf("expected '+' at the top, got %s", n.Binary.Op)
	}
	right := tree.Nodes[n.Binary.Right]
	if right.Binary.Op != token.Star {
		t.Errorf("expected '*' on the right, got %s", right.Binary.Op)
	}
}

func TestComparisonBindsLooserThanAdditive(t *testing.T) {
	_, n := exprFromDecl(t, "1 + 2 < 3 * 4")
	if n.Kind != ast.KindBinaryExpr || n.Binary.Op != token.Less {
		t.Fatalf("expected '<' at the top, got %s", n.Binary.Op)
	}
}

func TestShiftThroughCompoundMarkers(t *testing.T) {
	tree, n := exprFromDecl(t, "a << b")
	if n.Kind != ast.KindBinaryExpr || n.Binary.Op != token.LeftShift {
		t.Fatalf("expected '<<', got %s", n.Binary.Op)
	}
	tree, n = exprFromDecl(t, "a >> 2")
	if n.Binary.Op != token.RightShift {
		t.Fatalf("expected '>>', got %s", n.Binary.Op)
	}
	left := tree.Nodes[n.Binary.Left]
	if left.Kind != ast.KindIdentifier {
		t.Errorf("expected identifier left operand")
	}
}

func TestLogicalOperators(t *testing.T) {
	tree, n := exprFromDecl(t, "a && b || c")
	if n.Binary.Op != token.LogicalOr {
		t.Fatalf("expected '||' at the top, got %s", n.Binary.Op)
	}
	left := tree.Nodes[n.Binary.Left]
	if left.Binary.Op != token.LogicalAnd {
		t.Errorf("expected '&&' on the left, got %s", left.Binary.Op)
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	tree, n := exprFromDecl(t, "a = b = c")
	if n.Binary.Op != token.Equal {
		t.Fatalf("expected '=', got %s", n.Binary.Op)
	}
	right := tree.Nodes[n.Binary.Right]
	if right.Kind != ast.KindBinaryExpr || right.Binary.Op != token.Equal {
		t.Errorf("expected nested '=' on the right")
	}
}

func TestTernary(t *testing.T) {
	tree, n := exprFromDecl(t, "a ? 1 : 2")
	if n.Kind != ast.KindTernary {
		t.Fatalf("expected TERNARY, got %s", n.Kind)
	}
	if len(n.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(n.Children))
	}
	if tree.Nodes[n.Children[0]].Kind != ast.KindIdentifier {
		t.Errorf("expected identifier condition")
	}
}

func TestUnaryOperators(t *testing.T) {
	for _, tt := range []struct {
		src string
		op  token.Kind
	}{
		{"!a", token.Bang},
		{"-a", token.Minus},
		{"~a", token.Tilde},
		{"&a", token.And},
		{"*a", token.Star},
	} {
		_, n := exprFromDecl(t, tt.src)
		if n.Kind != ast.KindUnaryExpr || n.Unary.Op != tt.op {
			t.Errorf("%q: expected unary %s, got %s", tt.src, tt.op, n.Unary.Op)
		}
	}
}

func TestNewExpression(t *testing.T) {
	tree, n := exprFromDecl(t, "new Buffer(64)")
	if n.Kind != ast.KindUnaryExpr || n.Unary.Op != token.New {
		t.Fatalf("expected unary new, got %s", n.Kind)
	}
	typeNode := tree.Nodes[n.Unary.Operand]
	if typeNode.Kind != ast.KindType {
		t.Fatalf("expected TYPE operand, got %s", typeNode.Kind)
	}
	if len(n.Children) != 2 {
		t.Fatalf("expected type + initializer children, got %d", len(n.Children))
	}

	_, n = exprFromDecl(t, "new i32[] { 1, 2 }")
	if n.Unary.Op != token.New {
		t.Fatalf("expected new")
	}
	if len(n.Children) != 2 {
		t.Fatalf("expected array-init initializer attached, got %d children", len(n.Children))
	}
}

func TestDeleteExpression(t *testing.T) {
	tree, n := exprFromDecl(t, "delete p")
	if n.Kind != ast.KindUnaryExpr || n.Unary.Op != token.Delete {
		t.Fatalf("expected unary delete, got %s", n.Kind)
	}
	if tree.Nodes[n.Unary.Operand].Kind != ast.KindIdentifier {
		t.Errorf("expected identifier operand")
	}
}

func TestCastExpression(t *testing.T) {
	tree, n := exprFromDecl(t, "cast<u8>(x + 1)")
	if n.Kind != ast.KindCastExpr {
		t.Fatalf("expected CAST_EXPR, got %s", n.Kind)
	}
	if tree.Nodes[n.Cast.Type].Token.Kind != token.U8 {
		t.Errorf("expected u8 target type")
	}
	if tree.Nodes[n.Cast.Operand].Kind != ast.KindBinaryExpr {
		t.Errorf("expected binary operand")
	}
}

func TestCallChain(t *testing.T) {
	tree, n := exprFromDecl(t, "f(1, 2)")
	if n.Kind != ast.KindCall {
		t.Fatalf("expected CALL, got %s", n.Kind)
	}
	// Callee plus two arguments.
	if len(n.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(n.Children))
	}

	tree, n = exprFromDecl(t, "obj.method(1).next()")
	if n.Kind != ast.KindMethodCall {
		t.Fatalf("expected METHOD_CALL, got %s", n.Kind)
	}
	receiver := tree.Nodes[n.Children[0]]
	if receiver.Kind != ast.KindMethodCall {
		t.Errorf("expected chained METHOD_CALL receiver, got %s", receiver.Kind)
	}
}

func TestClassAndStructSkipped(t *testing.T) {
	tree := parseSource(t, "class struct var x = 1;")
	children := rootChildren(t, tree)
	if len(children) != 1 {
		t.Fatalf("expected class/struct to be skipped, got %d children", len(children))
	}
	if tree.Nodes[children[0]].Kind != ast.KindDecl {
		t.Errorf("expected the decl to survive")
	}
}

func TestParentLinks(t *testing.T) {
	tree := parseSource(t, "function add(x: i32) -> i32 { return x + 1; }")
	for idx := 1; idx < len(tree.Nodes); idx++ {
		n := tree.Nodes[idx]
		parent := tree.Nodes[n.Parent]
		count := 0
		for _, c := range parent.Children {
			if c == uint32(idx) {
				count++
			}
		}
		if count != 1 {
			t.Errorf("node %d appears %d times in parent %d's children", idx, count, n.Parent)
		}
	}
}

func TestMissingSemicolonError(t *testing.T) {
	diag := parseError(t, "var x = 5")
	if diag.Category != diagnostic.ExpectedToken {
		t.Errorf("expected expected-token, got %s", diag.Category)
	}
	if !strings.Contains(diag.Message, "';'") {
		t.Errorf("message should cite ';': %q", diag.Message)
	}
	// The diagnostic points at the end of input.
	if diag.Pos.Line != 1 || diag.Pos.Column != 9 {
		t.Errorf("expected 1:9, got %s", diag.Pos)
	}
}

func TestParameterSeparatorError(t *testing.T) {
	diag := parseError(t, "function f(x: i32 y: i32) -> void {}")
	if diag.Category != diagnostic.InvalidParameter {
		t.Errorf("expected invalid-parameter, got %s", diag.Category)
	}
	if !strings.Contains(diag.Message, "separated by commas") {
		t.Errorf("unexpected message: %q", diag.Message)
	}
}

func TestInvalidTypeError(t *testing.T) {
	diag := parseError(t, "var x: = 5;")
	if diag.Category != diagnostic.InvalidType {
		t.Errorf("expected invalid-type, got %s", diag.Category)
	}
}

func TestUnexpectedPrimaryError(t *testing.T) {
	diag := parseError(t, "var x = ;")
	if diag.Category != diagnostic.UnexpectedPrimary {
		t.Errorf("expected unexpected-primary, got %s", diag.Category)
	}
}

func TestMissingMethodParensError(t *testing.T) {
	diag := parseError(t, "var x = obj.field;")
	if diag.Category != diagnostic.MissingMethodParens {
		t.Errorf("expected missing-method-parens, got %s", diag.Category)
	}
}

func TestMissingArrowError(t *testing.T) {
	diag := parseError(t, "function f() {}")
	if diag.Category != diagnostic.ExpectedToken {
		t.Errorf("expected expected-token, got %s", diag.Category)
	}
	if !strings.Contains(diag.Message, "'->'") {
		t.Errorf("message should cite '->': %q", diag.Message)
	}
}

func TestUnclosedBlockError(t *testing.T) {
	diag := parseError(t, "function f() -> void { var x = 1;")
	if diag.Category != diagnostic.ExpectedToken {
		t.Errorf("expected expected-token, got %s", diag.Category)
	}
	if !strings.Contains(diag.Message, "'}'") {
		t.Errorf("message should cite '}': %q", diag.Message)
	}
}

func TestFlagsCopiedIntoLiteralNode(t *testing.T) {
	// 1e has an invalid exponent; the flag must survive on the AST node's
	// copied token.
	tree := parseSource(t, "var x = 1e;")
	decl := singleDecl(t, tree)
	lit := tree.Nodes[decl.Decl.Init]
	if !lit.Token.Flags.Has(token.FlagInvalidExponent) {
		t.Errorf("scanner flag lost on the way into the AST")
	}
}

func TestNodeIndicesMonotone(t *testing.T) {
	tree := parseSource(t, "function f(a: i32) -> i32 { return a * 2; }")
	for idx, n := range tree.Nodes {
		for _, c := range n.Children {
			if int(c) >= len(tree.Nodes) {
				t.Fatalf("node %d references out-of-range child %d", idx, c)
			}
		}
	}
}
