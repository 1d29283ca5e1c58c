// Package token defines the lexical vocabulary of the Klare language:
// token kinds, per-token diagnostic flags, and the columnar token buffer
// shared between the scanner and the parser.
package token

import "fmt"

// Kind classifies a token.
type Kind uint8

// Token kinds. The order groups keywords, built-in types, operators,
// delimiters, annotations, and catch-alls; the parser switches on these
// directly.
const (
	// Keywords.
	True Kind = iota
	False
	Null
	Import
	Var
	Const
	Function
	Inline
	Return
	Enum
	If
	Else
	For
	While
	Break
	Continue
	Switch
	Case
	Default
	Struct
	Class
	Final
	Public
	Private
	Static
	Await
	Async
	Try
	Catch
	From
	As
	Operator
	New
	Delete
	In
	Self
	Namespace
	Export

	// Built-in types.
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	String
	Bool
	Void

	// Ownership qualifiers.
	Own
	Share
	Ref
	Pin

	Cast

	// Single-character operators.
	Plus
	Minus
	Star
	Slash
	Percent
	Equal
	Bang
	Less
	Greater
	And
	Or
	Xor
	Tilde
	Dot

	// Multi-character operators.
	Arrow
	Scope
	Range
	Spread
	LogicalAnd
	LogicalOr
	Ge
	Le
	Eq
	Ne
	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	AndEq
	OrEq
	XorEq
	LeftShift
	RightShift
	LeftShiftEq
	RightShiftEq

	// Delimiters.
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	Comma
	Colon
	Semicolon
	Question

	// Annotations.
	AlignAnnot
	DeprecatedAnnot
	PackedAnnot
	NoDiscardAnnot
	VolatileAnnot
	LazyAnnot
	PureAnnot
	TailRecAnnot
	OverrideAnnot

	// Catch-alls.
	Identifier
	NumLiteral
	StrLiteral
	Annotation
	Unknown
	EOF
)

// Flags is a bitset of per-token diagnostic markers. The scanner encodes
// malformed lexemes here instead of failing; consumers may report,
// repair, or ignore.
type Flags uint16

const (
	FlagNone Flags = 0

	// Literal errors.
	FlagUnterminatedString Flags = 1 << 0
	FlagInvalidEscape      Flags = 1 << 1
	FlagInvalidDigit       Flags = 1 << 2

	FlagMultipleDecimalPoints Flags = 1 << 3
	FlagInvalidExponent       Flags = 1 << 4

	// Comment errors.
	FlagUnterminatedBlockComment Flags = 1 << 5

	// Identifier errors.
	FlagInvalidIdentifierStart Flags = 1 << 6
	FlagInvalidIdentifierChar  Flags = 1 << 7

	// Compound angle markers: the two halves of a << or >> sequence that
	// the scanner emits as two single-angle tokens so the parser can
	// close nested generics.
	FlagCompoundStart Flags = 1 << 8
	FlagCompoundEnd   Flags = 1 << 9
)

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Token is a fixed-size record referencing the source buffer. The lexeme
// is src[Start : Start+uint32(Len)]; the buffer must outlive the token.
type Token struct {
	Start uint32
	Len   uint16
	Kind  Kind
	Flags Flags
}

// Text returns the token's lexeme from the source buffer.
func (t Token) Text(src []byte) string {
	return string(src[t.Start : t.Start+uint32(t.Len)])
}

// List is the columnar token buffer: four parallel append-only arrays
// addressed by a common index.
type List struct {
	Starts []uint32
	Lens   []uint16
	Kinds  []Kind
	Flags  []Flags
}

// NewList returns a list with capacity hints sized for n source bytes.
func NewList(n int) *List {
	return &List{
		Starts: make([]uint32, 0, n/4),
		Lens:   make([]uint16, 0, n/4),
		Kinds:  make([]Kind, 0, n/4),
		Flags:  make([]Flags, 0, n/4),
	}
}

// Push appends a token.
func (l *List) Push(t Token) {
	l.Starts = append(l.Starts, t.Start)
	l.Lens = append(l.Lens, t.Len)
	l.Kinds = append(l.Kinds, t.Kind)
	l.Flags = append(l.Flags, t.Flags)
}

// Len returns the number of tokens.
func (l *List) Len() int {
	return len(l.Starts)
}

// At reassembles the i-th token record.
func (l *List) At(i int) Token {
	return Token{
		Start: l.Starts[i],
		Len:   l.Lens[i],
		Kind:  l.Kinds[i],
		Flags: l.Flags[i],
	}
}

// keywordMap maps reserved lexemes (keywords, built-in types, ownership
// qualifiers, cast, and the recognized annotations) to their kinds.
var keywordMap = map[string]Kind{
	"true":      True,
	"false":     False,
	"null":      Null,
	"import":    Import,
	"var":       Var,
	"const":     Const,
	"function":  Function,
	"inline":    Inline,
	"return":    Return,
	"enum":      Enum,
	"if":        If,
	"else":      Else,
	"for":       For,
	"while":     While,
	"break":     Break,
	"continue":  Continue,
	"switch":    Switch,
	"case":      Case,
	"default":   Default,
	"struct":    Struct,
	"class":     Class,
	"final":     Final,
	"public":    Public,
	"private":   Private,
	"static":    Static,
	"await":     Await,
	"async":     Async,
	"try":       Try,
	"catch":     Catch,
	"from":      From,
	"as":        As,
	"operator":  Operator,
	"new":       New,
	"delete":    Delete,
	"in":        In,
	"self":      Self,
	"namespace": Namespace,
	"export":    Export,

	"u8":     U8,
	"i8":     I8,
	"u16":    U16,
	"i16":    I16,
	"u32":    U32,
	"i32":    I32,
	"u64":    U64,
	"i64":    I64,
	"f32":    F32,
	"f64":    F64,
	"string": String,
	"bool":   Bool,
	"void":   Void,
	"Own":    Own,
	"Share":  Share,
	"Ref":    Ref,
	"Pin":    Pin,

	"cast": Cast,

	"@align":      AlignAnnot,
	"@deprecated": DeprecatedAnnot,
	"@packed":     PackedAnnot,
	"@nodiscard":  NoDiscardAnnot,
	"@volatile":   VolatileAnnot,
	"@lazy":       LazyAnnot,
	"@pure":       PureAnnot,
	"@tailrec":    TailRecAnnot,
	"@override":   OverrideAnnot,
}

// Lookup returns the reserved kind for a lexeme, if any.
func Lookup(text string) (Kind, bool) {
	k, ok := keywordMap[text]
	return k, ok
}

// kindNames is the reverse map: kind to printable lexeme or symbolic
// name. Diagnostics depend on this being total.
var kindNames = map[Kind]string{
	Plus:         "+",
	Minus:        "-",
	Star:         "*",
	Slash:        "/",
	Percent:      "%",
	Equal:        "=",
	Bang:         "!",
	Less:         "<",
	Greater:      ">",
	And:          "&",
	Or:           "|",
	Xor:          "^",
	Tilde:        "~",
	Dot:          ".",
	Arrow:        "->",
	Scope:        "::",
	Range:        "..",
	Spread:       "...",
	LogicalAnd:   "&&",
	LogicalOr:    "||",
	Ge:           ">=",
	Le:           "<=",
	Eq:           "==",
	Ne:           "!=",
	PlusEq:       "+=",
	MinusEq:      "-=",
	StarEq:       "*=",
	SlashEq:      "/=",
	PercentEq:    "%=",
	AndEq:        "&=",
	OrEq:         "|=",
	XorEq:        "^=",
	LeftShift:    "<<",
	RightShift:   ">>",
	LeftShiftEq:  "<<=",
	RightShiftEq: ">>=",
	LeftParen:    "(",
	RightParen:   ")",
	LeftBrace:    "{",
	RightBrace:   "}",
	LeftBracket:  "[",
	RightBracket: "]",
	Comma:        ",",
	Colon:        ":",
	Semicolon:    ";",
	Question:     "?",

	Identifier: "IDENTIFIER",
	NumLiteral: "NUM_LITERAL",
	StrLiteral: "STR_LITERAL",
	Annotation: "ANNOTATION",
	Unknown:    "UNKNOWN",
	EOF:        "EOF",
}

func init() {
	// Keywords, built-in types, and annotations reverse-map to their own
	// lexemes.
	for text, kind := range keywordMap {
		kindNames[kind] = text
	}
}

// String returns the printable lexeme or symbolic name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("INVALID(%d)", uint8(k))
}
