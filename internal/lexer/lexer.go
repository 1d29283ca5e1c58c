// Package lexer implements the Klare scanner: a single-pass tokenizer
// producing a columnar token stream and a line-start index. Malformed
// lexemes never fail the scan; they come back as Unknown tokens or with
// diagnostic flags set on an otherwise ordinary token.
package lexer

import (
	"encoding/binary"

	"github.com/klare-lang/klare/internal/token"
)

// Byte classes for the dispatch table. Classes are mutually exclusive.
const (
	classOther      = 0
	classWhitespace = 1 // space, tab, newline, carriage return
	classSlash      = 2 // comment candidate
	classStar       = 3
	classIdent      = 4 // letter, underscore, or '@'
	classDigit      = 5
	classQuote      = 6 // string delimiter
)

// charClass classifies every byte value once at startup.
var charClass = func() [256]uint8 {
	var t [256]uint8
	for i := 0; i < 256; i++ {
		switch {
		case i == ' ' || i == '\t' || i == '\n' || i == '\r':
			t[i] = classWhitespace
		case i == '/':
			t[i] = classSlash
		case i == '*':
			t[i] = classStar
		case i >= 'a' && i <= 'z' || i >= 'A' && i <= 'Z' || i == '_' || i == '@':
			t[i] = classIdent
		case i >= '0' && i <= '9':
			t[i] = classDigit
		case i == '"':
			t[i] = classQuote
		}
	}
	return t
}()

// singleCharKinds maps a byte to its single-character token kind, or
// Unknown for bytes outside the operator set.
var singleCharKinds = func() [256]token.Kind {
	var t [256]token.Kind
	for i := range t {
		t[i] = token.Unknown
	}
	t['+'] = token.Plus
	t['-'] = token.Minus
	t['*'] = token.Star
	t['/'] = token.Slash
	t['%'] = token.Percent
	t['='] = token.Equal
	t['!'] = token.Bang
	t['<'] = token.Less
	t['>'] = token.Greater
	t['&'] = token.And
	t['|'] = token.Or
	t['^'] = token.Xor
	t['~'] = token.Tilde
	t['.'] = token.Dot
	t['('] = token.LeftParen
	t[')'] = token.RightParen
	t['{'] = token.LeftBrace
	t['}'] = token.RightBrace
	t['['] = token.LeftBracket
	t[']'] = token.RightBracket
	t[','] = token.Comma
	t[':'] = token.Colon
	t[';'] = token.Semicolon
	t['?'] = token.Question
	return t
}()

var hexDigit = func() [256]bool {
	var t [256]bool
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	for c := 'a'; c <= 'f'; c++ {
		t[c] = true
	}
	for c := 'A'; c <= 'F'; c++ {
		t[c] = true
	}
	return t
}()

var validEscape = func() [256]bool {
	var t [256]bool
	t['n'], t['t'], t['r'], t['\\'], t['"'], t['0'], t['x'] = true, true, true, true, true, true, true
	return t
}()

// Lexer scans one source buffer. The buffer must outlive the produced
// token list; tokens reference it by offset.
type Lexer struct {
	moduleName string
	src        []byte
	pos        uint32
	length     uint32

	tokens     *token.List
	lineStarts []uint32

	// compoundPending is set after emitting the first half of a split
	// << or >> pair; the immediately following angle token carries
	// FlagCompoundEnd.
	compoundPending bool
}

// New creates a lexer for src. moduleName is used only for diagnostics
// downstream and may be a path.
func New(moduleName string, src []byte) *Lexer {
	l := &Lexer{
		moduleName: moduleName,
		src:        src,
		length:     uint32(len(src)),
		tokens:     token.NewList(len(src)),
		lineStarts: make([]uint32, 0, len(src)/40+1),
	}
	l.lineStarts = append(l.lineStarts, 0)
	return l
}

// ModuleName returns the diagnostic module name the lexer was created with.
func (l *Lexer) ModuleName() string {
	return l.moduleName
}

// Tokenize consumes the whole source and returns the token list. The
// list always ends with exactly one EOF token.
func (l *Lexer) Tokenize() *token.List {
	for {
		t := l.nextToken()
		l.tokens.Push(t)
		if t.Kind == token.EOF {
			return l.tokens
		}
		l.pos += uint32(t.Len)
	}
}

// LineStarts returns the byte offsets of each line start. Entry 0 is
// always 0; the parser consumes this read-only.
func (l *Lexer) LineStarts() []uint32 {
	return l.lineStarts
}

// Little-endian word constants for the whitespace and digit fast paths.
const (
	wordSpaces uint64 = 0x2020202020202020
	wordTabs   uint64 = 0x0909090909090909
	wordLF     uint64 = 0x0A0A0A0A0A0A0A0A
	wordCR     uint64 = 0x0D0D0D0D0D0D0D0D
	highBits   uint64 = 0x8080808080808080
	wordZeros  uint64 = 0x3030303030303030
	wordNines  uint64 = 0x4646464646464646
)

// skipWhitespaceComment advances past whitespace and comments, recording
// line starts. The returned flags mark a block comment left open at EOF;
// they attach to the token emitted right after the skip.
func (l *Lexer) skipWhitespaceComment() token.Flags {
	var flags token.Flags
	// Fast path: whole 8-byte words of a single whitespace byte value.
	// Exact comparisons keep this equivalent to the byte-serial tail.
	for l.pos+8 <= l.length {
		chunk := binary.LittleEndian.Uint64(l.src[l.pos:])
		allLF := chunk == wordLF
		if chunk == wordSpaces || chunk == wordTabs || allLF || chunk == wordCR {
			if allLF {
				for i := uint32(1); i <= 8; i++ {
					l.lineStarts = append(l.lineStarts, l.pos+i)
				}
			}
			l.pos += 8
			continue
		}
		break
	}

	// Slow path: byte at a time, handling // and /* */ comments.
	for l.pos < l.length {
		c := l.src[l.pos]
		if c == '\n' {
			l.lineStarts = append(l.lineStarts, l.pos+1)
			l.pos++
			continue
		}
		if charClass[c] == classWhitespace {
			l.pos++
			continue
		}
		if c == '/' && l.pos+1 < l.length {
			switch l.src[l.pos+1] {
			case '/':
				l.pos += 2
				for l.pos < l.length && l.src[l.pos] != '\n' {
					l.pos++
				}
				continue
			case '*':
				l.pos += 2
				terminated := false
				for l.pos < l.length {
					if l.src[l.pos] == '\n' {
						l.lineStarts = append(l.lineStarts, l.pos+1)
					}
					if l.src[l.pos] == '*' && l.pos+1 < l.length && l.src[l.pos+1] == '/' {
						l.pos += 2
						terminated = true
						break
					}
					l.pos++
				}
				if !terminated {
					flags |= token.FlagUnterminatedBlockComment
				}
				continue
			}
		}
		return flags
	}
	return flags
}

// nextToken scans the token at the current position without consuming
// it; Tokenize advances by the emitted length.
func (l *Lexer) nextToken() token.Token {
	carried := l.skipWhitespaceComment()

	if l.pos >= l.length {
		return token.Token{Start: l.pos, Len: 0, Kind: token.EOF, Flags: carried}
	}

	var t token.Token
	c := l.src[l.pos]
	switch charClass[c] {
	case classIdent:
		t = l.lexIdentifier()
	case classDigit:
		t = l.lexNumber()
	case classQuote:
		t = l.lexString()
	default:
		if c >= 0x80 {
			t = l.lexUnknownRun()
		} else {
			t = l.lexOperator()
		}
	}
	t.Flags |= carried
	return t
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

// isTerminatorByte reports bytes that end an identifier cleanly: ASCII
// whitespace or punctuation. Anything else mid-run is a flagged byte.
func isTerminatorByte(c byte) bool {
	if charClass[c] == classWhitespace {
		return true
	}
	return c >= '!' && c <= '~' && !isIdentByte(c)
}

// lexIdentifier scans an identifier, keyword, or annotation. The class
// table only routes letter/underscore/'@' starts here.
func (l *Lexer) lexIdentifier() token.Token {
	start := l.pos
	cur := l.pos
	var flags token.Flags

	atPrefixed := l.src[cur] == '@'
	if atPrefixed {
		cur++
	}

	for cur < l.length {
		c := l.src[cur]
		if isIdentByte(c) {
			cur++
			continue
		}
		if !isTerminatorByte(c) {
			flags |= token.FlagInvalidIdentifierChar
		}
		break
	}

	length := cur - start
	text := string(l.src[start:cur])

	if kind, ok := token.Lookup(text); ok {
		return token.Token{Start: start, Len: uint16(length), Kind: kind, Flags: flags}
	}

	if atPrefixed {
		// A bare '@' has no identifier after it.
		if length == 1 {
			flags |= token.FlagInvalidIdentifierStart
			return token.Token{Start: start, Len: 1, Kind: token.Unknown, Flags: flags}
		}
		return token.Token{Start: start, Len: uint16(length), Kind: token.Annotation, Flags: flags}
	}

	return token.Token{Start: start, Len: uint16(length), Kind: token.Identifier, Flags: flags}
}

// lexUnknownRun consumes a run of identifier-like bytes that cannot
// start an identifier (non-ASCII starts) as one Unknown token.
func (l *Lexer) lexUnknownRun() token.Token {
	start := l.pos
	cur := l.pos
	for cur < l.length {
		c := l.src[cur]
		if c >= 0x80 || isIdentByte(c) {
			cur++
			continue
		}
		break
	}
	return token.Token{Start: start, Len: uint16(cur - start), Kind: token.Unknown}
}

// lexNumber scans hex, binary, and decimal literals, including fraction
// and exponent forms. 0.123 is a literal; .123 is not. Malformed digits
// set flags; a trailing identifier run turns the whole token Unknown.
func (l *Lexer) lexNumber() token.Token {
	start := l.pos
	cur := l.pos
	end := l.length
	var flags token.Flags

	isHex, isBin := false, false
	if l.src[start] == '0' && start+1 < end {
		switch l.src[start+1] | 0x20 {
		case 'x':
			isHex = true
		case 'b':
			isBin = true
		}
	}

	if isHex || isBin {
		cur += 2
		digits := 0
		for cur < end {
			c := l.src[cur]
			if isHex && hexDigit[c] || isBin && (c == '0' || c == '1') {
				cur++
				digits++
				continue
			}
			break
		}
		if digits == 0 {
			flags |= token.FlagInvalidDigit
		}
	} else {
		// 8-byte digit chunks before the byte-serial tail.
		for cur+8 <= end {
			chunk := binary.LittleEndian.Uint64(l.src[cur:])
			if ((chunk-wordZeros)|(chunk+wordNines))&highBits != 0 {
				break
			}
			cur += 8
		}

		decimals := 0
		for cur < end {
			c := l.src[cur]
			if isDigitByte(c) {
				cur++
				continue
			}
			if c == '.' {
				// Two dots form a range operator, not a fraction.
				if cur+1 < end && l.src[cur+1] == '.' {
					break
				}
				decimals++
				if decimals > 1 {
					flags |= token.FlagMultipleDecimalPoints
				}
				cur++
				continue
			}
			break
		}

		if cur < end && l.src[cur]|0x20 == 'e' {
			cur++
			if cur < end && (l.src[cur] == '+' || l.src[cur] == '-') {
				cur++
			}
			if cur < end && isDigitByte(l.src[cur]) {
				for cur < end && isDigitByte(l.src[cur]) {
					cur++
				}
			} else {
				flags |= token.FlagInvalidExponent
			}
		}
	}

	// A trailing identifier run (12abc) makes the whole run Unknown.
	if cur < end && isIdentByte(l.src[cur]) && !isDigitByte(l.src[cur]) {
		for cur < end && isIdentByte(l.src[cur]) {
			cur++
		}
		return token.Token{Start: start, Len: uint16(cur - start), Kind: token.Unknown, Flags: flags}
	}

	return token.Token{Start: start, Len: uint16(cur - start), Kind: token.NumLiteral, Flags: flags}
}

// lexString scans a double-quoted string literal. Recognized escapes:
// \n \t \r \\ \" \0 \x with exactly three hex digits after \x. The
// token is emitted even when unterminated; flags record what was wrong.
func (l *Lexer) lexString() token.Token {
	start := l.pos
	cur := l.pos + 1
	end := l.length
	var flags token.Flags
	terminated := false

	for cur < end {
		c := l.src[cur]
		if c == '"' {
			cur++
			terminated = true
			break
		}
		if c == '\n' {
			l.lineStarts = append(l.lineStarts, cur+1)
		}
		if c == '\\' && cur+1 < end {
			esc := l.src[cur+1]
			if !validEscape[esc] {
				flags |= token.FlagInvalidEscape
				cur += 2
				continue
			}
			if esc == 'x' {
				if cur+4 < end && hexDigit[l.src[cur+2]] && hexDigit[l.src[cur+3]] && hexDigit[l.src[cur+4]] {
					cur += 5
				} else {
					flags |= token.FlagInvalidEscape
					cur += 2
				}
				continue
			}
			cur += 2
			continue
		}
		cur++
	}

	if !terminated {
		flags |= token.FlagUnterminatedString
	}
	return token.Token{Start: start, Len: uint16(cur - start), Kind: token.StrLiteral, Flags: flags}
}

// lexOperator scans punctuation with longest match, except that << and
// >> come out as two flagged single-angle tokens so the parser can close
// nested generics. <<= and >>= stay whole; ... wins over .. over '.'.
func (l *Lexer) lexOperator() token.Token {
	start := l.pos
	c := l.src[start]
	var next, third byte
	if start+1 < l.length {
		next = l.src[start+1]
	}
	if start+2 < l.length {
		third = l.src[start+2]
	}

	two := func(kind token.Kind) token.Token {
		return token.Token{Start: start, Len: 2, Kind: kind}
	}
	three := func(kind token.Kind) token.Token {
		return token.Token{Start: start, Len: 3, Kind: kind}
	}

	switch c {
	case '>':
		if l.compoundPending {
			l.compoundPending = false
			return token.Token{Start: start, Len: 1, Kind: token.Greater, Flags: token.FlagCompoundEnd}
		}
		if next == '>' && third == '=' {
			return three(token.RightShiftEq)
		}
		if next == '>' {
			l.compoundPending = true
			return token.Token{Start: start, Len: 1, Kind: token.Greater, Flags: token.FlagCompoundStart}
		}
		if next == '=' {
			return two(token.Ge)
		}
	case '<':
		if l.compoundPending {
			l.compoundPending = false
			return token.Token{Start: start, Len: 1, Kind: token.Less, Flags: token.FlagCompoundEnd}
		}
		if next == '<' && third == '=' {
			return three(token.LeftShiftEq)
		}
		if next == '<' {
			l.compoundPending = true
			return token.Token{Start: start, Len: 1, Kind: token.Less, Flags: token.FlagCompoundStart}
		}
		if next == '=' {
			return two(token.Le)
		}
	case '.':
		if next == '.' && third == '.' {
			return three(token.Spread)
		}
		if next == '.' {
			return two(token.Range)
		}
	case '&':
		if next == '&' {
			return two(token.LogicalAnd)
		}
		if next == '=' {
			return two(token.AndEq)
		}
	case '|':
		if next == '|' {
			return two(token.LogicalOr)
		}
		if next == '=' {
			return two(token.OrEq)
		}
	case '=':
		if next == '=' {
			return two(token.Eq)
		}
	case ':':
		if next == ':' {
			return two(token.Scope)
		}
	case '!':
		if next == '=' {
			return two(token.Ne)
		}
	case '-':
		if next == '>' {
			return two(token.Arrow)
		}
		if next == '=' {
			return two(token.MinusEq)
		}
	case '+':
		if next == '=' {
			return two(token.PlusEq)
		}
	case '*':
		if next == '=' {
			return two(token.StarEq)
		}
	case '/':
		if next == '=' {
			return two(token.SlashEq)
		}
	case '%':
		if next == '=' {
			return two(token.PercentEq)
		}
	case '^':
		if next == '=' {
			return two(token.XorEq)
		}
	}

	return token.Token{Start: start, Len: 1, Kind: singleCharKinds[c]}
}
