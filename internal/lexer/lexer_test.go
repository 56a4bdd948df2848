package lexer

import (
	"testing"

	"github.com/pkg/errors"
)

func tokens(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var out []Token
	for {
		out = append(out, l.Token())
		if l.AtEnd() {
			break
		}
		l.NextToken()
	}
	return out
}

func TestPunctuation(t *testing.T) {
	got := tokens(t, "[](),:+-")
	want := []Token{LBRACKET, RBRACKET, LPAREN, RPAREN, COMMA, COLON, PLUS, MINUS, END}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("token %d: got %s, want %s", i, got[i], w)
		}
	}
}

func TestRegisterAndVirtualRegister(t *testing.T) {
	l := New("$sp $12")
	if l.Token() != REG || l.Reg() != "sp" {
		t.Fatalf("expected REG sp, got %s %q", l.Token(), l.Reg())
	}
	l.NextToken()
	if l.Token() != VREG || l.VReg() != 12 {
		t.Fatalf("expected VREG 12, got %s %d", l.Token(), l.VReg())
	}
}

func TestIdentifierAndColon(t *testing.T) {
	l := New("entry.1:")
	if l.Token() != IDENT || l.String() != "entry.1" {
		t.Fatalf("expected IDENT entry.1, got %s %q", l.Token(), l.String())
	}
	l.NextToken()
	if l.Token() != COLON {
		t.Fatalf("expected COLON, got %s", l.Token())
	}
}

func TestDecimalHexBinaryOctalNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"42", 42},
		{"0", 0},
		{"0x2a", 42},
		{"0b101010", 42},
		{"0o52", 42},
	}
	for _, c := range cases {
		l := New(c.src)
		if l.Token() != NUMBER {
			t.Fatalf("%s: expected NUMBER, got %s", c.src, l.Token())
		}
		if l.Int() != c.want {
			t.Errorf("%s: got %d, want %d", c.src, l.Int(), c.want)
		}
	}
}

func TestNumberFollowedByIdentCharsLexesAsIdent(t *testing.T) {
	// Supplemented behavior (§9): a literal immediately followed by
	// identifier characters is one IDENT, not a numeric-constant error.
	l := New("2phi")
	if l.Token() != IDENT || l.String() != "2phi" {
		t.Fatalf("expected IDENT 2phi, got %s %q", l.Token(), l.String())
	}
}

func TestAnnotation(t *testing.T) {
	l := New("@probability")
	if l.Token() != ANNOT || l.String() != "probability" {
		t.Fatalf("expected ANNOT probability, got %s %q", l.Token(), l.String())
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\tb\n\"c\""`)
	if l.Token() != STRING {
		t.Fatalf("expected STRING, got %s", l.Token())
	}
	want := "a\tb\n\"c\""
	if l.String() != want {
		t.Errorf("got %q, want %q", l.String(), want)
	}
}

func TestStringOctalEscapeClampsLeniently(t *testing.T) {
	// REDESIGN FLAG: an octal escape that would overflow 256 stops
	// accumulating digits instead of erroring; the digit that would
	// overflow is left in the string as an ordinary character.
	l := New(`"\777"`)
	if l.Token() != STRING {
		t.Fatalf("expected STRING, got %s", l.Token())
	}
	if l.String() != "?7" {
		t.Fatalf("expected \\77 ('?') followed by a literal '7', got %q", l.String())
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	l := New("# a comment\n$sp")
	if l.Token() != NEWLINE {
		t.Fatalf("expected NEWLINE after comment, got %s", l.Token())
	}
	l.NextToken()
	if l.Token() != REG {
		t.Fatalf("expected REG after newline, got %s", l.Token())
	}
}

func TestParseSExpNestedList(t *testing.T) {
	l := New("(1, (2, \"x\"), y)")
	s := l.ParseSExp()
	if s.Kind != 2 { // SExpList
		t.Fatalf("expected a list, got kind %d", s.Kind)
	}
	if len(s.List) != 3 {
		t.Fatalf("expected 3 items, got %d", len(s.List))
	}
	if s.List[0].Num != 1 {
		t.Errorf("expected first item 1, got %v", s.List[0])
	}
}

func TestInvalidCharacterPanicsWithPosition(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic for an invalid character")
		}
		rerr, ok := r.(error)
		if !ok {
			t.Fatalf("expected the panic value to be an error, got %T", r)
		}
		if _, ok := errors.Cause(rerr).(*Error); !ok {
			t.Fatalf("expected the panic's cause to be *lexer.Error, got %T", errors.Cause(rerr))
		}
	}()
	New("%")
}
