package ldparse

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// File is one response file's worth of whitespace-separated tokens,
// each either a literal argument, a quoted argument, or a nested
// `@file` reference to expand further.
type File struct {
	Pos  lexer.Position
	Args []*Token `{ @@ }`
}

// Token is one argument in a response file.
type Token struct {
	Pos lexer.Position

	Include string `  @AtFile`
	Quoted  string `| @String`
	Bare    string `| @Bare`
}

// IsInclude reports whether this token names a further response file to
// expand (its leading `@` stripped).
func (t *Token) IsInclude() (name string, ok bool) {
	if t.Include == "" {
		return "", false
	}
	return t.Include[1:], true
}

// Value returns this token's literal argument text: the quoted string
// unescaped, or the bare token verbatim.
func (t *Token) Value() (string, error) {
	if t.Quoted != "" {
		s, err := strconv.Unquote(t.Quoted)
		if err != nil {
			return "", err
		}
		return s, nil
	}
	return t.Bare, nil
}

var parser = participle.MustBuild[File](
	participle.Lexer(responseLexer),
	participle.Elide("Whitespace", "Comment"),
)

// Parse parses a response file's contents, named name for diagnostics.
func Parse(name, contents string) (*File, error) {
	return parser.ParseString(name, contents)
}
