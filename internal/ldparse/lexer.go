// Package ldparse reads linker response files: the `@file` arguments
// the Linker CLI driver (§6) accepts wherever an ordinary flag or input
// path is expected, each naming a file whose whitespace-separated
// contents are spliced into the argument list in place, recursively.
//
// Grounded on grammar/lexer.go's lexer.MustStateful rule-table style and
// grammar/parser.go's participle.Build[T] wiring, generalized from
// Kanso's module/contract grammar to this much smaller token set.
package ldparse

import "github.com/alecthomas/participle/v2/lexer"

var responseLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `#[^\n]*`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"AtFile", `@[^\s"#]+`, nil},
		{"Bare", `[^\s"#]+`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
