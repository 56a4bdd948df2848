package diag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llir-opt/internal/diag"
)

func TestKindOfMapsEachCodeRangeToItsKind(t *testing.T) {
	cases := []struct {
		code string
		want diag.Kind
	}{
		{diag.ErrUnrecognizedChar, diag.Lexical},
		{diag.ErrUnexpectedToken, diag.Syntactic},
		{diag.ErrUndefinedVreg, diag.Semantic},
		{diag.ErrUndefinedSymbol, diag.Linking},
		{diag.ErrFileNotFound, diag.IO},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, diag.KindOf(c.code), c.code)
	}
	assert.Equal(t, diag.Kind(""), diag.KindOf(""))
	assert.Equal(t, diag.Kind(""), diag.KindOf("Z9999"))
}

func TestDescriptionCoversEveryDefinedCode(t *testing.T) {
	codes := []string{
		diag.ErrUnrecognizedChar, diag.ErrUnterminatedStr, diag.ErrInvalidEscape, diag.ErrMalformedNumber,
		diag.ErrUnexpectedToken, diag.ErrMissingNewline, diag.ErrMalformedAnnotation, diag.ErrUnknownOpcode, diag.ErrMissingCallConv,
		diag.ErrDuplicateAnnotation, diag.ErrUndefinedVreg, diag.ErrVregRedefined, diag.ErrPhiShapeMismatch, diag.ErrOperandTypeMismatch,
		diag.ErrUndefinedSymbol, diag.ErrMultipleStrongDef, diag.ErrNestedStartGroup, diag.ErrMissingLibrary, diag.ErrUnterminatedGroup,
		diag.ErrFileNotFound, diag.ErrPermissionDenied, diag.ErrSubprocessExit,
	}
	for _, code := range codes {
		desc := diag.Description(code)
		assert.NotEqual(t, "Unknown diagnostic code", desc, code)
	}
	assert.Equal(t, "Unknown diagnostic code", diag.Description("bogus"))
}

func TestDiagnosticErrorIncludesCodeAndPosition(t *testing.T) {
	d := diag.New(diag.Syntactic, diag.ErrUnknownOpcode, "unknown opcode \"bogus\"", diag.Position{Line: 3, Column: 5})
	msg := d.Error()
	assert.Contains(t, msg, diag.ErrUnknownOpcode)
	assert.Contains(t, msg, "3:5")
	assert.Contains(t, msg, "unknown opcode")
}

func TestWarningIsWarningLevel(t *testing.T) {
	d := diag.Warning(diag.Semantic, diag.ErrDuplicateAnnotation, "duplicate @align", diag.Position{Line: 1, Column: 1})
	assert.Equal(t, diag.LevelWarning, d.Level)
}

func TestBuilderMethodsChainAndAccumulate(t *testing.T) {
	d := diag.New(diag.Semantic, diag.ErrUndefinedVreg, "undefined virtual register $7", diag.Position{Line: 2, Column: 1}).
		WithLength(2).
		WithNote("defined in a sibling block after this use").
		WithHelp("move the definition earlier in program order").
		WithSuggestion(diag.Suggestion{Message: "declare $7 before this block"})

	assert.Equal(t, 2, d.Length)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "move the definition earlier in program order", d.HelpText)
	require.Len(t, d.Suggestions, 1)
	assert.Equal(t, "declare $7 before this block", d.Suggestions[0].Message)
}

func TestReporterFormatIncludesLocationAndCaret(t *testing.T) {
	source := "mov.i64 $0, 1\ncall.caml_alloc.i64.i64 $5, $6, bogus, $0, $1, .L\nret\n"
	r := diag.NewReporter("alloc.llir", source)
	d := diag.New(diag.Semantic, diag.ErrUndefinedSymbol, "undefined callee \"bogus\"", diag.Position{Line: 2, Column: 31}).
		WithLength(5).
		WithHelp("declare bogus as an extern before calling it")

	out := r.Format(d)
	assert.Contains(t, out, "alloc.llir:2:31")
	assert.Contains(t, out, diag.ErrUndefinedSymbol)
	assert.Contains(t, out, "call.caml_alloc.i64.i64")
	assert.Contains(t, out, "help:")
	assert.True(t, strings.Contains(out, "^"))
}

func TestFromRowColMatchesPositionFields(t *testing.T) {
	p := diag.FromRowCol(4, 9)
	assert.Equal(t, diag.Position{Line: 4, Column: 9}, p)
}
