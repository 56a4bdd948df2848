package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// SExpKind discriminates the three node shapes S-expression annotations are
// built from (core/adt/sexp.h/.cpp): numbers, strings and nested lists.
type SExpKind uint8

const (
	SExpNumber SExpKind = iota
	SExpString
	SExpList
)

// SExp is an immutable S-expression tree, as produced by the lexer's
// reentrant ParseSExp routine (§4.1) and consumed by annotation decoders.
type SExp struct {
	Kind SExpKind
	Num  int64
	Str  string
	List []SExp
}

func NewSExpNumber(v int64) SExp  { return SExp{Kind: SExpNumber, Num: v} }
func NewSExpString(v string) SExp { return SExp{Kind: SExpString, Str: v} }
func NewSExpList(items ...SExp) SExp {
	return SExp{Kind: SExpList, List: items}
}

// AsNumber returns s's numeric value, if s is a SExpNumber.
func (s SExp) AsNumber() (int64, bool) {
	if s.Kind != SExpNumber {
		return 0, false
	}
	return s.Num, true
}

// AsString returns s's string value, if s is a SExpString.
func (s SExp) AsString() (string, bool) {
	if s.Kind != SExpString {
		return "", false
	}
	return s.Str, true
}

// AsList returns s's elements, if s is a SExpList.
func (s SExp) AsList() ([]SExp, bool) {
	if s.Kind != SExpList {
		return nil, false
	}
	return s.List, true
}

func (s SExp) String() string {
	switch s.Kind {
	case SExpNumber:
		return strconv.FormatInt(s.Num, 10)
	case SExpString:
		return strconv.Quote(s.Str)
	case SExpList:
		parts := make([]string, len(s.List))
		for i, item := range s.List {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("<invalid sexp kind %d>", s.Kind)
	}
}
