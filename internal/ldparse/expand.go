package ldparse

import (
	"fmt"
	"os"
	"path/filepath"

	"llir-opt/internal/diag"
)

// Expand reads path, parses it as a response file, and returns its
// tokens flattened into a plain argument list -- recursively expanding
// any further `@file` tokens it contains, resolved relative to the
// including file's directory (the usual linker response-file
// convention). A file that (directly or transitively) includes itself
// is a fatal error rather than an infinite expansion.
func Expand(path string) ([]string, error) {
	return expand(path, map[string]bool{})
}

// ExpandArgs runs Expand over any argument beginning with '@' in args,
// splicing its expansion in place; arguments that don't start with '@'
// pass through unchanged. This is what the Linker CLI driver calls on
// its raw argv before handing it to drv.ParseArgs (§6: "@file arguments").
func ExpandArgs(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		if len(a) > 0 && a[0] == '@' {
			expanded, err := Expand(a[1:])
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func expand(path string, seen map[string]bool) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioErr(fmt.Sprintf("resolving %s: %v", path, err))
	}
	if seen[abs] {
		return nil, diag.New(diag.Linking, diag.ErrUndefinedSymbol, fmt.Sprintf("response file %s includes itself", path), diag.Position{}).
			WithNote("response-file inclusion must not cycle")
	}
	seen[abs] = true
	defer delete(seen, abs)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, ioErr(fmt.Sprintf("reading response file %s: %v", path, err))
	}

	f, err := Parse(path, string(contents))
	if err != nil {
		return nil, diag.New(diag.Syntactic, diag.ErrUnexpectedToken, fmt.Sprintf("%s: %v", path, err), diag.Position{})
	}

	dir := filepath.Dir(path)
	var out []string
	for _, tok := range f.Args {
		if name, ok := tok.IsInclude(); ok {
			nested := name
			if !filepath.IsAbs(nested) {
				nested = filepath.Join(dir, nested)
			}
			args, err := expand(nested, seen)
			if err != nil {
				return nil, err
			}
			out = append(out, args...)
			continue
		}
		v, err := tok.Value()
		if err != nil {
			return nil, diag.New(diag.Syntactic, diag.ErrInvalidEscape, fmt.Sprintf("%s: %v", path, err), diag.Position{})
		}
		out = append(out, v)
	}
	return out, nil
}

func ioErr(msg string) error {
	return diag.New(diag.IO, diag.ErrFileNotFound, msg, diag.Position{})
}
