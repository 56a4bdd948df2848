// Package drv implements the Linker CLI driver boundary (§6): flag
// parsing for the accepted flag set, environment-variable resolution
// (LLIR_OPT_*, LLIR_LD_SAVE), output-format inference from the -o
// extension, and the subprocess boundary to the back-end/linker.
//
// Grounded on cmd/kanso-cli/main.go's role as the thin driver layer that
// sits in front of the library (parser.ParseSource there, the pass
// pipeline here), generalized from "one file in, one AST out" to the
// Linker CLI's richer object/archive/flag surface §6 describes.
package drv

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"llir-opt/internal/diag"
)

// OutputFormat is the object kind the driver emits, inferred from -o's
// extension (§6: "Output format is inferred from extension").
type OutputFormat int

const (
	FormatEXE OutputFormat = iota
	FormatOBJ
	FormatLLIRText
	FormatBitcode
	FormatASM
)

func (f OutputFormat) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatLLIRText:
		return "llir"
	case FormatBitcode:
		return "llbc"
	case FormatASM:
		return "asm"
	default:
		return "exe"
	}
}

// InferOutputFormat maps an -o path's extension to an OutputFormat,
// defaulting to an executable when the extension is unrecognized (§6).
func InferOutputFormat(outPath string) OutputFormat {
	switch {
	case strings.HasSuffix(outPath, ".o"):
		return FormatOBJ
	case strings.HasSuffix(outPath, ".llir"):
		return FormatLLIRText
	case strings.HasSuffix(outPath, ".llbc"):
		return FormatBitcode
	case strings.HasSuffix(outPath, ".s"), strings.HasSuffix(outPath, ".S"):
		return FormatASM
	default:
		return FormatEXE
	}
}

// GroupSpan is one --start-group/--end-group bracket over a contiguous
// run of Inputs, recorded by index so archive members inside it are
// re-scanned for unresolved symbols (a linker concern internal/drv
// itself does not resolve, only records for the caller).
type GroupSpan struct {
	Start, End int // indices into Options.Inputs, End exclusive
}

// Options is the parsed form of the Linker CLI's flag set (§6).
type Options struct {
	Inputs []string // object files and archives, in command-line order
	Groups []GroupSpan

	Output string // -o
	Opt    string // -O{0..4|s}

	Shared   bool // -shared
	Static   bool // -static
	Bstatic  *bool
	NoStdlib bool // -nostdlib
	EhFrame  bool // --eh-frame-hdr
	ExportDynamic bool // --export-dynamic
	Relocatable   bool // -r

	WholeArchive bool // set once any -l appears between --whole-archive and --no-whole-archive; one flag for the whole command line, not per library, and inputs do not set it

	LibPaths []string // -L, in order
	Libs     []string // -l, in order
	Entry    string   // -e
	Undefined []string // -u, may repeat

	CPU string // -mcpu
	ABI string // -mabi
	FS  string // -mfs

	// Pipeline is -pipeline's value: a path to a YAML pass-pipeline
	// manifest (cmd/llir-opt's DOMAIN STACK enrichment, not itself part
	// of §6's flag set, but parsed alongside it so the driver has one
	// flag-parsing pass).
	Pipeline string

	// ExtraFlags carries LLIR_OPT_FLAGS's space-separated tokens,
	// reparsed as additional leading arguments (§6 env var table).
	ExtraFlags []string
	SaveDir    string // LLIR_LD_SAVE
}

// ParseArgs parses the Linker CLI's argv (not including argv[0]) into an
// Options. Unknown flags are rejected and an unterminated --start-group
// is a fatal error, both per §6.
func ParseArgs(args []string) (*Options, error) {
	opts := &Options{}
	var groupStack []int
	var wholeArchive bool

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", missingValue(flag)
		}
		return args[i], nil
	}

	for ; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-o":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			opts.Output = v
		case a == "-pipeline":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			opts.Pipeline = v
		case a == "-shared":
			opts.Shared = true
		case a == "-static":
			opts.Static = true
		case a == "-Bstatic":
			v := true
			opts.Bstatic = &v
		case a == "-Bdynamic":
			v := false
			opts.Bstatic = &v
		case a == "--whole-archive":
			wholeArchive = true
		case a == "--no-whole-archive":
			wholeArchive = false
		case a == "--start-group":
			groupStack = append(groupStack, len(opts.Inputs))
		case a == "--end-group":
			if len(groupStack) == 0 {
				return nil, unmatchedEndGroup()
			}
			start := groupStack[len(groupStack)-1]
			groupStack = groupStack[:len(groupStack)-1]
			opts.Groups = append(opts.Groups, GroupSpan{Start: start, End: len(opts.Inputs)})
		case a == "--eh-frame-hdr":
			opts.EhFrame = true
		case a == "-nostdlib":
			opts.NoStdlib = true
		case a == "--export-dynamic":
			opts.ExportDynamic = true
		case a == "-r":
			opts.Relocatable = true
		case strings.HasPrefix(a, "-O"):
			opts.Opt = strings.TrimPrefix(a, "-O")
			if !validOptLevel(opts.Opt) {
				return nil, invalidFlagValue(a)
			}
		case strings.HasPrefix(a, "-L"):
			opts.LibPaths = append(opts.LibPaths, valueOf(a, "-L"))
		case strings.HasPrefix(a, "-l"):
			opts.Libs = append(opts.Libs, valueOf(a, "-l"))
			opts.WholeArchive = opts.WholeArchive || wholeArchive
		case strings.HasPrefix(a, "-e"):
			opts.Entry = valueOf(a, "-e")
		case strings.HasPrefix(a, "-u"):
			opts.Undefined = append(opts.Undefined, valueOf(a, "-u"))
		case strings.HasPrefix(a, "-mcpu="):
			opts.CPU = strings.TrimPrefix(a, "-mcpu=")
		case strings.HasPrefix(a, "-mabi="):
			opts.ABI = strings.TrimPrefix(a, "-mabi=")
		case strings.HasPrefix(a, "-mfs="):
			opts.FS = strings.TrimPrefix(a, "-mfs=")
		case strings.HasPrefix(a, "-"):
			return nil, unknownFlag(a)
		default:
			opts.Inputs = append(opts.Inputs, a)
		}
	}

	if len(groupStack) != 0 {
		return nil, unterminatedGroup()
	}
	return opts, nil
}

// PipelineFile reports the -pipeline manifest path, if one was given.
func (o *Options) PipelineFile() (string, bool) {
	return o.Pipeline, o.Pipeline != ""
}

func valueOf(arg, flag string) string {
	if v := strings.TrimPrefix(arg, flag); v != arg {
		return v
	}
	return ""
}

func validOptLevel(level string) bool {
	if level == "s" {
		return true
	}
	n, err := strconv.Atoi(level)
	return err == nil && n >= 0 && n <= 4
}

func missingValue(flag string) error {
	return diag.New(diag.Syntactic, diag.ErrUnexpectedToken, fmt.Sprintf("flag %q requires a value", flag), diag.Position{})
}

func invalidFlagValue(arg string) error {
	return diag.New(diag.Syntactic, diag.ErrUnexpectedToken, fmt.Sprintf("invalid value for flag %q", arg), diag.Position{})
}

func unknownFlag(arg string) error {
	return diag.New(diag.Syntactic, diag.ErrUnexpectedToken, fmt.Sprintf("unknown flag %q", arg), diag.Position{})
}

// unmatchedEndGroup is --end-group with no open --start-group; distinct
// from unterminatedGroup (the reverse: --start-group with no closing
// --end-group), both fatal per §6/§7.
func unmatchedEndGroup() error {
	return diag.New(diag.Linking, diag.ErrNestedStartGroup, "--end-group with no matching --start-group", diag.Position{})
}

func unterminatedGroup() error {
	return diag.New(diag.Linking, diag.ErrUnterminatedGroup, "--start-group without a matching --end-group", diag.Position{})
}

// Env holds the driver's resolved environment-variable inputs (§6).
type Env struct {
	OptLevel string // LLIR_OPT_O
	CPU      string // LLIR_OPT_CPU
	ABI      string // LLIR_OPT_ABI
	FS       string // LLIR_OPT_FS
	Flags    string // LLIR_OPT_FLAGS, space-separated
	SaveDir  string // LLIR_LD_SAVE
}

// ReadEnv reads the driver's environment variables as named in §6.
func ReadEnv() Env {
	return Env{
		OptLevel: os.Getenv("LLIR_OPT_O"),
		CPU:      os.Getenv("LLIR_OPT_CPU"),
		ABI:      os.Getenv("LLIR_OPT_ABI"),
		FS:       os.Getenv("LLIR_OPT_FS"),
		Flags:    os.Getenv("LLIR_OPT_FLAGS"),
		SaveDir:  os.Getenv("LLIR_LD_SAVE"),
	}
}

// ApplyEnv fills in any Options field the command line left unset from
// env, and reparses env.Flags as additional leading flags -- so a flag
// given explicitly on the command line always wins over its env-var
// default, matching the usual CLI/env precedence.
func ApplyEnv(opts *Options, env Env) (*Options, error) {
	if env.Flags != "" {
		extra, err := ParseArgs(strings.Fields(env.Flags))
		if err != nil {
			return nil, err
		}
		opts = mergePreferringExisting(opts, extra)
	}
	if opts.Opt == "" {
		opts.Opt = env.OptLevel
	}
	if opts.CPU == "" {
		opts.CPU = env.CPU
	}
	if opts.ABI == "" {
		opts.ABI = env.ABI
	}
	if opts.FS == "" {
		opts.FS = env.FS
	}
	opts.SaveDir = env.SaveDir
	return opts, nil
}

// mergePreferringExisting folds extra's parsed flags into opts wherever
// opts left the corresponding field at its zero value, giving explicit
// command-line flags priority over LLIR_OPT_FLAGS's reparsed ones.
func mergePreferringExisting(opts, extra *Options) *Options {
	// extra's inputs are prepended, so opts' group spans move right by
	// their count to keep indexing the same inputs.
	groups := append([]GroupSpan(nil), extra.Groups...)
	for _, g := range opts.Groups {
		groups = append(groups, GroupSpan{Start: g.Start + len(extra.Inputs), End: g.End + len(extra.Inputs)})
	}
	opts.Groups = groups
	opts.Inputs = append(append([]string(nil), extra.Inputs...), opts.Inputs...)
	opts.LibPaths = append(append([]string(nil), extra.LibPaths...), opts.LibPaths...)
	opts.Libs = append(append([]string(nil), extra.Libs...), opts.Libs...)
	opts.Undefined = append(append([]string(nil), extra.Undefined...), opts.Undefined...)
	if opts.Output == "" {
		opts.Output = extra.Output
	}
	if opts.Opt == "" {
		opts.Opt = extra.Opt
	}
	if opts.Entry == "" {
		opts.Entry = extra.Entry
	}
	if opts.CPU == "" {
		opts.CPU = extra.CPU
	}
	if opts.ABI == "" {
		opts.ABI = extra.ABI
	}
	if opts.FS == "" {
		opts.FS = extra.FS
	}
	if opts.Pipeline == "" {
		opts.Pipeline = extra.Pipeline
	}
	opts.Shared = opts.Shared || extra.Shared
	opts.Static = opts.Static || extra.Static
	opts.NoStdlib = opts.NoStdlib || extra.NoStdlib
	opts.EhFrame = opts.EhFrame || extra.EhFrame
	opts.ExportDynamic = opts.ExportDynamic || extra.ExportDynamic
	opts.Relocatable = opts.Relocatable || extra.Relocatable
	opts.WholeArchive = opts.WholeArchive || extra.WholeArchive
	return opts
}
