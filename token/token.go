// Package token defines the small, shared vocabulary of named entities that
// both the lexer and the parser need to agree on: architectural registers,
// calling conventions and condition codes. Keeping them here (instead of
// duplicating the string tables in both packages) mirrors how the teacher's
// token package centralizes keyword lookup for its scanner and parser.
package token

// Register names a named hardware or pseudo register recognized by the
// lexer when it encounters `$ident` (as opposed to `$123`, a VReg).
type Register string

const (
	RegSP          Register = "sp"
	RegFS          Register = "fs"
	RegRetAddr     Register = "ret_addr"
	RegFrameAddr   Register = "frame_addr"
	RegX86CR0      Register = "x86_cr0"
	RegX86CR2      Register = "x86_cr2"
	RegX86CR3      Register = "x86_cr3"
	RegX86CS       Register = "x86_cs"
	RegX86DS       Register = "x86_ds"
	RegX86SS       Register = "x86_ss"
	RegX86ES       Register = "x86_es"
	RegX86FS       Register = "x86_fs"
	RegX86GS       Register = "x86_gs"
	RegAArch64FPSR Register = "aarch64_fpsr"
	RegAArch64FPCR Register = "aarch64_fpcr"
	RegRISCVFCSR   Register = "riscv_fcsr"
	RegRISCVFRM    Register = "riscv_frm"
	RegRISCVFFlags Register = "riscv_fflags"
	RegPPCFPSCR    Register = "ppc_fpscr"
)

// registers is the full architectural register set enumerated in §6 of the
// spec, keyed by their lexical spelling after `$`.
var registers = map[string]Register{
	"sp":           RegSP,
	"fs":           RegFS,
	"ret_addr":     RegRetAddr,
	"frame_addr":   RegFrameAddr,
	"x86_cr0":      RegX86CR0,
	"x86_cr2":      RegX86CR2,
	"x86_cr3":      RegX86CR3,
	"x86_cs":       RegX86CS,
	"x86_ds":       RegX86DS,
	"x86_ss":       RegX86SS,
	"x86_es":       RegX86ES,
	"x86_fs":       RegX86FS,
	"x86_gs":       RegX86GS,
	"aarch64_fpsr": RegAArch64FPSR,
	"aarch64_fpcr": RegAArch64FPCR,
	"riscv_fcsr":   RegRISCVFCSR,
	"riscv_frm":    RegRISCVFRM,
	"riscv_fflags": RegRISCVFFlags,
	"ppc_fpscr":    RegPPCFPSCR,
}

// LookupRegister resolves the lexical spelling of a named register (without
// the leading `$`) to its Register constant.
func LookupRegister(name string) (Register, bool) {
	r, ok := registers[name]
	return r, ok
}

// CallingConv is the calling convention carried by a Function or call-site
// instruction (§3).
type CallingConv string

const (
	CallingConvC         CallingConv = "c"
	CallingConvFast      CallingConv = "fast"
	CallingConvCaml      CallingConv = "caml"
	CallingConvCamlAlloc CallingConv = "caml_alloc"
	CallingConvCamlGc    CallingConv = "caml_gc"
	CallingConvCamlRaise CallingConv = "caml_raise"
)

var callingConvs = map[string]CallingConv{
	"c":          CallingConvC,
	"fast":       CallingConvFast,
	"caml":       CallingConvCaml,
	"caml_alloc": CallingConvCamlAlloc,
	"caml_gc":    CallingConvCamlGc,
	"caml_raise": CallingConvCamlRaise,
}

// LookupCallingConv resolves a calling-convention token's spelling.
func LookupCallingConv(name string) (CallingConv, bool) {
	cc, ok := callingConvs[name]
	return cc, ok
}

// Cond is a comparison condition code, used both standalone (cmp) and as an
// opcode modifier (jcc, select).
type Cond string

const (
	CondEQ  Cond = "eq"
	CondNE  Cond = "ne"
	CondLT  Cond = "lt"
	CondLE  Cond = "le"
	CondGT  Cond = "gt"
	CondGE  Cond = "ge"
	CondO   Cond = "o"
	CondOEQ Cond = "oeq"
	CondONE Cond = "one"
	CondOLT Cond = "olt"
	CondOGT Cond = "ogt"
	CondOLE Cond = "ole"
	CondOGE Cond = "oge"
	CondUO  Cond = "uo"
	CondUEQ Cond = "ueq"
	CondUNE Cond = "une"
	CondULT Cond = "ult"
	CondUGT Cond = "ugt"
	CondULE Cond = "ule"
	CondUGE Cond = "uge"
)

var conds = map[string]Cond{
	"eq": CondEQ, "ne": CondNE, "lt": CondLT, "le": CondLE, "gt": CondGT, "ge": CondGE,
	"o": CondO, "oeq": CondOEQ, "one": CondONE, "olt": CondOLT, "ogt": CondOGT, "ole": CondOLE, "oge": CondOGE,
	"uo": CondUO, "ueq": CondUEQ, "une": CondUNE, "ult": CondULT, "ugt": CondUGT, "ule": CondULE, "uge": CondUGE,
}

// LookupCond resolves a condition-code token's spelling.
func LookupCond(name string) (Cond, bool) {
	c, ok := conds[name]
	return c, ok
}
