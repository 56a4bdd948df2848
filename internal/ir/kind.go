package ir

// Kind tags the family an Instruction belongs to. The full toolchain
// recognizes roughly 150 concrete opcodes; this port keeps the
// representative cross-section the core analyses and transforms in scope
// (§1) actually exercise: memory, control, call-site, arithmetic, compare,
// move, phi and frame instructions.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Memory
	KindLoad
	KindStore
	KindXchg
	KindFrame // frame_addr-style stack-slot address

	// Moves and constants
	KindMov
	KindArg

	// Arithmetic / compare
	KindAdd
	KindSub
	KindMul
	KindAnd
	KindOr
	KindXor
	KindShl
	KindShr
	KindCmp
	KindSelect

	// Phi
	KindPhi

	// Control
	KindJump
	KindJumpCond
	KindSwitch
	KindReturn
	KindTrap
	KindRaise

	// Call-site family
	KindCall
	KindTailCall
	KindInvoke

	// Exception support
	KindLandingPad
)

// IsTerminator reports whether instructions of this kind end a block.
func (k Kind) IsTerminator() bool {
	switch k {
	case KindJump, KindJumpCond, KindSwitch, KindReturn, KindTrap, KindRaise,
		KindTailCall, KindInvoke:
		return true
	case KindCall:
		// Every call counts as a terminator, whether or not it carries an
		// explicit continuation edge (Target).
		return true
	default:
		return false
	}
}

// IsCallSite reports whether the instruction is a member of the call-site
// family (§3): call, tail-call, invoke.
func (k Kind) IsCallSite() bool {
	switch k {
	case KindCall, KindTailCall, KindInvoke:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindStore:
		return "store"
	case KindXchg:
		return "xchg"
	case KindFrame:
		return "frame"
	case KindMov:
		return "mov"
	case KindArg:
		return "arg"
	case KindAdd:
		return "add"
	case KindSub:
		return "sub"
	case KindMul:
		return "mul"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindXor:
		return "xor"
	case KindShl:
		return "shl"
	case KindShr:
		return "shr"
	case KindCmp:
		return "cmp"
	case KindSelect:
		return "select"
	case KindPhi:
		return "phi"
	case KindJump:
		return "jmp"
	case KindJumpCond:
		return "jcc"
	case KindSwitch:
		return "switch"
	case KindReturn:
		return "ret"
	case KindTrap:
		return "trap"
	case KindRaise:
		return "raise"
	case KindCall:
		return "call"
	case KindTailCall:
		return "tcall"
	case KindInvoke:
		return "invoke"
	case KindLandingPad:
		return "landing_pad"
	default:
		return "invalid"
	}
}
