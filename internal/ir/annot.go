package ir

import "fmt"

// AnnotKind enumerates the known annotation kinds an AnnotSet can carry
// (§3). At most one instance of each kind may be present on a given
// instruction.
type AnnotKind uint8

const (
	AnnotProbability AnnotKind = iota
	AnnotCamlFrame
	AnnotCxxLSDA
)

// Probability is a branch-weight hint attached to control instructions
// (e.g. the allocation inliner's likely-taken fast path, §4.5 step 3).
type Probability struct {
	N, D int64
}

// CamlFrame records, for a CAML-convention call site, which results are
// live allocation roots and the per-result GC frame info.
type CamlFrame struct {
	Allocs []int
	Infos  [][]int
}

// CxxLSDA records a C++ landing pad's exception-handling layout.
type CxxLSDA struct {
	Cleanup    bool
	CatchAll   bool
	CatchTys   []string
	FilterTys  []string
}

// AnnotSet is a per-instruction set of annotations keyed by kind, with
// set-once semantics: inserting a kind that is already present fails
// (§3). The zero value is an empty set ready to use.
type AnnotSet struct {
	probability *Probability
	camlFrame   *CamlFrame
	cxxLSDA     *CxxLSDA
}

// Set installs an annotation, returning false if one of the same kind is
// already present.
func (a *AnnotSet) Set(kind AnnotKind, value any) bool {
	switch kind {
	case AnnotProbability:
		if a.probability != nil {
			return false
		}
		v := value.(Probability)
		a.probability = &v
	case AnnotCamlFrame:
		if a.camlFrame != nil {
			return false
		}
		v := value.(CamlFrame)
		a.camlFrame = &v
	case AnnotCxxLSDA:
		if a.cxxLSDA != nil {
			return false
		}
		v := value.(CxxLSDA)
		a.cxxLSDA = &v
	default:
		panic(fmt.Sprintf("ir: unknown annotation kind %d", kind))
	}
	return true
}

// Probability returns the branch-probability annotation, if present.
func (a *AnnotSet) Probability() (Probability, bool) {
	if a.probability == nil {
		return Probability{}, false
	}
	return *a.probability, true
}

// CamlFrame returns the CAML frame annotation, if present.
func (a *AnnotSet) CamlFrame() (CamlFrame, bool) {
	if a.camlFrame == nil {
		return CamlFrame{}, false
	}
	return *a.camlFrame, true
}

// CxxLSDA returns the C++ LSDA annotation, if present.
func (a *AnnotSet) CxxLSDA() (CxxLSDA, bool) {
	if a.cxxLSDA == nil {
		return CxxLSDA{}, false
	}
	return *a.cxxLSDA, true
}

// IsEmpty reports whether the set carries no annotations.
func (a *AnnotSet) IsEmpty() bool {
	return a.probability == nil && a.camlFrame == nil && a.cxxLSDA == nil
}

// Move transfers every annotation from src to a, clearing src. Used by the
// allocation inliner when it replaces a call with a new one and must carry
// the original AnnotSet over (§4.5, "AnnotSets are moved from the old call
// to the new GC call").
func (a *AnnotSet) Move(src *AnnotSet) {
	a.probability = src.probability
	a.camlFrame = src.camlFrame
	a.cxxLSDA = src.cxxLSDA
	src.probability = nil
	src.camlFrame = nil
	src.cxxLSDA = nil
}
