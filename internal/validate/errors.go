package validate

import "github.com/vk/naclworkspace/internal/elemid"

// ErrorKind discriminates the validator's five rules.
type ErrorKind int

const (
	TypeConformance ErrorKind = iota
	UnresolvedReference
	CircularReference
	IllegalValue
	MissingRequired
)

func (k ErrorKind) String() string {
	switch k {
	case TypeConformance:
		return "TypeConformance"
	case UnresolvedReference:
		return "UnresolvedReference"
	case CircularReference:
		return "CircularReference"
	case IllegalValue:
		return "IllegalValue"
	case MissingRequired:
		return "MissingRequired"
	default:
		return "Unknown"
	}
}

// Error is one validation failure, addressed by the ElemID of the offending
// value or field — the element holding the problem, not a reference's
// target. Target is set in addition to ElemID for UnresolvedReference and
// CircularReference, naming the (possibly undeclared, possibly removed)
// element the reference points at.
type Error struct {
	Kind    ErrorKind
	ElemID  elemid.ElemID
	Target  elemid.ElemID
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + " at " + e.ElemID.String() + ": " + e.Message
}
