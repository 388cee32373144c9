package merge

import "github.com/vk/naclworkspace/internal/elemid"

// ErrorKind discriminates the three MergeError shapes the algorithm
// produces.
type ErrorKind int

const (
	// DuplicationError: fragments of the same full name disagree on kind
	// (type vs. instance vs. var), or are two incompatible non-object
	// types.
	DuplicationError ErrorKind = iota
	// DuplicateAnnotationError: two files give conflicting annotation
	// values on the same Type or Field.
	DuplicateAnnotationError
	// DuplicateInstanceKeyError: two files give conflicting primitive
	// values at the same path within an instance's (or variable's) value
	// tree.
	DuplicateInstanceKeyError
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicationError:
		return "DuplicationError"
	case DuplicateAnnotationError:
		return "DuplicateAnnotationError"
	case DuplicateInstanceKeyError:
		return "DuplicateInstanceKeyError"
	default:
		return "MergeError"
	}
}

// Error is one merge-time finding.
type Error struct {
	Kind    ErrorKind
	ElemID  elemid.ElemID
	Message string
}

func (e *Error) Error() string {
	return e.ElemID.GetFullName() + ": " + e.Message
}
