package naclfile

import "github.com/vk/naclworkspace/internal/element"

// ChangeAction discriminates what happened to a top-level element between
// an old and a new parse.
type ChangeAction int

const (
	Add ChangeAction = iota
	Modify
	Remove
)

func (a ChangeAction) String() string {
	switch a {
	case Add:
		return "add"
	case Modify:
		return "modify"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Change describes one top-level element's transition across a setNaclFiles
// or removeNaclFiles call. Before/After are nil as appropriate to Action.
type Change struct {
	FullName string
	Action   ChangeAction
	Before   element.TopLevelElement
	After    element.TopLevelElement
}
