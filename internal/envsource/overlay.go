package envsource

import (
	"github.com/vk/naclworkspace/internal/element"
	"github.com/vk/naclworkspace/internal/naclfile"
)

// ApplyHiddenOverlay combines the NaCl-visible element set with previously
// fetched state, producing the element set a caller actually sees:
//   - an element present only in state and marked hidden is contributed
//     whole into the result (it never had a NaCl-text counterpart to begin
//     with);
//   - an element present in both has the state copy's hidden annotations
//     copied onto the NaCl copy, since NaCl text never carries them.
//
// visible is not mutated; the returned map may share elements with it.
func ApplyHiddenOverlay(visible map[string]element.TopLevelElement, state *StateStore) map[string]element.TopLevelElement {
	merged := make(map[string]element.TopLevelElement, len(visible))
	for name, elem := range visible {
		merged[name] = elem
	}

	for _, stateElem := range state.List() {
		name := stateElem.ElemID().GetFullName()
		naclElem, inVisible := merged[name]
		if !inVisible {
			if isHidden(stateElem) {
				merged[name] = stateElem
			}
			continue
		}
		merged[name] = copyHiddenAnnotations(naclElem, stateElem)
	}
	return merged
}

func isHidden(elem element.TopLevelElement) bool {
	inst, ok := elem.(*element.InstanceElement)
	return ok && inst.IsHidden()
}

// copyHiddenAnnotations copies every annotation the state element carries
// that the NaCl element lacks, since a hidden annotation's value is by
// definition never written out to NaCl text. Only instances carry the
// hidden-value annotation; any other element kind is returned unchanged.
func copyHiddenAnnotations(naclElem, stateElem element.TopLevelElement) element.TopLevelElement {
	naclInst, ok := naclElem.(*element.InstanceElement)
	if !ok {
		return naclElem
	}
	stateInst, ok := stateElem.(*element.InstanceElement)
	if !ok {
		return naclElem
	}

	clone := *naclInst
	clone.AnnotationValues = copyValues(naclInst.Annotations())
	clone.AnnotationTypeMap = copyTypes(naclInst.AnnotationTypes())

	for key, val := range stateInst.Annotations() {
		if _, exists := clone.AnnotationValues[key]; !exists {
			clone.AnnotationValues[key] = val
		}
	}
	for key, typ := range stateInst.AnnotationTypes() {
		if _, exists := clone.AnnotationTypeMap[key]; !exists {
			clone.AnnotationTypeMap[key] = typ
		}
	}
	return &clone
}

func copyValues(in map[string]element.Value) map[string]element.Value {
	out := make(map[string]element.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTypes(in map[string]element.Type) map[string]element.Type {
	out := make(map[string]element.Type, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// HandleHiddenChanges drops hidden-only changes from a change stream about
// to be routed back to NaCl files: hidden values must never surface in
// NaCl text, so a change whose element is marked hidden is suppressed
// here rather than written out.
func HandleHiddenChanges(changes []naclfile.Change) []naclfile.Change {
	out := make([]naclfile.Change, 0, len(changes))
	for _, c := range changes {
		elem := c.After
		if elem == nil {
			elem = c.Before
		}
		if elem != nil && isHidden(elem) {
			continue
		}
		out = append(out, c)
	}
	return out
}
