// Package workspace assembles the multi-environment sources, the merged
// element cache and the validation error set into the single object a
// caller (an editor, or cmd/workspacectl) drives: parse once at
// construction, then re-merge incrementally as changes come in.
package workspace
