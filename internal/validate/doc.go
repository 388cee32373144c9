// Package validate implements the merged-graph validator (C5): a set of
// independent, per-element rules that each emit zero or more typed *Error
// values. Validation is elementwise and read-only: it accepts a subset of
// elements to check plus the full merged element universe those elements'
// references may resolve against, and never mutates either.
package validate
