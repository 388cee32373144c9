// Package merge implements the merger (combining the parsed fragments from
// every file of an environment into one canonical element per full name)
// pure and deterministic, as required of C4 in the manner of this
// codebase's other combinator passes: no I/O, no mutation of its inputs,
// same fragment set in (modulo per-file ordering) implies same output.
package merge
