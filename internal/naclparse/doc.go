// Package naclparse is the NaCl frontend: a hand-written lexer and
// recursive-descent parser (in the manner of this codebase's other
// hand-written language tooling) that turns NaCl source text into an
// intermediate block/expression AST, then lowers that AST into the typed
// element graph defined by the element package, alongside a source map and
// a best-effort list of parse errors.
//
// The pipeline is Lex -> Parse -> Lower:
//
//   - Lex (lexer.go) scans UTF-8 source into a flat token stream.
//   - Parse (parser.go) builds a tree of *Block and Expr nodes, recovering
//     at the next top-level boundary after a syntax error instead of
//     aborting the whole file.
//   - Lower (lower.go) converts that tree into element.TopLevelElement
//     values, a sourcepos.SourceMap, and the set of ElemIDs referenced by
//     the file (for the NaCl file source's reverse-reference index).
package naclparse
