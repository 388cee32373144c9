package naclparse

// node is embedded by every AST node to give it a byte-offset span within
// the file it was parsed from. Positions are resolved to line/col lazily,
// at the point a sourcepos.Range is actually needed (see rangeOf in
// lower.go), rather than tracked incrementally while scanning.
type node struct {
	from int
	to   int
}

// File is the root of one parsed NaCl document: a flat sequence of
// top-level blocks. NaCl has no bare top-level attributes; every
// declaration is a block (`type ...`, `vars { ... }`, or an instance
// block).
type File struct {
	node
	Blocks []*Block
}

// Block is `typeWord label* '{' items '}'`. TypeWord is always present;
// Labels is empty for `vars` blocks and has exactly one entry for type and
// instance blocks (the dotted adapter.TypeName for a type block, the
// instance name for an instance block).
type Block struct {
	node
	TypeWord string
	Labels   []string
	Items    []BlockItem
}

// BlockItem is either an Attribute or a nested Block.
type BlockItem interface {
	blockItem()
}

func (*Attribute) blockItem() {}
func (*Block) blockItem()     {}

// Attribute is `key = expr`.
type Attribute struct {
	node
	Key   string
	Value Expr
}

// Expr is the closed set of expression node kinds.
type Expr interface {
	expr()
}

func (*NumberExpr) expr()    {}
func (*BoolExpr) expr()      {}
func (*StringExpr) expr()    {}
func (*ListExpr) expr()      {}
func (*ObjectExpr) expr()    {}
func (*ReferenceExpr) expr() {}
func (*CallExpr) expr()      {}
func (*DynamicExpr) expr()   {}

// NumberExpr is a numeric literal, kept as source text; the parser does not
// itself decide float vs int, that is the element package's concern.
type NumberExpr struct {
	node
	Text string
}

// BoolExpr is the `true` / `false` keyword literal.
type BoolExpr struct {
	node
	Value bool
}

// TemplatePart is one fragment of a decoded string: either a literal run of
// text, or a reference to be substituted at resolution time.
type TemplatePart struct {
	Literal   string
	Reference *ReferenceExpr
}

// StringExpr is a quoted or triple-quoted string, already decoded into its
// literal/reference fragments.
type StringExpr struct {
	node
	Parts     []TemplatePart
	Multiline bool
}

// ListExpr is a `[ ... ]` literal.
type ListExpr struct {
	node
	Items []Expr
}

// ObjectExpr is a `{ ... }` literal used as a value (as opposed to a
// Block's `{ ... }`, which holds BlockItems). Used for nested map/object
// values inside instance attributes.
type ObjectExpr struct {
	node
	Items map[string]Expr
	// Order preserves declaration order, since map iteration order is not
	// stable and duplicate-key detection needs it.
	Order []string
}

// ReferenceExpr is a dotted path, e.g. `salesforce.Account.instance.acme.Name`.
type ReferenceExpr struct {
	node
	Parts []string
}

// CallExpr is `name(args...)`.
type CallExpr struct {
	node
	Name string
	Args []Expr
}

// DynamicExpr is the `*` wildcard, legal only in error-recovery mode.
type DynamicExpr struct {
	node
}
