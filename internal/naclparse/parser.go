package naclparse

import (
	"strconv"
	"strings"

	"github.com/vk/naclworkspace/internal/sourcepos"
)

// Option configures a parser session. Options are resolved once at session
// construction, never mutated afterwards.
type Option func(*options)

type options struct {
	errorRecovery bool
}

// WithErrorRecoveryMode tolerates `*` wildcard tokens, lowering them to a
// dynamic expression instead of rejecting them with a ParseError.
func WithErrorRecoveryMode(enabled bool) Option {
	return func(o *options) { o.errorRecovery = enabled }
}

// parser holds the token stream and parse-time state for one file. It never
// outlives a single call to parseFile.
type parser struct {
	filename string
	src      string
	toks     []token
	pos      int
	opts     options
	errs     []*ParseError
}

func tokenize(src string) []token {
	lx := newLexer(src)
	var toks []token
	for {
		t := lx.nextToken()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

func parseFile(filename, src string, opts ...Option) (*File, []*ParseError) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &parser{filename: filename, src: src, toks: tokenize(src), opts: o}

	f := &File{node: node{from: 0, to: len(src)}}
	for p.cur().kind != tokEOF {
		b := p.parseTopLevelBlock()
		if b != nil {
			f.Blocks = append(f.Blocks, b)
		}
	}
	return f, p.errs
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorAt(t token, format string) {
	r := p.rangeOf(t.from, t.to)
	p.errs = append(p.errs, &ParseError{Message: format, Context: r, Subject: r, Severity: SeverityError})
}

func (p *parser) rangeOf(from, to int) sourcepos.Range {
	return sourcepos.Range{Filename: p.filename, Start: positionAt(p.src, from), End: positionAt(p.src, to)}
}

// positionAt resolves a byte offset into a Position by counting newlines, so
// line numbers stay derived rather than incrementally tracked while lexing.
func positionAt(src string, byteOffset int) sourcepos.Position {
	if byteOffset > len(src) {
		byteOffset = len(src)
	}
	before := src[:byteOffset]
	line := strings.Count(before, "\n") + 1
	col := byteOffset
	if idx := strings.LastIndexByte(before, '\n'); idx >= 0 {
		col = byteOffset - idx - 1
	}
	return sourcepos.Position{Line: line, Col: col, Byte: byteOffset}
}

// parseTopLevelBlock parses one top-level Block, recovering to the next
// top-level boundary on error.
func (p *parser) parseTopLevelBlock() *Block {
	if p.cur().kind == tokIllegal {
		p.errorAt(p.cur(), "unexpected character")
		p.advance()
		return nil
	}
	b, ok := p.parseBlockHeader()
	if !ok {
		p.recover(0)
		return nil
	}
	b.Items = p.parseBlockItems()
	b.to = p.prevTo()
	return b
}

// parseBlockHeader parses `typeWord label* '{'`, leaving the cursor just
// past the opening brace. It does not consume the closing brace.
func (p *parser) parseBlockHeader() (*Block, bool) {
	start := p.cur().from
	if p.cur().kind != tokIdent {
		p.errorAt(p.cur(), "expected a block type")
		return nil, false
	}
	typeWord := p.parseDottedWord()

	var labels []string
	for p.cur().kind == tokIdent || p.cur().kind == tokString {
		if p.cur().kind == tokString {
			labels = append(labels, p.cur().text)
			p.advance()
			continue
		}
		labels = append(labels, p.parseDottedWord())
	}

	if p.cur().kind != tokLBrace {
		p.errorAt(p.cur(), "expected '{'")
		return nil, false
	}
	p.advance() // consume '{'

	return &Block{node: node{from: start}, TypeWord: typeWord, Labels: labels}, true
}

// parseDottedWord consumes `ident ('.' ident)*` and returns it joined by
// dots, the representation used for adapter.TypeName references throughout
// the grammar.
func (p *parser) parseDottedWord() string {
	parts := []string{p.advance().text}
	for p.cur().kind == tokDot && p.peekAt(1).kind == tokIdent {
		p.advance() // '.'
		parts = append(parts, p.advance().text)
	}
	return strings.Join(parts, ".")
}

// parseBlockItems parses block-items up to and including the closing '}'.
func (p *parser) parseBlockItems() []BlockItem {
	var items []BlockItem
	for {
		switch p.cur().kind {
		case tokRBrace:
			p.advance()
			return items
		case tokEOF:
			p.errorAt(p.cur(), "unexpected end of file, expected '}'")
			return items
		case tokIllegal:
			p.errorAt(p.cur(), "unexpected character")
			p.advance()
		case tokIdent:
			items = append(items, p.parseBlockItem())
		default:
			p.errorAt(p.cur(), "expected an attribute or a nested block")
			p.recover(1)
			return items
		}
	}
}

// parseBlockItem disambiguates an Attribute (`key = expr`) from a nested
// Block (`typeWord label* '{' ... '}'`) by a single token of lookahead: if
// the word we just read is immediately followed by '=', it is an attribute
// key; otherwise it is a block's type word.
func (p *parser) parseBlockItem() BlockItem {
	start := p.cur().from
	word := p.parseDottedWord()

	if p.cur().kind == tokEquals {
		if strings.Contains(word, ".") {
			p.errorAt(p.cur(), "invalid attribute key")
		}
		p.advance() // '='
		val := p.parseExpr()
		return &Attribute{node: node{from: start, to: p.prevTo()}, Key: word, Value: val}
	}

	var labels []string
	for p.cur().kind == tokIdent || p.cur().kind == tokString {
		if p.cur().kind == tokString {
			labels = append(labels, p.cur().text)
			p.advance()
			continue
		}
		labels = append(labels, p.parseDottedWord())
	}
	if p.cur().kind != tokLBrace {
		p.errorAt(p.cur(), "expected '=' or '{'")
		p.recover(0)
		return &Block{node: node{from: start, to: p.prevTo()}, TypeWord: word, Labels: labels}
	}
	p.advance() // '{'
	b := &Block{node: node{from: start}, TypeWord: word, Labels: labels}
	b.Items = p.parseBlockItems()
	b.to = p.prevTo()
	return b
}

func (p *parser) prevTo() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].to
}

// recover skips tokens until brace/bracket/paren nesting returns to zero,
// resuming at the next top-level boundary. depth is the nesting already
// open at the point the error was noticed (0 if no opening token has been
// consumed yet for the current construct).
func (p *parser) recover(depth int) {
	for {
		switch p.cur().kind {
		case tokEOF:
			return
		case tokLBrace, tokLBrack, tokLParen:
			depth++
		case tokRBrace, tokRBrack, tokRParen:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		}
		p.advance()
	}
}

func (p *parser) parseExpr() Expr {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		return &NumberExpr{node: node{from: t.from, to: t.to}, Text: t.text}

	case tokString:
		p.advance()
		parts, derr := decodeTemplate(t.text, t.from+1, false)
		if derr != nil {
			derr.Context = p.rangeOf(t.from, t.to)
			derr.Subject = derr.Context
			p.errs = append(p.errs, derr)
		}
		return &StringExpr{node: node{from: t.from, to: t.to}, Parts: parts}

	case tokMLString:
		p.advance()
		parts, derr := decodeTemplate(t.text, t.from+3, true)
		if derr != nil {
			derr.Context = p.rangeOf(t.from, t.to)
			derr.Subject = derr.Context
			p.errs = append(p.errs, derr)
		}
		return &StringExpr{node: node{from: t.from, to: t.to}, Parts: parts, Multiline: true}

	case tokLBrack:
		return p.parseListExpr()

	case tokLBrace:
		return p.parseObjectExpr()

	case tokStar:
		p.advance()
		if !p.opts.errorRecovery {
			p.errorAt(t, "wildcard token outside error-recovery mode")
		}
		return &DynamicExpr{node: node{from: t.from, to: t.to}}

	case tokIdent:
		if t.text == "true" || t.text == "false" {
			p.advance()
			return &BoolExpr{node: node{from: t.from, to: t.to}, Value: t.text == "true"}
		}
		return p.parseReferenceOrCall()

	default:
		p.errorAt(t, "expected an expression")
		p.recover(0)
		return &DynamicExpr{node: node{from: t.from, to: t.to}}
	}
}

func (p *parser) parseListExpr() Expr {
	start := p.advance().from // '['
	var items []Expr
	for p.cur().kind != tokRBrack {
		if p.cur().kind == tokEOF {
			p.errorAt(p.cur(), "unexpected end of file, expected ']'")
			break
		}
		items = append(items, p.parseExpr())
		if p.cur().kind == tokComma {
			p.advance()
		} else {
			break
		}
	}
	end := p.cur().to
	if p.cur().kind == tokRBrack {
		p.advance()
	} else {
		p.errorAt(p.cur(), "expected ']'")
	}
	return &ListExpr{node: node{from: start, to: end}, Items: items}
}

func (p *parser) parseObjectExpr() Expr {
	start := p.advance().from // '{'
	obj := &ObjectExpr{node: node{from: start}, Items: map[string]Expr{}}
	for p.cur().kind != tokRBrace {
		if p.cur().kind == tokEOF {
			p.errorAt(p.cur(), "unexpected end of file, expected '}'")
			break
		}
		if p.cur().kind != tokIdent && p.cur().kind != tokString {
			p.errorAt(p.cur(), "expected an object key")
			p.recover(1)
			break
		}
		keyTok := p.advance()
		key := keyTok.text
		if p.cur().kind != tokEquals {
			p.errorAt(p.cur(), "expected '='")
			p.recover(0)
			continue
		}
		p.advance() // '='
		val := p.parseExpr()
		if _, dup := obj.Items[key]; dup {
			p.errorAt(keyTok, "attribute redefined")
		} else {
			obj.Order = append(obj.Order, key)
		}
		obj.Items[key] = val
		if p.cur().kind == tokComma {
			p.advance()
		}
	}
	end := p.cur().to
	if p.cur().kind == tokRBrace {
		p.advance()
	}
	obj.to = end
	return obj
}

func (p *parser) parseReferenceOrCall() Expr {
	start := p.cur().from
	parts := []string{p.advance().text}
	for p.cur().kind == tokDot && p.peekAt(1).kind == tokIdent {
		p.advance()
		parts = append(parts, p.advance().text)
	}

	if p.cur().kind == tokLParen {
		p.advance()
		var args []Expr
		for p.cur().kind != tokRParen {
			if p.cur().kind == tokEOF {
				p.errorAt(p.cur(), "unexpected end of file, expected ')'")
				break
			}
			args = append(args, p.parseExpr())
			if p.cur().kind == tokComma {
				p.advance()
			} else {
				break
			}
		}
		end := p.cur().to
		if p.cur().kind == tokRParen {
			p.advance()
		} else {
			p.errorAt(p.cur(), "expected ')'")
		}
		return &CallExpr{node: node{from: start, to: end}, Name: strings.Join(parts, "."), Args: args}
	}

	return &ReferenceExpr{node: node{from: start, to: p.prevTo()}, Parts: parts}
}

// parseNumber is exposed for the lowering pass, which needs to turn a
// NumberExpr's raw text into a float64.
func parseNumber(text string) (float64, bool) {
	f, err := strconv.ParseFloat(text, 64)
	return f, err == nil
}
