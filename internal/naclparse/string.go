package naclparse

import "strings"

// decodeTemplate decodes the raw content of a quoted (single- or
// triple-quoted) string into its literal/reference fragments: bare
// `\n`, `\t`, `\"`, `\\` escapes are recognized, and `${path.to.value}`
// spans are lifted out as ReferenceExpr fragments rather than literal text.
//
// base is the byte offset of raw within the original source, used to give
// each ReferenceExpr fragment an accurate span for error reporting.
func decodeTemplate(raw string, base int, multiline bool) ([]TemplatePart, *ParseError) {
	if multiline {
		raw = trimOneTrailingNewline(raw)
	}

	var parts []TemplatePart
	var lit strings.Builder
	flushLit := func() {
		if lit.Len() > 0 {
			parts = append(parts, TemplatePart{Literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			switch raw[i+1] {
			case 'n':
				lit.WriteByte('\n')
			case 't':
				lit.WriteByte('\t')
			case '"':
				lit.WriteByte('"')
			case '\\':
				lit.WriteByte('\\')
			default:
				lit.WriteByte('\\')
				lit.WriteByte(raw[i+1])
			}
			i += 2

		case c == '$' && i+1 < len(raw) && raw[i+1] == '{':
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return nil, &ParseError{
					Message: "unterminated interpolation",
					Severity: SeverityError,
				}
			}
			end += i + 2
			path := raw[i+2 : end]
			flushLit()
			parts = append(parts, TemplatePart{Reference: &ReferenceExpr{
				node:  node{from: base + i, to: base + end + 1},
				Parts: strings.Split(path, "."),
			}})
			i = end + 1

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flushLit()
	return parts, nil
}

// trimOneTrailingNewline removes exactly one trailing "\n" (or "\r\n") from
// s, per the multiline-string rule that only the final newline before the
// closing ''' is trimmed.
func trimOneTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "\n") {
		return s[:len(s)-1]
	}
	return s
}
