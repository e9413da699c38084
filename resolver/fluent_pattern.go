package resolver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/feature/plural"
)

type exprKind int

const (
	exprString exprKind = iota
	exprNumber
	exprVariable
	exprMessage
	exprTerm
	exprSelect
)

// element is literal text when expr is nil, otherwise a placeable.
type element struct {
	text string
	expr *expression
}

type pattern []element

type variant struct {
	key   string
	value pattern
}

type expression struct {
	kind     exprKind
	value    string
	selector *expression
	variants []variant
	fallback int
}

type patternParser struct {
	src []rune
	pos int
}

func (p *patternParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *patternParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *patternParser) skipBlank(newlines bool) {
	for !p.eof() {
		r := p.peek()
		if r == ' ' || r == '\t' || (newlines && (r == '\n' || r == '\r')) {
			p.pos++
			continue
		}
		return
	}
}

// parse reads text and placeables. Inside a variant it stops before the line
// opening the next variant or closing the select; other lines continue the
// variant, joined with a newline and stripped of their indentation.
func (p *patternParser) parse(inVariant bool) (pattern, error) {
	var (
		out  pattern
		text strings.Builder
	)
	flushText := func() {
		if text.Len() > 0 {
			out = append(out, element{text: text.String()})
			text.Reset()
		}
	}

	for !p.eof() {
		r := p.peek()
		switch {
		case inVariant && r == '\n':
			next := p.pos
			for next < len(p.src) && unicode.IsSpace(p.src[next]) {
				next++
			}
			if next == len(p.src) || strings.ContainsRune("[*}", p.src[next]) {
				flushText()
				return out, nil
			}
			line := strings.TrimRight(text.String(), " \t")
			text.Reset()
			text.WriteString(line)
			text.WriteRune('\n')
			p.pos = next
		case r == '{':
			p.pos++
			expr, err := p.placeable()
			if err != nil {
				return nil, err
			}
			flushText()
			out = append(out, element{expr: expr})
		case r == '}':
			return nil, errors.New("unbalanced closing brace")
		default:
			text.WriteRune(r)
			p.pos++
		}
	}
	flushText()
	return out, nil
}

func (p *patternParser) placeable() (*expression, error) {
	p.skipBlank(true)
	expr, err := p.inline()
	if err != nil {
		return nil, err
	}
	p.skipBlank(true)

	if strings.HasPrefix(string(p.src[p.pos:]), "->") {
		p.pos += 2
		expr, err = p.selectExpression(expr)
		if err != nil {
			return nil, err
		}
		p.skipBlank(true)
	}

	if p.peek() != '}' {
		return nil, errors.New("expected closing brace")
	}
	p.pos++
	return expr, nil
}

func (p *patternParser) inline() (*expression, error) {
	r := p.peek()
	switch {
	case r == '$':
		p.pos++
		return &expression{kind: exprVariable, value: p.identifier()}, p.nonEmpty("variable")
	case r == '"':
		p.pos++
		return p.stringLiteral()
	case r == '-' && p.pos+1 < len(p.src) && unicode.IsDigit(p.src[p.pos+1]), unicode.IsDigit(r):
		return p.numberLiteral(), nil
	case r == '-':
		p.pos++
		return &expression{kind: exprTerm, value: p.identifier()}, p.nonEmpty("term")
	case unicode.IsLetter(r):
		id := p.identifier()
		if p.peek() == '(' || p.peek() == '.' {
			return nil, fmt.Errorf("unsupported expression after %s", id)
		}
		return &expression{kind: exprMessage, value: id}, nil
	default:
		return nil, fmt.Errorf("unexpected %q in placeable", r)
	}
}

func (p *patternParser) nonEmpty(what string) error {
	if p.pos > 0 && isIdentifierRune(p.src[p.pos-1]) {
		return nil
	}
	return errors.New("empty " + what + " name")
}

func (p *patternParser) identifier() string {
	start := p.pos
	for !p.eof() && isIdentifierRune(p.peek()) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

func (p *patternParser) stringLiteral() (*expression, error) {
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		p.pos++
		switch r {
		case '"':
			return &expression{kind: exprString, value: b.String()}, nil
		case '\\':
			if p.eof() {
				return nil, errors.New("unterminated escape")
			}
			b.WriteRune(p.peek())
			p.pos++
		case '\n':
			return nil, errors.New("unterminated string literal")
		default:
			b.WriteRune(r)
		}
	}
	return nil, errors.New("unterminated string literal")
}

func (p *patternParser) numberLiteral() *expression {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && (unicode.IsDigit(p.peek()) || p.peek() == '.') {
		p.pos++
	}
	return &expression{kind: exprNumber, value: string(p.src[start:p.pos])}
}

func (p *patternParser) selectExpression(selector *expression) (*expression, error) {
	expr := &expression{kind: exprSelect, selector: selector, fallback: -1}

	for {
		p.skipBlank(true)
		if p.eof() {
			return nil, errors.New("unterminated select expression")
		}
		if p.peek() == '}' {
			break
		}

		isDefault := false
		if p.peek() == '*' {
			isDefault = true
			p.pos++
		}
		if p.peek() != '[' {
			return nil, errors.New("expected variant key")
		}
		p.pos++
		end := strings.IndexRune(string(p.src[p.pos:]), ']')
		if end < 0 {
			return nil, errors.New("unterminated variant key")
		}
		keyRunes := []rune(string(p.src[p.pos:])[:end])
		key := strings.TrimSpace(string(keyRunes))
		p.pos += len(keyRunes) + 1

		p.skipBlank(false)
		value, err := p.parse(true)
		if err != nil {
			return nil, err
		}
		if n := len(value); n > 0 && value[n-1].expr == nil {
			value[n-1].text = strings.TrimRight(value[n-1].text, " \t")
		}

		if isDefault {
			if expr.fallback >= 0 {
				return nil, errors.New("select expression has more than one default variant")
			}
			expr.fallback = len(expr.variants)
		}
		expr.variants = append(expr.variants, variant{key: key, value: value})
	}

	if expr.fallback < 0 {
		return nil, errors.New("select expression has no default variant")
	}
	return expr, nil
}

// scope carries the arguments and the errors of one Format call.
type scope struct {
	res   *fluentResource
	args  map[string]any
	errs  []error
	depth int
}

func (s *scope) pattern(p pattern) string {
	var b strings.Builder
	for _, el := range p {
		if el.expr == nil {
			b.WriteString(el.text)
			continue
		}
		b.WriteString(s.expression(el.expr))
	}
	return b.String()
}

func (s *scope) expression(e *expression) string {
	switch e.kind {
	case exprString:
		return e.value
	case exprNumber:
		if f, err := strconv.ParseFloat(e.value, 64); err == nil {
			return s.res.printer.Sprint(f)
		}
		return e.value
	case exprVariable:
		v, ok := s.args[e.value]
		if !ok {
			s.errs = append(s.errs, errorf(ErrMalformedArgs, "unknown variable $%s", e.value))
			return "{$" + e.value + "}"
		}
		return s.formatArg(v)
	case exprMessage:
		return s.reference(e.value, s.res.messages, "")
	case exprTerm:
		return s.reference(e.value, s.res.terms, "-")
	case exprSelect:
		return s.pattern(s.choose(e))
	}
	return ""
}

func (s *scope) reference(id string, entries map[string]*fluentEntry, sigil string) string {
	entry, ok := entries[id]
	if !ok || entry.value == nil {
		s.errs = append(s.errs, errorf(ErrMalformedResource, "unknown reference %s%s", sigil, id))
		return "{" + sigil + id + "}"
	}
	if s.depth >= maxReferenceDepth {
		s.errs = append(s.errs, errorf(ErrMalformedResource, "reference cycle at %s%s", sigil, id))
		return "{" + sigil + id + "}"
	}
	s.depth++
	defer func() { s.depth-- }()
	return s.pattern(entry.value)
}

func (s *scope) formatArg(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return s.res.printer.Sprint(n)
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprint(n)
	}
}

// choose picks the variant matching the selector: an exact key first, then
// the plural category of a numeric selector, then the default.
func (s *scope) choose(e *expression) pattern {
	var (
		selected string
		number   *float64
	)

	switch sel := e.selector; sel.kind {
	case exprVariable:
		v, ok := s.args[sel.value]
		if !ok {
			s.errs = append(s.errs, errorf(ErrMalformedArgs, "unknown variable $%s", sel.value))
			return e.variants[e.fallback].value
		}
		if f, isNum := toFloat(v); isNum {
			number = &f
			selected = strconv.FormatFloat(f, 'f', -1, 64)
		} else {
			selected = fmt.Sprint(v)
		}
	case exprNumber:
		if f, err := strconv.ParseFloat(sel.value, 64); err == nil {
			number = &f
		}
		selected = sel.value
	default:
		selected = s.expression(sel)
	}

	for _, v := range e.variants {
		if v.key == selected {
			return v.value
		}
		if number != nil {
			if kf, err := strconv.ParseFloat(v.key, 64); err == nil && kf == *number {
				return v.value
			}
		}
	}

	if number != nil {
		category := pluralCategory(s.res, *number)
		for _, v := range e.variants {
			if v.key == category {
				return v.value
			}
		}
	}

	return e.variants[e.fallback].value
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// pluralCategory maps n to its CLDR cardinal category name for the resource locale.
func pluralCategory(res *fluentResource, n float64) string {
	if n < 0 {
		n = -n
	}
	digits := strconv.FormatFloat(n, 'f', -1, 64)
	intPart, fracPart, _ := strings.Cut(digits, ".")

	i, _ := strconv.Atoi(intPart)
	v := len(fracPart)
	trimmed := strings.TrimRight(fracPart, "0")
	w := len(trimmed)
	f, _ := strconv.Atoi("0" + fracPart)
	t, _ := strconv.Atoi("0" + trimmed)

	switch plural.Cardinal.MatchPlural(res.locale, i, v, w, f, t) {
	case plural.Zero:
		return "zero"
	case plural.One:
		return "one"
	case plural.Two:
		return "two"
	case plural.Few:
		return "few"
	case plural.Many:
		return "many"
	default:
		return "other"
	}
}
