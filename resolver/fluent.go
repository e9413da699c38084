package resolver

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const maxReferenceDepth = 10

// Fluent parses the message subset of Fluent (.ftl) resources: messages and
// terms with single or multi-line values, comments, attributes (skipped),
// and placeables holding variables, string and number literals, message and
// term references, and select expressions. Variant values may span lines;
// each continuation line loses all of its leading indentation rather than
// only the indentation common to the variant.
type Fluent struct{}

func NewFluent() *Fluent {
	return &Fluent{}
}

func (f *Fluent) Parse(locale language.Tag, resourceID, text string) (Resource, error) {
	res := &fluentResource{
		printer:  message.NewPrinter(locale),
		locale:   locale,
		messages: map[string]*fluentEntry{},
		terms:    map[string]*fluentEntry{},
	}

	var errs []error
	for _, raw := range splitEntries(text) {
		entry, err := parseEntry(raw)
		if err != nil {
			errs = append(errs, errorf(ErrMalformedResource, "%s:%d: %v", resourceID, raw.line, err))
			continue
		}
		if entry.term {
			res.terms[entry.id] = entry
		} else {
			res.messages[entry.id] = entry
		}
	}

	return res, errors.Join(errs...)
}

type fluentResource struct {
	printer  *message.Printer
	locale   language.Tag
	messages map[string]*fluentEntry
	terms    map[string]*fluentEntry
}

func (r *fluentResource) Has(id string) bool {
	_, ok := r.messages[id]
	return ok
}

func (r *fluentResource) Format(id string, args map[string]any) (string, error) {
	entry, ok := r.messages[id]
	if !ok {
		return "", errorf(ErrMissingID, "%s", id)
	}
	if entry.value == nil {
		return "", errorf(ErrMalformedResource, "message %s has no value", id)
	}

	sc := &scope{res: r, args: args}
	out := sc.pattern(entry.value)
	return out, errors.Join(sc.errs...)
}

// rawEntry is the text of one entry as found in the resource.
type rawEntry struct {
	line  int
	lines []string
}

// splitEntries groups lines into entries. An entry starts on an unindented
// line and continues over indented and blank lines. Comments end entries.
func splitEntries(text string) []rawEntry {
	var (
		entries []rawEntry
		current *rawEntry
	)
	flush := func() {
		if current == nil {
			return
		}
		for len(current.lines) > 0 && strings.TrimSpace(current.lines[len(current.lines)-1]) == "" {
			current.lines = current.lines[:len(current.lines)-1]
		}
		entries = append(entries, *current)
		current = nil
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			if current != nil {
				current.lines = append(current.lines, "")
			}
		case line[0] == ' ':
			if current != nil {
				current.lines = append(current.lines, line)
			}
		case line[0] == '#':
			flush()
		case line[0] == '}' || line[0] == '[' || line[0] == '*' || line[0] == '.':
			// Tokens Fluent allows unindented inside a multi-line placeable.
			if current != nil {
				current.lines = append(current.lines, line)
			}
		default:
			flush()
			current = &rawEntry{line: i + 1, lines: []string{line}}
		}
	}
	flush()
	return entries
}

type fluentEntry struct {
	id    string
	term  bool
	value pattern
}

func parseEntry(raw rawEntry) (*fluentEntry, error) {
	head := raw.lines[0]
	eq := strings.IndexByte(head, '=')
	if eq < 0 {
		return nil, errors.New("expected an entry of the form id = value")
	}

	id := strings.TrimSpace(head[:eq])
	entry := &fluentEntry{}
	if strings.HasPrefix(id, "-") {
		entry.term = true
		id = id[1:]
	}
	if !isIdentifier(id) {
		return nil, errors.New("invalid identifier " + quote(head[:eq]))
	}
	entry.id = id

	valueLines := []string{head[eq+1:]}
	for _, line := range raw.lines[1:] {
		if strings.HasPrefix(strings.TrimSpace(line), ".") && isAttributeLine(line) {
			break
		}
		valueLines = append(valueLines, line)
	}

	text := joinValue(valueLines)
	if text == "" {
		if len(raw.lines) > len(valueLines) {
			return entry, nil
		}
		return nil, errors.New("entry " + id + " has neither value nor attributes")
	}

	p := &patternParser{src: []rune(text)}
	value, err := p.parse(false)
	if err != nil {
		return nil, err
	}
	entry.value = value
	return entry, nil
}

func isAttributeLine(line string) bool {
	t := strings.TrimSpace(line)
	eq := strings.IndexByte(t, '=')
	return eq > 1 && isIdentifier(strings.TrimSpace(t[1:eq]))
}

// joinValue strips the common indentation of continuation lines and joins
// them with the inline part of the first line.
func joinValue(lines []string) string {
	first := strings.TrimSpace(lines[0])
	rest := lines[1:]

	indent := -1
	for _, line := range rest {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	parts := make([]string, 0, len(lines))
	if first != "" {
		parts = append(parts, first)
	}
	for _, line := range rest {
		if strings.TrimSpace(line) == "" {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, strings.TrimRight(line[indent:], " "))
	}
	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	return strings.Join(parts, "\n")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '_'):
		default:
			return false
		}
	}
	return true
}

func quote(s string) string {
	return `"` + strings.TrimSpace(s) + `"`
}
