package resolver

import (
	"fmt"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// PO parses gettext .po catalogues. The msgid is the message id and named
// arguments fill {name} placeholders in the translation.
type PO struct{}

func NewPO() *PO {
	return &PO{}
}

func (p *PO) Parse(_ language.Tag, resourceID, text string) (Resource, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errorf(ErrMalformedResource, "%s: empty catalogue", resourceID)
	}

	po := gotext.NewPo()
	po.Parse([]byte(text))
	return &poResource{po: po, translations: po.GetDomain().GetTranslations()}, nil
}

// poResource reads singular forms from translations since gotext's Get
// treats the translation as a printf format.
type poResource struct {
	po           *gotext.Po
	translations map[string]*gotext.Translation
}

func (r *poResource) Has(id string) bool {
	tr, ok := r.translations[id]
	return ok && tr.IsTranslated()
}

func (r *poResource) Format(id string, args map[string]any) (string, error) {
	tr, ok := r.translations[id]
	if !ok || !tr.IsTranslated() {
		return "", errorf(ErrMissingID, "%s", id)
	}

	out := tr.Get()
	if count, ok := args["count"]; ok {
		if n, isNum := toFloat(count); isNum {
			out = r.po.GetN(id, id, int(n))
		}
	}

	var missing []string
	out = expandBraces(out, func(name string) (string, bool) {
		v, ok := args[name]
		if !ok {
			missing = append(missing, name)
			return "", false
		}
		return fmt.Sprint(v), true
	})
	if len(missing) > 0 {
		return out, errorf(ErrMalformedArgs, "%s: missing %s", id, strings.Join(missing, ", "))
	}
	return out, nil
}

// expandBraces replaces {name} with lookup(name), leaving unknown names untouched.
func expandBraces(s string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += open

		name := strings.TrimSpace(s[open+1 : end])
		b.WriteString(s[:open])
		v, ok := "", false
		if isIdentifier(name) {
			v, ok = lookup(name)
		}
		if ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[open : end+1])
		}
		s = s[end+1:]
	}
}
