package resolver

import (
	"errors"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Messages parses go-i18n message files in TOML, YAML or JSON. Nested tables
// become dotted ids and plural forms are chosen with the "count" argument.
type Messages struct{}

func NewMessages() *Messages {
	return &Messages{}
}

func (m *Messages) Parse(locale language.Tag, resourceID, text string) (Resource, error) {
	bundle := i18n.NewBundle(locale)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yml", yaml.Unmarshal)

	// go-i18n reads the language and format from the file name.
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(resourceID)), ".")
	base := strings.TrimSuffix(path.Base(resourceID), path.Ext(resourceID))
	name := base + "." + locale.String() + "." + ext

	file, err := bundle.ParseMessageFileBytes([]byte(text), name)
	if err != nil {
		return nil, errorf(ErrMalformedResource, "%s: %v", resourceID, err)
	}

	res := &messagesResource{
		localizer: i18n.NewLocalizer(bundle, locale.String()),
		messages:  make(map[string]*i18n.Message, len(file.Messages)),
	}
	for _, msg := range file.Messages {
		res.messages[msg.ID] = msg
	}
	return res, nil
}

type messagesResource struct {
	localizer *i18n.Localizer
	messages  map[string]*i18n.Message
}

func (r *messagesResource) Has(id string) bool {
	_, ok := r.messages[id]
	return ok
}

func (r *messagesResource) Format(id string, args map[string]any) (string, error) {
	msg, ok := r.messages[id]
	if !ok {
		return "", errorf(ErrMissingID, "%s", id)
	}

	cfg := &i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: args,
	}
	if count, hasCount := args["count"]; hasCount {
		cfg.PluralCount = count
	}

	out, err := r.localizer.Localize(cfg)
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		if errors.As(err, &notFound) {
			return "", errorf(ErrMissingID, "%s", id)
		}
		if out == "" {
			out = msg.Other
		}
		return out, errorf(ErrMalformedArgs, "%s: %v", id, err)
	}
	return out, nil
}
