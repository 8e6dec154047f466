package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Supported lists the languages users can switch between.
var Supported = []string{"en", "de"}

type Translator struct {
	bundle      *i18n.Bundle
	defaultLang string
}

func New(defaultLang string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range Supported {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("could not load %s.json: %w", lang, err)
		}
	}

	return &Translator{bundle: bundle, defaultLang: Normalize(defaultLang)}, nil
}

// Normalize maps anything unsupported to English.
func Normalize(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	if base.String() == "de" {
		return "de"
	}
	return "en"
}

func (t *Translator) DefaultLang() string {
	return t.defaultLang
}

func (t *Translator) Localizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(t.bundle, Normalize(lang), t.defaultLang)
}

// T returns the translated message, or the id itself when it is missing.
func (t *Translator) T(lang, messageID string, data map[string]any) string {
	text, err := t.Localizer(lang).Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return text
}
