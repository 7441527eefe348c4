// Package i18n translates user-facing messages. English and Indonesian
// catalogs are embedded; the language comes from Accept-Language.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type Translator struct {
	bundle *goi18n.Bundle
}

func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range []string{"locales/active.en.json", "locales/active.id.json"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return &Translator{bundle: bundle}, nil
}

// T returns messageID in the best language for acceptLanguage, or fallback
// when the catalog has no such message.
func (t *Translator) T(acceptLanguage, messageID, fallback string) string {
	if t == nil {
		return fallback
	}
	localizer := goi18n.NewLocalizer(t.bundle, acceptLanguage)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: messageID})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}
