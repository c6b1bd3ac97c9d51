package utils

import (
	"embed"
	"path"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

// SupportedLanguages lists the bundled locales, default first
var SupportedLanguages = []language.Tag{language.English, language.Japanese}

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle
	// Localizer is the default localizer
	Localizer *i18n.Localizer

	i18nOnce sync.Once
	i18nErr  error
)

// InitI18n loads the embedded locale files. Safe to call more than once.
func InitI18n() error {
	i18nOnce.Do(func() {
		Bundle = i18n.NewBundle(language.English)
		Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			i18nErr = err
			return
		}
		for _, entry := range entries {
			name := path.Join("locales", entry.Name())
			data, err := localeFS.ReadFile(name)
			if err != nil {
				Log.Warn("Failed to read locale %s: %v", name, err)
				continue
			}
			if _, err := Bundle.ParseMessageFileBytes(data, name); err != nil {
				Log.Warn("Failed to load locale %s: %v", name, err)
			}
		}

		Localizer = i18n.NewLocalizer(Bundle, language.English.String())
		Log.Debug("i18n system initialized")
	})
	return i18nErr
}

var matcher = language.NewMatcher(SupportedLanguages)

// MatchLanguage picks the closest bundled language for an Accept-Language style value
func MatchLanguage(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, idx, _ := matcher.Match(tags...)
	base, _ := SupportedLanguages[idx].Base()
	return base.String()
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	if err := InitI18n(); err != nil {
		Log.Warn("i18n unavailable: %v", err)
	}
	if lang == "" {
		lang = "en"
	}
	return i18n.NewLocalizer(Bundle, lang)
}

// T translates a message ID
func T(localizer *i18n.Localizer, messageID string) string {
	return TWithData(localizer, messageID, nil)
}

// TWithData translates a message ID with template data
func TWithData(localizer *i18n.Localizer, messageID string, data map[string]interface{}) string {
	if localizer == nil {
		localizer = GetLocalizer("en")
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}
