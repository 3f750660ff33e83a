package shoptl

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocales maps export locales to their service code and URL segment.
var DefaultLocales = map[string]LocaleTarget{
	"it": {Lang: "it", URLSegment: "it"},
	"fr": {Lang: "fr", URLSegment: "fr"},
	"de": {Lang: "de", URLSegment: "de"},
	"es": {Lang: "es", URLSegment: "es"},
	"nl": {Lang: "nl", URLSegment: "nl"},
	"fi": {Lang: "fi", URLSegment: "fi"},
}

// LanguageNames maps language codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"en":    "English",
	"en-gb": "English (United Kingdom)",
	"en-us": "English (United States)",
	"de":    "German",
	"es":    "Spanish",
	"fr":    "French",
	"it":    "Italian",
	"nl":    "Dutch",
	"fi":    "Finnish",
	"sv":    "Swedish",
	"da":    "Danish",
	"nb":    "Norwegian Bokmål",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pt-br": "Portuguese (Brazil)",
	"pt-pt": "Portuguese (Portugal)",
	"ja":    "Japanese",
	"zh":    "Chinese (Simplified)",
	"ko":    "Korean",
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	code := strings.ToLower(NormalizeLocale(langCode))
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	if base := BaseLanguage(code); base != code {
		if name, ok := LanguageNames[base]; ok {
			return name
		}
	}
	return langCode
}

// NormalizeLocale converts a locale code to BCP 47 separators (e.g., "pt_BR" → "pt-BR").
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
}

// BaseLanguage extracts the base language of a locale (e.g., "de" from "de-CH").
// Unparseable codes are returned lowercased.
func BaseLanguage(locale string) string {
	normalized := strings.ToLower(NormalizeLocale(locale))
	tag, err := language.Parse(normalized)
	if err != nil {
		return normalized
	}
	base, _ := tag.Base()
	return base.String()
}

// ResolveLocale looks up a locale in locales. The lookup is case-insensitive
// and falls back to the base language when the full code is not mapped.
func ResolveLocale(locales map[string]LocaleTarget, locale string) (LocaleTarget, bool) {
	key := strings.ToLower(NormalizeLocale(locale))
	if key == "" {
		return LocaleTarget{}, false
	}
	if target, ok := locales[key]; ok {
		return target, true
	}
	if base := BaseLanguage(key); base != key {
		if target, ok := locales[base]; ok {
			return target, true
		}
	}
	return LocaleTarget{}, false
}
