package lang

import "strings"

const (
	// HindiLocale is the recognition locale substituted for underserved Indian languages.
	HindiLocale = "hi-IN"
	// EnglishLocale is the last-resort recognition locale.
	EnglishLocale = "en-US"
)

var speechLocales = map[string]string{
	"hi": "hi-IN",
	"en": "en-IN",

	"bn": "bn-IN",
	"gu": "gu-IN",
	"kn": "kn-IN",
	"ml": "ml-IN",
	"mr": "mr-IN",
	"ta": "ta-IN",
	"te": "te-IN",
	"ur": "ur-IN",
	"pa": "pa-IN",
	"or": "or-IN",
	"as": "as-IN",

	"zh": "zh-CN",
	"fr": "fr-FR",
	"de": "de-DE",
	"es": "es-ES",
	"it": "it-IT",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"pt": "pt-BR",
	"ru": "ru-RU",
}

var translationCodes = map[string]string{
	"en-US": "en",
	"en-GB": "en",
	"en-IN": "en",
	"hi-IN": "hi",
	"bn-IN": "bn",
	"ur-IN": "ur",
	"pa-IN": "pa",
	"ta-IN": "ta",
	"te-IN": "te",
	"kn-IN": "kn",
	"ml-IN": "ml",
	"gu-IN": "gu",
	"mr-IN": "mr",
	"or-IN": "or",
	"as-IN": "as",
	"ar-SA": "ar",
	"zh-CN": "zh-Hans",
	"zh-TW": "zh-Hant",
	"nl-NL": "nl",
	"fr-FR": "fr",
	"fr-CA": "fr-ca",
	"de-DE": "de",
	"it-IT": "it",
	"ja-JP": "ja",
	"ko-KR": "ko",
	"pt-BR": "pt",
	"pt-PT": "pt-pt",
	"ru-RU": "ru",
	"es-ES": "es",
	"es-MX": "es",
	"th-TH": "th",
	"tr-TR": "tr",
	"vi-VN": "vi",
}

var indianLanguages = map[string]struct{}{
	"hi": {}, "bn": {}, "ta": {}, "te": {}, "mr": {}, "gu": {}, "kn": {},
	"ml": {}, "pa": {}, "ur": {}, "as": {}, "or": {}, "sd": {}, "ks": {},
	"doi": {}, "mai": {}, "bho": {}, "brx": {}, "gom": {}, "sa": {}, "ne": {},
}

// Resolution is a speech locale plus whether it substitutes another language.
type Resolution struct {
	Locale   string
	Fallback bool
}

// BaseCode returns the lower-cased segment before the first hyphen.
func BaseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexByte(code, '-'); idx >= 0 {
		code = code[:idx]
	}
	return code
}

// IsIndian reports whether code's base belongs to the Indian language set.
func IsIndian(code string) bool {
	_, ok := indianLanguages[BaseCode(code)]
	return ok
}

// SpeechLocale maps a catalog code to a recognition locale.
//
// Unmapped Indian languages resolve to Hindi with Fallback set. Other
// unmapped codes get a synthesized BASE-BASE locale.
func SpeechLocale(code string) Resolution {
	base := BaseCode(code)
	if locale, ok := speechLocales[base]; ok {
		return Resolution{Locale: locale}
	}
	if _, ok := indianLanguages[base]; ok {
		return Resolution{Locale: HindiLocale, Fallback: true}
	}
	if base == "" || base == Auto.Code {
		return Resolution{Locale: EnglishLocale}
	}
	return Resolution{Locale: base + "-" + strings.ToUpper(base)}
}

// TranslationCode maps a recognition locale to a translator language code.
func TranslationCode(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "en"
	}
	if code, ok := translationCodes[locale]; ok {
		return code
	}
	lower := strings.ToLower(locale)
	if strings.HasPrefix(lower, "zh") {
		return "zh-Hans"
	}
	if strings.HasPrefix(lower, "pt") {
		return "pt"
	}
	if idx := strings.IndexByte(locale, '-'); idx > 0 {
		return locale[:idx]
	}
	return locale
}

// TranslatorCode normalizes a catalog code or recognition locale for the
// translator. Catalog codes are already translator codes and pass through;
// anything else goes through TranslationCode. Auto and empty codes return ""
// so the translator detects the source itself.
func TranslatorCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, Auto.Code) {
		return ""
	}
	if l, ok := catalogByCode[strings.ToLower(trimmed)]; ok {
		return l.Code
	}
	return TranslationCode(trimmed)
}
