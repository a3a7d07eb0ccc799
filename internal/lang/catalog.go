// Package lang maps languages between speech-recognition locales,
// translation codes, and synthesis voice names.
package lang

import "strings"

// Language identifies a human language for display and API calls.
// Two languages are equal when their codes are equal.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Equal reports whether l and other share a code.
func (l Language) Equal(other Language) bool {
	return l.Code == other.Code
}

// String returns the display name, or the code when no name is set.
func (l Language) String() string {
	if strings.TrimSpace(l.Name) != "" {
		return l.Name
	}
	return l.Code
}

// EnglishName returns the parenthesized English name of an entry such as
// "हिन्दी (Hindi)", or String() when there is none.
func (l Language) EnglishName() string {
	name := strings.TrimSpace(l.Name)
	open := strings.LastIndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return l.String()
	}
	if inner := strings.TrimSpace(name[open+1 : len(name)-1]); inner != "" {
		return inner
	}
	return l.String()
}

// Auto is the pseudo source language that lets the translator detect input.
var Auto = Language{Code: "auto", Name: "Detect language"}

// Indian languages are listed first, matching the language picker order.
var catalog = []Language{
	{Code: "hi", Name: "हिन्दी (Hindi)"},
	{Code: "bn", Name: "বাংলা (Bangla)"},
	{Code: "ur", Name: "اردو (Urdu)"},
	{Code: "pa", Name: "ਪੰਜਾਬੀ (Punjabi)"},
	{Code: "ta", Name: "தமிழ் (Tamil)"},
	{Code: "te", Name: "తెలుగు (Telugu)"},
	{Code: "kn", Name: "ಕನ್ನಡ (Kannada)"},
	{Code: "ml", Name: "മലയാളം (Malayalam)"},
	{Code: "gu", Name: "ગુજરાતી (Gujarati)"},
	{Code: "mr", Name: "मराठी (Marathi)"},
	{Code: "or", Name: "ଓଡ଼ିଆ (Odia)"},
	{Code: "as", Name: "অসমীয়া (Assamese)"},
	{Code: "gom", Name: "कोंकणी (Konkani)"},
	{Code: "sd", Name: "سنڌي (Sindhi)"},
	{Code: "ks", Name: "کٲشُر (Kashmiri)"},
	{Code: "doi", Name: "डोगरी (Dogri)"},
	{Code: "mai", Name: "मैथिली (Maithili)"},
	{Code: "bho", Name: "भोजपुरी (Bhojpuri)"},
	{Code: "brx", Name: "बड़ो (Bodo)"},

	{Code: "af", Name: "Afrikaans"},
	{Code: "sq", Name: "Albanian"},
	{Code: "am", Name: "Amharic"},
	{Code: "ar", Name: "Arabic"},
	{Code: "hy", Name: "Armenian"},
	{Code: "az", Name: "Azerbaijani (Latin)"},
	{Code: "ba", Name: "Bashkir"},
	{Code: "eu", Name: "Basque"},
	{Code: "bs", Name: "Bosnian (Latin)"},
	{Code: "bg", Name: "Bulgarian"},
	{Code: "yue", Name: "Cantonese (Traditional)"},
	{Code: "ca", Name: "Catalan"},
	{Code: "lzh", Name: "Chinese (Literary)"},
	{Code: "zh-Hans", Name: "Chinese Simplified"},
	{Code: "zh-Hant", Name: "Chinese Traditional"},
	{Code: "sn", Name: "chiShona"},
	{Code: "hr", Name: "Croatian"},
	{Code: "cs", Name: "Czech"},
	{Code: "da", Name: "Danish"},
	{Code: "prs", Name: "Dari"},
	{Code: "dv", Name: "Divehi"},
	{Code: "nl", Name: "Dutch"},
	{Code: "en", Name: "English"},
	{Code: "et", Name: "Estonian"},
	{Code: "fo", Name: "Faroese"},
	{Code: "fj", Name: "Fijian"},
	{Code: "fil", Name: "Filipino"},
	{Code: "fi", Name: "Finnish"},
	{Code: "fr", Name: "French"},
	{Code: "fr-ca", Name: "French (Canada)"},
	{Code: "gl", Name: "Galician"},
	{Code: "ka", Name: "Georgian"},
	{Code: "de", Name: "German"},
	{Code: "el", Name: "Greek"},
	{Code: "ht", Name: "Haitian Creole"},
	{Code: "ha", Name: "Hausa"},
	{Code: "he", Name: "Hebrew"},
	{Code: "mww", Name: "Hmong Daw (Latin)"},
	{Code: "hu", Name: "Hungarian"},
	{Code: "is", Name: "Icelandic"},
	{Code: "ig", Name: "Igbo"},
	{Code: "id", Name: "Indonesian"},
	{Code: "ikt", Name: "Inuinnaqtun"},
	{Code: "iu", Name: "Inuktitut"},
	{Code: "iu-Latn", Name: "Inuktitut (Latin)"},
	{Code: "ga", Name: "Irish"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "kk", Name: "Kazakh"},
	{Code: "km", Name: "Khmer"},
	{Code: "rw", Name: "Kinyarwanda"},
	{Code: "tlh-Latn", Name: "Klingon"},
	{Code: "tlh-Piqd", Name: "Klingon (plqaD)"},
	{Code: "ko", Name: "Korean"},
	{Code: "ku", Name: "Kurdish (Central)"},
	{Code: "kmr", Name: "Kurdish (Northern)"},
	{Code: "ky", Name: "Kyrgyz (Cyrillic)"},
	{Code: "lo", Name: "Lao"},
	{Code: "lv", Name: "Latvian"},
	{Code: "lt", Name: "Lithuanian"},
	{Code: "ln", Name: "Lingala"},
	{Code: "dsb", Name: "Lower Sorbian"},
	{Code: "lug", Name: "Luganda"},
	{Code: "mk", Name: "Macedonian"},
	{Code: "mg", Name: "Malagasy"},
	{Code: "ms", Name: "Malay (Latin)"},
	{Code: "mt", Name: "Maltese"},
	{Code: "mi", Name: "Maori"},
	{Code: "mn-Cyrl", Name: "Mongolian (Cyrillic)"},
	{Code: "mn-Mong", Name: "Mongolian (Traditional)"},
	{Code: "my", Name: "Myanmar"},
	{Code: "ne", Name: "Nepali"},
	{Code: "nb", Name: "Norwegian Bokmål"},
	{Code: "nya", Name: "Nyanja"},
	{Code: "ps", Name: "Pashto"},
	{Code: "fa", Name: "Persian"},
	{Code: "pl", Name: "Polish"},
	{Code: "pt", Name: "Portuguese (Brazil)"},
	{Code: "pt-pt", Name: "Portuguese (Portugal)"},
	{Code: "otq", Name: "Queretaro Otomi"},
	{Code: "ro", Name: "Romanian"},
	{Code: "run", Name: "Rundi"},
	{Code: "ru", Name: "Russian"},
	{Code: "sm", Name: "Samoan (Latin)"},
	{Code: "sr-Cyrl", Name: "Serbian (Cyrillic)"},
	{Code: "sr-Latn", Name: "Serbian (Latin)"},
	{Code: "st", Name: "Sesotho"},
	{Code: "nso", Name: "Sesotho sa Leboa"},
	{Code: "tn", Name: "Setswana"},
	{Code: "si", Name: "Sinhala"},
	{Code: "sk", Name: "Slovak"},
	{Code: "sl", Name: "Slovenian"},
	{Code: "so", Name: "Somali (Arabic)"},
	{Code: "es", Name: "Spanish"},
	{Code: "sw", Name: "Swahili (Latin)"},
	{Code: "sv", Name: "Swedish"},
	{Code: "ty", Name: "Tahitian"},
	{Code: "tt", Name: "Tatar (Latin)"},
	{Code: "th", Name: "Thai"},
	{Code: "bo", Name: "Tibetan"},
	{Code: "ti", Name: "Tigrinya"},
	{Code: "to", Name: "Tongan"},
	{Code: "tr", Name: "Turkish"},
	{Code: "tk", Name: "Turkmen (Latin)"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "hsb", Name: "Upper Sorbian"},
	{Code: "ug", Name: "Uyghur (Arabic)"},
	{Code: "uz", Name: "Uzbek (Latin)"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "cy", Name: "Welsh"},
	{Code: "xh", Name: "Xhosa"},
	{Code: "yo", Name: "Yoruba"},
	{Code: "yua", Name: "Yucatec Maya"},
	{Code: "zu", Name: "Zulu"},
}

var catalogByCode = func() map[string]Language {
	out := make(map[string]Language, len(catalog))
	for _, l := range catalog {
		out[strings.ToLower(l.Code)] = l
	}
	return out
}()

// Catalog returns a copy of the supported language list.
func Catalog() []Language {
	return append([]Language(nil), catalog...)
}

// Lookup finds a catalog language by code, case-insensitively.
// "auto" resolves to Auto.
func Lookup(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == Auto.Code {
		return Auto, true
	}
	l, ok := catalogByCode[code]
	return l, ok
}

// Resolve returns the catalog entry for code, or a bare Language carrying
// the code when the catalog has no entry.
func Resolve(code string) Language {
	if l, ok := Lookup(code); ok {
		return l
	}
	return Language{Code: strings.TrimSpace(code)}
}
