package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeHindi   locale = "hi"
)

type messages struct {
	listening   string
	translating string
	errorText   string
	// fallback takes the substitute language name.
	fallback string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "hi") {
		return localeHindi
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeHindi:
		return messages{
			listening:   "सुन रहा हूँ…",
			translating: "अनुवाद हो रहा है…",
			errorText:   "अनुवाद विफल रहा",
			fallback:    "बेहतर परिणामों के लिए %s वाक् पहचान का उपयोग",
		}
	default:
		return messages{
			listening:   "Listening…",
			translating: "Translating…",
			errorText:   "Translation failed",
			fallback:    "Using %s speech recognition for better results",
		}
	}
}
