package lang

import "strings"

// Gender selects between curated voices of one language.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

type voicePair struct {
	female string
	male   string
}

var curatedVoices = map[string]voicePair{
	"hi": {female: "hi-IN-SwaraNeural", male: "hi-IN-MadhurNeural"},
	"bn": {female: "bn-IN-TanishaaNeural", male: "bn-IN-BashkarNeural"},
	"as": {female: "as-IN-YashicaNeural", male: "as-IN-PriyomNeural"},
	"gu": {female: "gu-IN-DhwaniNeural", male: "gu-IN-NiranjanNeural"},
	"kn": {female: "kn-IN-SapnaNeural", male: "kn-IN-GaganNeural"},
	"ml": {female: "ml-IN-SobhanaNeural", male: "ml-IN-MidhunNeural"},
	"mr": {female: "mr-IN-AarohiNeural", male: "mr-IN-ManoharNeural"},
	"or": {female: "or-IN-SubhasiniNeural", male: "or-IN-SukantNeural"},
	"pa": {female: "pa-IN-VaaniNeural", male: "pa-IN-OjasNeural"},
	"ta": {female: "ta-IN-PallaviNeural", male: "ta-IN-ValluvarNeural"},
	"te": {female: "te-IN-ShrutiNeural", male: "te-IN-MohanNeural"},
	"ur": {female: "ur-IN-GulNeural", male: "ur-IN-SalmanNeural"},
}

// VoiceName returns the curated neural voice for code's base language.
// The female voice is returned for unknown genders. ok is false when the
// language has no curated voice and the live catalog must be queried.
func VoiceName(code string, gender Gender) (string, bool) {
	pair, ok := curatedVoices[BaseCode(code)]
	if !ok {
		return "", false
	}
	if gender == GenderMale && pair.male != "" {
		return pair.male, true
	}
	return pair.female, true
}

// HasCuratedVoice reports whether VoiceName resolves for code.
func HasCuratedVoice(code string) bool {
	_, ok := curatedVoices[BaseCode(code)]
	return ok
}

// Voice is one entry of the synthesis service's live voice catalog.
type Voice struct {
	Name        string `json:"Name,omitempty"`
	ShortName   string `json:"ShortName"`
	DisplayName string `json:"DisplayName,omitempty"`
	LocalName   string `json:"LocalName,omitempty"`
	Gender      string `json:"Gender,omitempty"`
	Locale      string `json:"Locale"`
	VoiceType   string `json:"VoiceType,omitempty"`
}

// Neural reports whether v is a neural voice.
func (v Voice) Neural() bool {
	return strings.EqualFold(v.VoiceType, "Neural") || strings.HasSuffix(v.ShortName, "Neural")
}

// VoiceLocale returns the locale prefix of a voice short name
// ("hi-IN-SwaraNeural" -> "hi-IN").
func VoiceLocale(name string) string {
	parts := strings.SplitN(strings.TrimSpace(name), "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}
