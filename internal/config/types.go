// Package config resolves, parses, validates, and defaults yatra configuration.
package config

// Config is the fully materialized runtime configuration used by yatra.
type Config struct {
	ProxyURL    string
	Serve       ServeConfig
	Azure       AzureConfig
	Languages   LanguagesConfig
	Audio       AudioConfig
	Recognition RecognitionConfig
	Voice       VoiceConfig
	Output      OutputConfig
	Indicator   IndicatorConfig
	Clipboard   CommandConfig
	PasteCmd    CommandConfig
	Vocab       VocabConfig
	Debug       DebugConfig
}

// ServeConfig controls the proxy listeners started by `yatra serve`.
type ServeConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// AzureConfig holds cloud credentials. It is populated from the environment
// only and never read from the config file.
type AzureConfig struct {
	TranslatorKey      string
	TranslatorRegion   string
	TranslatorEndpoint string
	SpeechKey          string
	SpeechRegion       string
	SpeechEndpoint     string
}

// LanguagesConfig sets the initial conversation languages.
type LanguagesConfig struct {
	Source string
	Target string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// RecognitionConfig tunes how interim results are surfaced.
type RecognitionConfig struct {
	InterimThreshold int
}

// VoiceConfig selects the curated voice gender.
type VoiceConfig struct {
	Gender string
}

// OutputConfig controls what happens to a finished translation besides
// playback.
type OutputConfig struct {
	Copy     bool
	Paste    bool
	Shortcut string
	Speak    bool
}

// CueFiles optionally replaces the synthesized indicator cues with WAV
// files. Empty entries keep the built-in tones.
type CueFiles struct {
	Listening   string
	Translating string
	Translated  string
	Failed      string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable          bool
	Backend         string
	DesktopAppName  string
	SoundEnable     bool
	SoundCues       CueFiles
	ErrorTimeoutMS  int
	NoticeTimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig controls the phrase lists sent to speech recognition.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group, such as the stations on a route.
type VocabSet struct {
	Name    string
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableEventDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
