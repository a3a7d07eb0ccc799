package config

// DefaultPort is the proxy HTTP port when PORT is unset.
const DefaultPort = "5000"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		ProxyURL: "http://127.0.0.1:" + DefaultPort,
		Serve: ServeConfig{
			HTTPAddr: ":" + DefaultPort,
			GRPCAddr: "127.0.0.1:5001",
		},
		Languages: LanguagesConfig{Source: "en", Target: "hi"},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Recognition: RecognitionConfig{InterimThreshold: 5},
		Voice:       VoiceConfig{Gender: "female"},
		Output:      OutputConfig{Speak: true, Shortcut: "CTRL,V"},
		Indicator: IndicatorConfig{
			Enable:          true,
			Backend:         "hypr",
			DesktopAppName:  "yatra",
			SoundEnable:     true,
			ErrorTimeoutMS:  1600,
			NoticeTimeoutMS: 3000,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 500,
		},
	}
}
