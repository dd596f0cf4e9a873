package config

// Default returns the configuration used when no file is present.
func Default() Config {
	voice := "spd-say --wait"

	return Config{
		Reply: ReplyConfig{TypingDelayMS: 1000},
		Generation: GenerationConfig{
			Model:     "gemini-1.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
			TimeoutMS: 30000,
		},
		Speech: SpeechConfig{
			Enable:         true,
			Language:       "en-US",
			Continuous:     false,
			InterimResults: true,
			APIKeyEnv:      "DEEPGRAM_API_KEY",
			BaseURL:        "https://api.deepgram.com/v1",
			Model:          "nova-2",
			SmartFormat:    true,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Voice: VoiceConfig{
			Enable:  true,
			Command: CommandConfig{Raw: voice, Argv: mustParseArgv(voice)},
		},
		Indicator: IndicatorConfig{SoundEnable: true},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 100,
		},
	}
}
