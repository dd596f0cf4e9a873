// Package config resolves, parses, validates, and defaults parley configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	// Greeting seeds the transcript; empty means the built-in greeting.
	Greeting   string
	Reply      ReplyConfig
	Generation GenerationConfig
	Speech     SpeechConfig
	Audio      AudioConfig
	Voice      VoiceConfig
	Indicator  IndicatorConfig
	Vocab      VocabConfig
	Debug      DebugConfig
}

// ReplyConfig controls how replies are presented.
type ReplyConfig struct {
	TypingDelayMS int
}

// TypingDelay is the pause between a successful generation and showing the reply.
func (c ReplyConfig) TypingDelay() time.Duration {
	return time.Duration(c.TypingDelayMS) * time.Millisecond
}

// GenerationConfig selects the Gemini backend.
type GenerationConfig struct {
	Model     string
	APIKeyEnv string
	BaseURL   string
	TimeoutMS int
}

// Timeout bounds one generation request.
func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// SpeechConfig controls voice input through Deepgram.
type SpeechConfig struct {
	Enable         bool
	Language       string
	Continuous     bool
	InterimResults bool
	APIKeyEnv      string
	BaseURL        string
	Model          string
	SmartFormat    bool
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// VoiceConfig controls spoken replies.
type VoiceConfig struct {
	Enable  bool
	Command CommandConfig
	// Stdin pipes the reply to the command instead of appending it as an argument.
	Stdin bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// IndicatorConfig controls audible cues.
type IndicatorConfig struct {
	SoundEnable    bool
	SoundStartFile string
	SoundStopFile  string
	SoundReplyFile string
	SoundErrorFile string
}

// VocabConfig lists phrase sets boosted during recognition.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group sharing a boost.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifacts.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse or validation message.
type Warning struct {
	Line    int
	Message string
}

// Keyword is one boosted recognition phrase.
type Keyword struct {
	Phrase string
	Boost  float64
}
