package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parse decodes JSONC content over base and validates the result. Empty content yields base.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg := base
	if strings.TrimSpace(content) != "" {
		normalized, err := normalizeJSONC(content)
		if err != nil {
			return Config{}, nil, err
		}

		var payload filePayload
		if err := decodeStrict(normalized, &payload); err != nil {
			return Config{}, nil, err
		}
		if err := payload.applyTo(&cfg); err != nil {
			return Config{}, nil, err
		}
	}

	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, validated, nil
}

type filePayload struct {
	Greeting   *string            `json:"greeting"`
	Reply      *replyPayload      `json:"reply"`
	Generation *generationPayload `json:"generation"`
	Speech     *speechPayload     `json:"speech"`
	Audio      *audioPayload      `json:"audio"`
	Voice      *voicePayload      `json:"voice"`
	Indicator  *indicatorPayload  `json:"indicator"`
	Vocab      *vocabPayload      `json:"vocab"`
	Debug      *debugPayload      `json:"debug"`
}

type replyPayload struct {
	TypingDelayMS *int `json:"typing_delay_ms"`
}

type generationPayload struct {
	Model     *string `json:"model"`
	APIKeyEnv *string `json:"api_key_env"`
	BaseURL   *string `json:"base_url"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type speechPayload struct {
	Enable         *bool   `json:"enable"`
	Language       *string `json:"language"`
	Continuous     *bool   `json:"continuous"`
	InterimResults *bool   `json:"interim_results"`
	APIKeyEnv      *string `json:"api_key_env"`
	BaseURL        *string `json:"base_url"`
	Model          *string `json:"model"`
	SmartFormat    *bool   `json:"smart_format"`
}

type audioPayload struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type voicePayload struct {
	Enable  *bool   `json:"enable"`
	Command *string `json:"command"`
	Stdin   *bool   `json:"stdin"`
}

type indicatorPayload struct {
	SoundEnable    *bool   `json:"sound_enable"`
	SoundStartFile *string `json:"sound_start_file"`
	SoundStopFile  *string `json:"sound_stop_file"`
	SoundReplyFile *string `json:"sound_reply_file"`
	SoundErrorFile *string `json:"sound_error_file"`
}

type vocabPayload struct {
	Global     *stringList                `json:"global"`
	MaxPhrases *int                       `json:"max_phrases"`
	Sets       map[string]vocabSetPayload `json:"sets"`
}

type vocabSetPayload struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

type debugPayload struct {
	AudioDump *bool `json:"audio_dump"`
}

// stringList accepts either a JSON string array or one comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("expected string array or comma-delimited string")
	}
	*l = nil
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func (p filePayload) applyTo(cfg *Config) error {
	setString(&cfg.Greeting, p.Greeting)

	if p.Reply != nil {
		setInt(&cfg.Reply.TypingDelayMS, p.Reply.TypingDelayMS)
	}

	if g := p.Generation; g != nil {
		setString(&cfg.Generation.Model, g.Model)
		setString(&cfg.Generation.APIKeyEnv, g.APIKeyEnv)
		setString(&cfg.Generation.BaseURL, g.BaseURL)
		setInt(&cfg.Generation.TimeoutMS, g.TimeoutMS)
	}

	if s := p.Speech; s != nil {
		setBool(&cfg.Speech.Enable, s.Enable)
		setString(&cfg.Speech.Language, s.Language)
		setBool(&cfg.Speech.Continuous, s.Continuous)
		setBool(&cfg.Speech.InterimResults, s.InterimResults)
		setString(&cfg.Speech.APIKeyEnv, s.APIKeyEnv)
		setString(&cfg.Speech.BaseURL, s.BaseURL)
		setString(&cfg.Speech.Model, s.Model)
		setBool(&cfg.Speech.SmartFormat, s.SmartFormat)
	}

	if a := p.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if v := p.Voice; v != nil {
		setBool(&cfg.Voice.Enable, v.Enable)
		setBool(&cfg.Voice.Stdin, v.Stdin)
		if v.Command != nil {
			argv, err := parseArgv(*v.Command)
			if err != nil {
				return fmt.Errorf("invalid voice.command: %w", err)
			}
			cfg.Voice.Command = CommandConfig{Raw: *v.Command, Argv: argv}
		}
	}

	if i := p.Indicator; i != nil {
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundReplyFile, i.SoundReplyFile)
		setString(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
	}

	if v := p.Vocab; v != nil {
		if v.Global != nil {
			cfg.Vocab.GlobalSets = nil
			for _, name := range *v.Global {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
				}
			}
		}
		setInt(&cfg.Vocab.MaxPhrases, v.MaxPhrases)
		if len(v.Sets) > 0 {
			sets := make(map[string]VocabSet, len(cfg.Vocab.Sets)+len(v.Sets))
			for name, set := range cfg.Vocab.Sets {
				sets[name] = set
			}
			for name, set := range v.Sets {
				name = strings.TrimSpace(name)
				if name == "" {
					return fmt.Errorf("vocab.sets contains an empty set name")
				}
				entry := VocabSet{Name: name, Phrases: append([]string(nil), set.Phrases...)}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				sets[name] = entry
			}
			cfg.Vocab.Sets = sets
		}
	}

	if p.Debug != nil {
		setBool(&cfg.Debug.EnableAudioDump, p.Debug.AudioDump)
	}

	return nil
}
