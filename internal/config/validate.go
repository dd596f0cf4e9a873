package config

import (
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	var warnings []Warning

	if cfg.Reply.TypingDelayMS < 0 {
		return nil, fmt.Errorf("reply.typing_delay_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Generation.Model) == "" {
		return nil, fmt.Errorf("generation.model must not be empty")
	}
	if err := validateEnvName("generation.api_key_env", cfg.Generation.APIKeyEnv); err != nil {
		return nil, err
	}
	if cfg.Generation.TimeoutMS <= 0 {
		return nil, fmt.Errorf("generation.timeout_ms must be > 0")
	}
	if err := validateBaseURL("generation.base_url", cfg.Generation.BaseURL, "http", "https"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Speech.Language) == "" {
		return nil, fmt.Errorf("speech.language must not be empty")
	}
	if strings.TrimSpace(cfg.Speech.Model) == "" {
		return nil, fmt.Errorf("speech.model must not be empty")
	}
	if err := validateEnvName("speech.api_key_env", cfg.Speech.APIKeyEnv); err != nil {
		return nil, err
	}
	if err := validateBaseURL("speech.base_url", cfg.Speech.BaseURL, "http", "https", "ws", "wss"); err != nil {
		return nil, err
	}
	if cfg.Speech.Continuous && !cfg.Speech.InterimResults {
		warnings = append(warnings, Warning{Message: "speech.continuous without speech.interim_results only updates the draft on final results"})
	}

	if cfg.Voice.Enable && len(cfg.Voice.Command.Argv) == 0 {
		return nil, fmt.Errorf("voice.command must not be empty when voice.enable=true")
	}

	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	_, vocabWarnings, err := BuildKeywords(cfg)
	if err != nil {
		return nil, err
	}
	return append(warnings, vocabWarnings...), nil
}

func validateEnvName(key string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if !envNamePattern.MatchString(value) {
		return fmt.Errorf("%s %q is not a valid environment variable name", key, value)
	}
	return nil
}

// validateBaseURL accepts an empty value or an absolute URL with one of the given schemes.
func validateBaseURL(key string, raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if !slices.Contains(schemes, parsed.Scheme) || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute %s URL", key, strings.Join(schemes, "/"))
	}
	return nil
}

// BuildKeywords merges the enabled vocab sets into a sorted keyword list. A phrase present in
// several sets keeps the highest boost.
func BuildKeywords(cfg Config) ([]Keyword, []Warning, error) {
	if len(cfg.Vocab.GlobalSets) == 0 {
		return nil, nil, nil
	}

	var warnings []Warning
	boosts := make(map[string]float64)
	origin := make(map[string]string)

	for _, name := range cfg.Vocab.GlobalSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			previous, seen := boosts[phrase]
			if seen && set.Boost <= previous {
				continue
			}
			if seen {
				warnings = append(warnings, Warning{Message: fmt.Sprintf(
					"phrase %q present in %q and %q; using higher boost %.2f", phrase, origin[phrase], name, set.Boost)})
			}
			boosts[phrase] = set.Boost
			origin[phrase] = name
		}
	}

	if len(boosts) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(boosts), cfg.Vocab.MaxPhrases)
	}

	keywords := make([]Keyword, 0, len(boosts))
	for phrase, boost := range boosts {
		keywords = append(keywords, Keyword{Phrase: phrase, Boost: boost})
	}
	slices.SortFunc(keywords, func(a, b Keyword) int {
		return cmp.Compare(a.Phrase, b.Phrase)
	})
	return keywords, warnings, nil
}
