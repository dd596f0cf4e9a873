package speech

import "strings"

// hypothesis accumulates committed segments plus the current interim guess.
// Final segments cover disjoint stretches of audio, so each one is kept as spoken.
type hypothesis struct {
	committed []string
	interim   string
}

// apply folds one result in and returns the cumulative text.
func (h *hypothesis) apply(result Result) string {
	if result.Final {
		if segment := cleanSegment(result.Text); segment != "" {
			h.committed = append(h.committed, segment)
		}
		h.interim = ""
	} else {
		h.interim = cleanSegment(result.Text)
	}
	return h.text()
}

func (h *hypothesis) text() string {
	if h.interim == "" {
		return strings.Join(h.committed, " ")
	}
	return strings.Join(append(h.committed[:len(h.committed):len(h.committed)], h.interim), " ")
}

func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
