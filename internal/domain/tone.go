package domain

import "strings"

// Tone presets. ToneCustom takes its description from free text.
const (
	ToneFriendly     = "friendly"
	ToneProfessional = "professional"
	ToneWitty        = "witty"
	ToneSupportive   = "supportive"
	ToneCurious      = "curious"
	ToneConcise      = "concise"
	ToneCustom       = "custom"
)

// PresetTones lists the presets in display order.
var PresetTones = []string{ToneFriendly, ToneProfessional, ToneWitty, ToneSupportive, ToneCurious, ToneConcise}

// DefaultTone is used when a request names none.
const DefaultTone = ToneFriendly

var toneDescriptions = map[string]string{
	ToneFriendly:     "warm, casual and approachable, like talking to a friend",
	ToneProfessional: "polished, courteous and to the point",
	ToneWitty:        "clever and lightly humorous without being mean",
	ToneSupportive:   "empathetic and encouraging",
	ToneCurious:      "inquisitive, asking thoughtful follow-up questions",
	ToneConcise:      "brief and direct, one or two sentences",
}

// KnownTone reports whether tone is a preset or ToneCustom.
func KnownTone(tone string) bool {
	_, ok := toneDescriptions[tone]
	return ok || tone == ToneCustom
}

// ToneDescription returns the provider-facing description of tone. For
// ToneCustom the trimmed custom text is used, falling back to the default
// tone when it is blank.
func ToneDescription(tone, custom string) string {
	if tone == ToneCustom {
		if c := strings.TrimSpace(custom); c != "" {
			return c
		}
		return toneDescriptions[DefaultTone]
	}
	if d, ok := toneDescriptions[tone]; ok {
		return d
	}
	return toneDescriptions[DefaultTone]
}

// CacheTone is the tone component of a cache key. Custom tones are keyed by
// their text so two different custom descriptions do not share results.
func CacheTone(tone, custom string) string {
	if tone == ToneCustom {
		return ToneCustom + ":" + strings.ToLower(strings.TrimSpace(custom))
	}
	return tone
}
