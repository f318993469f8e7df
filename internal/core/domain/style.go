package domain

// Tone is the coarse register detected across a batch of outgoing emails.
type Tone string

// Detected tones.
const (
	ToneFormal         Tone = "formal"
	ToneConversational Tone = "conversational"
)

// String returns the string representation.
func (t Tone) String() string {
	return string(t)
}

// LengthBucket is the label for a mean body length in words.
type LengthBucket string

// Length buckets, ordered from shortest to longest.
const (
	LengthVeryShort LengthBucket = "very short (1-2 sentences)"
	LengthConcise   LengthBucket = "concise (3-5 sentences)"
	LengthModerate  LengthBucket = "moderate (1-2 paragraphs)"
	LengthDetailed  LengthBucket = "detailed (multiple paragraphs)"
)

// String returns the string representation.
func (b LengthBucket) String() string {
	return string(b)
}

// DefaultSignOff is reported when no closing phrase is detected.
const DefaultSignOff = "Best regards"

// MaxCommonPhrases is the number of recurring phrases kept in a profile.
const MaxCommonPhrases = 8

// StyleProfile is a heuristic summary of the user's writing style.
// It is recomputed wholesale on every ingestion event.
type StyleProfile struct {
	Tone          Tone         `json:"tone"`
	AvgLength     LengthBucket `json:"avg_length"`
	SignOff       string       `json:"sign_off"`
	CommonPhrases []string     `json:"common_phrases"`
	EmailCount    int          `json:"email_count"`
}
