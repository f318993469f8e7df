package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleProfile_JSONFieldNames(t *testing.T) {
	profile := StyleProfile{
		Tone:          ToneFormal,
		AvgLength:     LengthConcise,
		SignOff:       "Cheers",
		CommonPhrases: []string{"let know"},
		EmailCount:    4,
	}

	data, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"tone": "formal",
		"avg_length": "concise (3-5 sentences)",
		"sign_off": "Cheers",
		"common_phrases": ["let know"],
		"email_count": 4
	}`, string(data))
}

func TestLengthBucket_Labels(t *testing.T) {
	assert.Equal(t, "very short (1-2 sentences)", LengthVeryShort.String())
	assert.Equal(t, "concise (3-5 sentences)", LengthConcise.String())
	assert.Equal(t, "moderate (1-2 paragraphs)", LengthModerate.String())
	assert.Equal(t, "detailed (multiple paragraphs)", LengthDetailed.String())
}

func TestTone_String(t *testing.T) {
	assert.Equal(t, "formal", ToneFormal.String())
	assert.Equal(t, "conversational", ToneConversational.String())
}
