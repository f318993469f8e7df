package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/mailmind/internal/core/domain"
)

// signOffRule maps a closing-phrase pattern to the label reported in a profile.
type signOffRule struct {
	pattern *regexp.Regexp
	label   string
}

// newSignOffRule matches phrase case-insensitively when followed by a comma
// or whitespace.
func newSignOffRule(phrase string) signOffRule {
	return signOffRule{
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase) + `[,\s\x{0B}\x{1C}-\x{1F}\x{85}\p{Z}]`),
		label:   phrase,
	}
}

// signOffRules is ordered: when two rules match at the same offset the
// earlier one wins.
var signOffRules = []signOffRule{
	newSignOffRule("Best regards"),
	newSignOffRule("Kind regards"),
	newSignOffRule("Thanks"),
	newSignOffRule("Thank you"),
	newSignOffRule("Cheers"),
	newSignOffRule("Regards"),
	newSignOffRule("Sincerely"),
	newSignOffRule("Talk soon"),
	newSignOffRule("Speak soon"),
	newSignOffRule("All the best"),
}

// Tone markers, matched as lower-case substrings of the lower-cased body.
var (
	formalMarkers = []string{"please", "kindly", "dear", "hereby", "enclosed"}
	casualMarkers = []string{"hey", "hi", "thanks!", "yeah", "sure", "cool"}
)

// lengthRule assigns bucket to mean word counts below limit.
type lengthRule struct {
	limit  float64
	bucket domain.LengthBucket
}

// lengthRules is ordered by limit; anything past the last rule is detailed.
var lengthRules = []lengthRule{
	{limit: 50, bucket: domain.LengthVeryShort},
	{limit: 120, bucket: domain.LengthConcise},
	{limit: 300, bucket: domain.LengthModerate},
}

// Common phrase extraction parameters.
const (
	phraseSampleSize   = 50
	phraseMinTokenLen  = 3
	phraseMinCount     = 2
	phraseCandidateCap = 20
)

// detectSignOff returns the label of the leftmost closing phrase in body.
func detectSignOff(body string) (string, bool) {
	best := -1
	label := ""
	for _, rule := range signOffRules {
		loc := rule.pattern.FindStringIndex(body)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			label = rule.label
		}
	}
	return label, best >= 0
}

// dominantSignOff tallies the sign-off of every body by rule label, so
// "thanks," and "Thanks," count together. The most frequent label wins;
// ties go to the label seen first.
func dominantSignOff(bodies []string) string {
	var order []string
	counts := make(map[string]int)
	for _, body := range bodies {
		label, ok := detectSignOff(body)
		if !ok {
			continue
		}
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	winner := domain.DefaultSignOff
	top := 0
	for _, label := range order {
		if counts[label] > top {
			winner = label
			top = counts[label]
		}
	}
	return winner
}

// markerScore counts, per body, each marker that occurs in it.
func markerScore(bodies []string, markers []string) int {
	score := 0
	for _, body := range bodies {
		lower := strings.ToLower(body)
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				score++
			}
		}
	}
	return score
}

// detectTone is formal only when formal markers strictly outnumber casual ones.
func detectTone(bodies []string) domain.Tone {
	if markerScore(bodies, formalMarkers) > markerScore(bodies, casualMarkers) {
		return domain.ToneFormal
	}
	return domain.ToneConversational
}

// lengthBucket maps the mean whitespace-separated word count to a bucket.
func lengthBucket(bodies []string) domain.LengthBucket {
	if len(bodies) == 0 {
		return domain.LengthVeryShort
	}
	words := 0
	for _, body := range bodies {
		words += len(strings.FieldsFunc(body, isWordSeparator))
	}
	mean := float64(words) / float64(len(bodies))

	for _, rule := range lengthRules {
		if mean < rule.limit {
			return rule.bucket
		}
	}
	return domain.LengthDetailed
}

// isWordSeparator extends unicode.IsSpace with the ASCII information
// separators U+001C to U+001F.
func isWordSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// commonPhrases returns recurring word pairs from the first bodies, most
// frequent first, ties in order of first appearance.
func commonPhrases(bodies []string) []string {
	if len(bodies) > phraseSampleSize {
		bodies = bodies[:phraseSampleSize]
	}
	tokens := phraseTokens(strings.ToLower(strings.Join(bodies, " ")))
	if len(tokens) < 2 {
		return []string{}
	}

	type phraseCount struct {
		phrase string
		count  int
		first  int
	}
	index := make(map[string]int)
	var counted []phraseCount
	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		if at, ok := index[bigram]; ok {
			counted[at].count++
			continue
		}
		index[bigram] = len(counted)
		counted = append(counted, phraseCount{phrase: bigram, count: 1, first: i})
	}

	sort.SliceStable(counted, func(a, b int) bool {
		return counted[a].count > counted[b].count
	})
	if len(counted) > phraseCandidateCap {
		counted = counted[:phraseCandidateCap]
	}

	phrases := make([]string, 0, domain.MaxCommonPhrases)
	for _, pc := range counted {
		if pc.count < phraseMinCount || len(phrases) == domain.MaxCommonPhrases {
			break
		}
		phrases = append(phrases, pc.phrase)
	}
	return phrases
}

// phraseTokens returns the words made only of a-z with at least
// phraseMinTokenLen letters. A word is a maximal run of letters, numbers
// and underscores, so "abc1" and "abc²" yield nothing.
func phraseTokens(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_')
	})

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) >= phraseMinTokenLen && isLowerASCII(w) {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func isLowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
