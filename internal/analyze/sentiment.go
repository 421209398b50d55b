package analyze

import (
	"strings"

	"servicing-insights-go/internal/types"
)

// Keyword-density sentiment. Negative evidence is weighted heavier than
// positive: an angry borrower matters more than a polite sign-off.
const negativeWeight = 1.5

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

var positiveKeywords = []string{
	"thank you", "thanks", "great", "perfect", "appreciate", "wonderful",
	"excellent", "helpful", "resolved", "happy", "glad", "awesome",
	"no problem", "that works", "sounds good", "exactly what i needed",
}

var negativeKeywords = []string{
	"frustrated", "angry", "upset", "ridiculous", "unacceptable",
	"terrible", "horrible", "worst", "annoyed", "disappointed",
	"complaint", "useless", "waste of time", "fed up", "sick of",
	"never again", "not happy", "still waiting", "no one called",
}

// ScoreSentiment scores the whole text. Counts are raw substring
// occurrences; the density normalizer keeps long calls from drowning out
// short ones.
func ScoreSentiment(text string) types.SentimentResult {
	lower := strings.ToLower(text)

	pos := 0
	for _, kw := range positiveKeywords {
		pos += strings.Count(lower, kw)
	}
	neg := 0
	for _, kw := range negativeKeywords {
		neg += strings.Count(lower, kw)
	}

	words := len(strings.Fields(text))
	denom := float64(words) / 50.0
	if denom < 1 {
		denom = 1
	}

	score := (float64(pos) - negativeWeight*float64(neg)) / denom
	score = clamp(score, -1, 1)

	return types.SentimentResult{
		Score:         score,
		Label:         sentimentLabel(score, pos, neg),
		PositiveCount: pos,
		NegativeCount: neg,
	}
}

// ScoreCustomerSentiment scores customer-attributed text only. Downstream
// reporting has no "mixed" customer state, so mixed collapses to neutral.
func ScoreCustomerSentiment(customerText string) types.SentimentResult {
	res := ScoreSentiment(customerText)
	if res.Label == SentimentMixed {
		res.Label = SentimentNeutral
	}
	return res
}

func sentimentLabel(score float64, pos, neg int) string {
	switch {
	case score > 0.2:
		return SentimentPositive
	case score < -0.2:
		return SentimentNegative
	case pos > 0 && neg > 0:
		return SentimentMixed
	default:
		return SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
