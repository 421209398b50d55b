package analyze

import (
	"strings"
	"unicode"

	"servicing-insights-go/internal/types"
)

const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// AssessTranscriptQuality measures capture fidelity of the transcript
// itself, not how the call went. Starts at 100; deductions stack
// independently and the score never drops below zero.
func AssessTranscriptQuality(text string) (int, string) {
	score := 100

	words := strings.Fields(text)
	if len(words) < 10 {
		score -= 40
	}
	if len(words) < 50 {
		score -= 20
	}

	lower := strings.ToLower(text)
	if !strings.Contains(lower, "agent:") && !strings.Contains(lower, "customer:") {
		score -= 30
	}

	if len(words) > 0 {
		totalLen := 0
		for _, w := range words {
			totalLen += len(w)
		}
		avg := float64(totalLen) / float64(len(words))
		if avg < 2 {
			// gibberish signal
			score -= 25
		}
		if avg > 15 {
			// encoding-corruption signal
			score -= 15
		}
	}

	if specialCharRatio(text) > 0.10 {
		score -= 15
	}

	if score < 0 {
		score = 0
	}
	return score, qualityLabel(score)
}

func qualityLabel(score int) string {
	switch {
	case score >= 80:
		return QualityHigh
	case score >= 50:
		return QualityMedium
	default:
		return QualityLow
	}
}

func specialCharRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	special := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '.', ',', '!', '?', '\'', ':', ';', '-', '$':
			continue
		}
		special++
	}
	return float64(special) / float64(total)
}

// CalculateCallScore is a separate 0-100 signal about the call itself:
// how long it ran, how balanced the exchange was, how it ended. Duration
// zero means unknown and contributes nothing.
func CalculateCallScore(durationSeconds, totalTurns int, resolution resolutionOutcome, sentiment types.SentimentResult) int {
	score := 50

	if durationSeconds > 0 {
		mins := float64(durationSeconds) / 60.0
		switch {
		case mins >= 3 && mins <= 10:
			score += 20
		case mins >= 2 && mins <= 15:
			score += 10
		case mins < 1:
			score -= 20
		case mins > 30:
			score -= 10
		}
	}

	switch {
	case totalTurns >= 8 && totalTurns <= 30:
		score += 15
	case totalTurns >= 4 && totalTurns <= 40:
		score += 5
	case totalTurns < 4:
		score -= 10
	}

	switch resolution.Status {
	case types.ResolutionResolved:
		score += 20
	case types.ResolutionEscalated:
		score -= 15
	case types.ResolutionFollowupRequired:
		score -= 5
	}

	switch sentiment.Label {
	case SentimentPositive:
		score += 15
	case SentimentNegative:
		score -= 20
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
