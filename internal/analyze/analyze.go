// Package analyze derives a full heuristic analysis record from one
// conversation transcript. Everything here is a pure function of the
// input text: no I/O, no shared mutable state, safe to call from any
// number of workers concurrently.
package analyze

import (
	"servicing-insights-go/internal/categorize"
	"servicing-insights-go/internal/normalize"
	"servicing-insights-go/internal/types"
)

type Analyzer struct {
	categorizer *categorize.Categorizer
}

func New(c *categorize.Categorizer) *Analyzer {
	return &Analyzer{categorizer: c}
}

func NewDefault() *Analyzer {
	return New(categorize.NewDefault())
}

// Analyze runs the whole heuristic stack over a raw transcript. Malformed
// input never errors; it degrades to default/low-confidence output, since
// transcript text is inherently noisy and the dashboard always needs some
// result. durationSeconds of zero means unknown.
func (a *Analyzer) Analyze(transcript string, durationSeconds int) types.TranscriptAnalysisResult {
	normalized := normalize.Normalize(transcript)
	msgs := normalize.ParseConversation(normalized)

	agentTurns, customerTurns := countTurns(msgs)

	resolution := detectResolution(normalized)

	sentiment := ScoreSentiment(normalized)
	customerSentiment := ScoreCustomerSentiment(normalize.CustomerText(msgs))

	qualityScore, qualityLabel := AssessTranscriptQuality(normalized)
	primaryTopic, topics := DetectTopics(normalized)
	entities := ExtractEntities(transcript)
	opportunities, automation := DetectSelfService(normalized)
	callScore := CalculateCallScore(durationSeconds, len(msgs), resolution, sentiment)

	return types.TranscriptAnalysisResult{
		AgentTurns:    agentTurns,
		CustomerTurns: customerTurns,
		TotalTurns:    len(msgs),

		ResolutionStatus: resolution.Status,
		WasResolved:      resolution.WasResolved,
		WasEscalated:     resolution.WasEscalated,
		EscalationReason: resolution.EscalationReason,

		Sentiment:         sentiment,
		CustomerSentiment: customerSentiment,

		QualityScore: qualityScore,
		QualityLabel: qualityLabel,
		CallScore:    callScore,

		PrimaryTopic: primaryTopic,
		Topics:       topics,

		Entities: entities,

		SelfServiceOpportunities: opportunities,
		AutomationPotential:      automation,

		Categorization: a.categorizer.Categorize(normalized, ""),
		CustomerIntent: a.categorizer.DetectCustomerIntent(normalized),
	}
}

func countTurns(msgs []types.ConversationMessage) (agent, customer int) {
	for _, m := range msgs {
		switch m.Role {
		case types.RoleAgent:
			agent++
		case types.RoleCustomer:
			customer++
		}
	}
	return agent, customer
}
