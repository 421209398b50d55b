package analyze

import (
	"sort"

	"servicing-insights-go/internal/types"
)

// AnalyzedCall pairs a raw record with its heuristic analysis.
type AnalyzedCall struct {
	Record   types.RawCallRecord
	Analysis types.TranscriptAnalysisResult
}

// AggregateAgentStats rolls analyzed calls up per agent for the
// performance view. Records without an agent ID are skipped. Output is
// sorted by agent ID so repeated runs produce identical reports.
func AggregateAgentStats(calls []AnalyzedCall) []types.AgentStats {
	byAgent := map[string]*types.AgentStats{}
	sentimentSums := map[string]float64{}
	scoreSums := map[string]float64{}
	durationSums := map[string]float64{}

	for _, c := range calls {
		id := c.Record.AgentID
		if id == "" {
			continue
		}
		st, ok := byAgent[id]
		if !ok {
			st = &types.AgentStats{AgentID: id, AgentName: c.Record.AgentName}
			byAgent[id] = st
		}
		st.TotalCalls++
		if c.Analysis.WasResolved {
			st.ResolvedCalls++
		}
		if c.Analysis.WasEscalated {
			st.EscalatedCalls++
		}
		sentimentSums[id] += c.Analysis.Sentiment.Score
		scoreSums[id] += float64(c.Analysis.CallScore)
		durationSums[id] += float64(c.Record.DurationSecs)
	}

	out := make([]types.AgentStats, 0, len(byAgent))
	for id, st := range byAgent {
		n := float64(st.TotalCalls)
		st.ResolutionRate = float64(st.ResolvedCalls) / n
		st.EscalationRate = float64(st.EscalatedCalls) / n
		st.MeanSentiment = sentimentSums[id] / n
		st.MeanCallScore = scoreSums[id] / n
		st.MeanDurationSecs = durationSums[id] / n
		out = append(out, *st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}
