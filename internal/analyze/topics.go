package analyze

import (
	"sort"
	"strings"

	"servicing-insights-go/internal/types"
)

// Topic table is a slice, not a map: iteration order is the tie-break for
// equal hit counts and must stay deterministic.
var topicTable = []struct {
	topic    string
	keywords []string
}{
	{"payments", []string{"payment", "autopay", "due date", "late fee", "pay my"}},
	{"escrow", []string{"escrow", "shortage", "analysis"}},
	{"insurance", []string{"insurance", "policy", "hazard", "coverage"}},
	{"taxes", []string{"property tax", "tax bill", "1098", "tax form"}},
	{"online_account", []string{"website", "login", "log in", "password", "portal", "app"}},
	{"payoff", []string{"payoff", "pay off", "lien release"}},
	{"loan_transfer", []string{"transfer", "new servicer", "sold my loan"}},
	{"hardship", []string{"hardship", "forbearance", "modification", "behind on"}},
	{"refinance", []string{"refinance", "refi", "lower rate"}},
	{"documents", []string{"statement", "document", "letter", "form"}},
	{"credit_reporting", []string{"credit report", "credit bureau", "credit score"}},
}

const GeneralTopic = "general"

// DetectTopics counts keyword hits per topic and returns every topic with
// at least one hit, most hits first. Primary topic is the head of that
// list, or "general" when nothing hit.
func DetectTopics(text string) (string, []types.TopicScore) {
	lower := strings.ToLower(text)

	var scores []types.TopicScore
	for _, entry := range topicTable {
		hits := 0
		for _, kw := range entry.keywords {
			hits += strings.Count(lower, kw)
		}
		if hits > 0 {
			scores = append(scores, types.TopicScore{Topic: entry.topic, Hits: hits})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Hits > scores[j].Hits })

	if len(scores) == 0 {
		return GeneralTopic, nil
	}
	return scores[0].Topic, scores
}
