package llm

import (
	"fmt"
	"strings"

	"servicing-insights-go/internal/types"
)

// The model must return only JSON matching this schema; the client strips
// fences and surrounding prose defensively anyway.
const analysisPromptHeader = `You are a mortgage-servicing call analysis engine.

Analyze the conversation below and return ONLY a JSON object with exactly
these fields:
{
  "agentSentiment": "positive|neutral|negative",
  "agentSentimentScore": 0.0,
  "agentSentimentReason": "",
  "customerSentiment": "positive|neutral|negative",
  "customerSentimentScore": 0.0,
  "customerSentimentReason": "",
  "aiDiscoveredTopic": "",
  "aiDiscoveredSubcategory": "",
  "topicConfidence": 0.0,
  "keyIssues": [],
  "resolution": "",
  "tags": []
}

Rules:
- Scores are in [0,1].
- Ground every field in the conversation text; do not invent details.
- If information is missing, use empty strings / empty arrays / 0.
- DO NOT wrap the JSON in backticks or add commentary.

CONVERSATION:
%s
`

func buildPrompt(conversation []types.ConversationMessage) string {
	var b strings.Builder
	for _, m := range conversation {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return fmt.Sprintf(analysisPromptHeader, b.String())
}
