// Package normalize canonicalizes raw conversation text so the rest of the
// engine only ever sees "agent:" / "customer:" speaker labels.
package normalize

import (
	"regexp"
	"strings"

	"servicing-insights-go/internal/types"
)

// Label variants seen in transcripts from different capture systems. The
// replacement regexes are case-insensitive and anchored to a word boundary
// so "caller:" inside an email address does not match.
var agentLabelRe = regexp.MustCompile(`(?i)\b(?:agent|rep|representative|advisor|support|csr)\s*:`)

var customerLabelRe = regexp.MustCompile(`(?i)\b(?:customer|caller|client|user|borrower|member)\s*:`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// canonical label followed by captured text, used by ParseConversation.
var turnRe = regexp.MustCompile(`(agent|customer):`)

// Normalize maps speaker-label variants onto canonical "agent:" and
// "customer:" labels and collapses runs of whitespace. Total function: an
// empty string comes back empty.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := agentLabelRe.ReplaceAllString(raw, "agent:")
	s = customerLabelRe.ReplaceAllString(s, "customer:")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseConversation splits normalized text into ordered messages. Text
// before the first label is unattributed preamble and is discarded. No
// labels at all means the transcript is unparseable and the result is
// empty; callers must not confuse that with an empty conversation that
// still carries content.
func ParseConversation(normalized string) []types.ConversationMessage {
	locs := turnRe.FindAllStringSubmatchIndex(normalized, -1)
	if len(locs) == 0 {
		return nil
	}

	msgs := make([]types.ConversationMessage, 0, len(locs))
	for i, loc := range locs {
		role := normalized[loc[2]:loc[3]]
		end := len(normalized)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := strings.TrimSpace(normalized[loc[1]:end])
		msgs = append(msgs, types.ConversationMessage{Role: role, Text: text})
	}
	return msgs
}

// CustomerText concatenates customer-attributed turns, used for
// customer-only sentiment.
func CustomerText(msgs []types.ConversationMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role != types.RoleCustomer {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Text)
	}
	return b.String()
}
