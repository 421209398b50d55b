package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeFirstPaymentScenario(t *testing.T) {
	c := NewDefault()
	res := c.Categorize("I cannot make my first payment, where do I send it?", "Payment Issue")

	assert.Equal(t, "Payment Issues", res.Category)
	assert.Equal(t, "First Payment Assistance", res.Subcategory)
	assert.GreaterOrEqual(t, res.Confidence, 0.6)
	assert.Contains(t, res.MatchedKeywords, "first payment")
	assert.Contains(t, res.MatchedKeywords, "where do i send")
}

func TestCategorizeEmptyInputReturnsDefault(t *testing.T) {
	c := NewDefault()
	res := c.Categorize("", "")

	assert.Equal(t, DefaultCategory, res.Category)
	assert.Equal(t, DefaultSubcategory, res.Subcategory)
	assert.Equal(t, DefaultConfidence, res.Confidence)
	assert.Empty(t, res.AllIssues)
}

func TestCategorizeIsDeterministic(t *testing.T) {
	c := NewDefault()
	text := "my escrow shortage is huge and my payment went up, also the website login fails"
	first := c.Categorize(text, "")
	for i := 0; i < 10; i++ {
		again := c.Categorize(text, "")
		assert.Equal(t, first, again)
	}
}

func TestCategorizeConfidenceBounds(t *testing.T) {
	c := NewDefault()
	inputs := []string{
		"",
		"first payment where do i send autopay late fee payoff payment",
		"escrow shortage insurance property tax analysis",
		"random text about nothing in particular",
		"supervisor manager complaint frustrated unacceptable",
	}
	for _, in := range inputs {
		res := c.Categorize(in, "")
		assert.GreaterOrEqual(t, res.Confidence, 0.0, "input %q", in)
		assert.LessOrEqual(t, res.Confidence, 1.0, "input %q", in)
	}
}

// A subcategory keyword without any general keyword present must never
// classify into that category.
func TestCategorySkippedWithoutGeneralKeyword(t *testing.T) {
	defs := []CategoryDefinition{
		{
			Name:            "Widgets",
			GeneralKeywords: []string{"widget"},
			Subcategories: []Subcategory{
				{Name: "Broken Widget", Weight: 80, Keywords: []string{"sprocket"}},
			},
		},
	}
	c := New(defs)

	res := c.Categorize("the sprocket is loose", "")
	assert.Equal(t, DefaultCategory, res.Category)
	assert.Equal(t, DefaultSubcategory, res.Subcategory)
	assert.Equal(t, DefaultConfidence, res.Confidence)
}

// Within a category, the highest-weight matching subcategory wins even
// when a lower-weight one also matches.
func TestHighestWeightSubcategoryWins(t *testing.T) {
	defs := []CategoryDefinition{
		{
			Name:            "Payments",
			GeneralKeywords: []string{"payment"},
			Subcategories: []Subcategory{
				{Name: "Low", Weight: 10, Keywords: []string{"payment late"}},
				{Name: "High", Weight: 90, Keywords: []string{"payment late"}},
			},
		},
	}
	c := New(defs)

	res := c.Categorize("my payment late again", "")
	assert.Equal(t, "High", res.Subcategory)
}

// Equal confidence across categories keeps the first in declaration
// order.
func TestTieBreakByDeclarationOrder(t *testing.T) {
	defs := []CategoryDefinition{
		{
			Name:            "Alpha",
			GeneralKeywords: []string{"shared"},
			Subcategories:   []Subcategory{{Name: "A", Weight: 50, Keywords: []string{"shared"}}},
		},
		{
			Name:            "Beta",
			GeneralKeywords: []string{"shared"},
			Subcategories:   []Subcategory{{Name: "B", Weight: 50, Keywords: []string{"shared"}}},
		},
	}
	c := New(defs)

	res := c.Categorize("this mentions shared once", "")
	assert.Equal(t, "Alpha", res.Category)
}

func TestAllIssuesCollectsEveryMatchedCategory(t *testing.T) {
	c := NewDefault()
	res := c.Categorize("my payment is late and my escrow shortage doubled", "")
	assert.Contains(t, res.AllIssues, "Payment Issues")
	assert.Contains(t, res.AllIssues, "Escrow")
}

func TestDetectAllIssuesFallback(t *testing.T) {
	c := NewDefault()
	issues := c.DetectAllIssues("hello, just checking in about nothing")
	require.Equal(t, []string{GeneralInquiry}, issues)
}

func TestDetectAllIssuesMultiple(t *testing.T) {
	c := NewDefault()
	issues := c.DetectAllIssues("payment trouble plus an escrow question and a login problem")
	assert.Contains(t, issues, "Payment Issues")
	assert.Contains(t, issues, "Escrow")
	assert.Contains(t, issues, "Account Access")
}

func TestDetectCustomerIntentFirstStatementOnly(t *testing.T) {
	c := NewDefault()

	// First customer statement is about making a payment; the later
	// escalation talk must not override it.
	text := "agent: how can I help? customer: I want to make a payment. agent: sure. customer: also get me a supervisor"
	assert.Equal(t, "make_payment", c.DetectCustomerIntent(text))
}

func TestDetectCustomerIntentPriorityOrder(t *testing.T) {
	c := NewDefault()
	cases := map[string]string{
		"customer: I need to pay my mortgage today":           "make_payment",
		"customer: I can't log in to the portal":              "access_account",
		"customer: requesting a payoff quote please":          "request_payoff",
		"customer: why did my payment amount change?":         "understand_issue",
		"customer: I never received my statement":             "missing_information",
		"customer: let me talk to your manager, a complaint":  "escalate_issue",
		"customer: what's the remaining balance on the loan?": "check_balance",
		"customer: when is my next bill due date?":            "check_due_date",
		"customer: hello there":                               DefaultIntent,
	}
	for text, want := range cases {
		assert.Equal(t, want, c.DetectCustomerIntent(text), "text %q", text)
	}
}

func TestDetectCustomerIntentNoCustomerTurn(t *testing.T) {
	c := NewDefault()
	assert.Equal(t, DefaultIntent, c.DetectCustomerIntent("agent: hello? anyone there?"))
}
