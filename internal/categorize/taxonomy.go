package categorize

// Subcategory is a fine-grained bucket inside a category. Higher weight is
// evaluated first and wins over lower-weight siblings.
type Subcategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Weight   int      `yaml:"weight"`
}

// CategoryDefinition is one coarse bucket of the two-level taxonomy. A
// category is only considered when at least one general keyword appears in
// the input; this keeps subcategory keywords from colliding across
// unrelated categories ("transfer" means something different under "Loan
// Transfer" than under "Documentation").
type CategoryDefinition struct {
	Name            string        `yaml:"name"`
	GeneralKeywords []string      `yaml:"general_keywords"`
	Subcategories   []Subcategory `yaml:"subcategories"`
}

// DefaultTaxonomy is the compiled-in mortgage-servicing taxonomy. The
// declaration order is the documented tie-break when two categories score
// the same confidence.
func DefaultTaxonomy() []CategoryDefinition {
	return []CategoryDefinition{
		{
			Name:            "Payment Issues",
			GeneralKeywords: []string{"payment", "pay ", "paid", "autopay", "ach"},
			Subcategories: []Subcategory{
				{Name: "First Payment Assistance", Weight: 90, Keywords: []string{"first payment", "where do i send", "first bill", "welcome letter"}},
				{Name: "Payment Not Applied", Weight: 80, Keywords: []string{"payment not applied", "didn't post", "not posted", "missing payment", "never received my payment"}},
				{Name: "Autopay Setup", Weight: 70, Keywords: []string{"autopay", "automatic payment", "recurring payment", "draft my account"}},
				{Name: "Late Fee Dispute", Weight: 60, Keywords: []string{"late fee", "late charge", "waive the fee", "charged me late"}},
				{Name: "Payoff Request", Weight: 50, Keywords: []string{"payoff", "pay off my loan", "payoff quote", "payoff statement"}},
			},
		},
		{
			Name:            "Escrow",
			GeneralKeywords: []string{"escrow", "property tax", "insurance"},
			Subcategories: []Subcategory{
				{Name: "Escrow Shortage", Weight: 80, Keywords: []string{"escrow shortage", "shortage", "escrow went up"}},
				{Name: "Insurance Update", Weight: 70, Keywords: []string{"hazard insurance", "insurance policy", "new policy", "insurance changed"}},
				{Name: "Tax Payment", Weight: 60, Keywords: []string{"property tax", "tax bill", "taxes paid"}},
				{Name: "Escrow Analysis", Weight: 50, Keywords: []string{"escrow analysis", "analysis statement", "annual analysis"}},
			},
		},
		{
			Name:            "Loan Transfer",
			GeneralKeywords: []string{"transfer", "servicer", "sold", "transferred"},
			Subcategories: []Subcategory{
				{Name: "Servicing Transfer Notice", Weight: 80, Keywords: []string{"servicing transfer", "new servicer", "loan was sold", "goodbye letter", "hello letter"}},
				{Name: "Transfer Payment Confusion", Weight: 70, Keywords: []string{"where do i pay now", "old servicer", "previous servicer", "transferred my loan"}},
			},
		},
		{
			Name:            "Account Access",
			GeneralKeywords: []string{"login", "log in", "password", "website", "portal", "online account", "mobile app"},
			Subcategories: []Subcategory{
				{Name: "Password Reset", Weight: 80, Keywords: []string{"password", "reset", "locked out"}},
				{Name: "Registration Help", Weight: 70, Keywords: []string{"register", "sign up", "create an account", "activation"}},
				{Name: "Website Errors", Weight: 60, Keywords: []string{"error message", "website down", "not working", "won't load"}},
			},
		},
		{
			Name:            "Documentation",
			GeneralKeywords: []string{"document", "statement", "form", "1098", "letter", "paperwork"},
			Subcategories: []Subcategory{
				{Name: "Tax Documents", Weight: 80, Keywords: []string{"1098", "tax form", "year end statement", "interest statement"}},
				{Name: "Statement Request", Weight: 70, Keywords: []string{"billing statement", "monthly statement", "copy of my statement"}},
				{Name: "Verification Letter", Weight: 60, Keywords: []string{"verification of mortgage", "verification letter", "payment history letter"}},
			},
		},
		{
			Name:            "Hardship Assistance",
			GeneralKeywords: []string{"hardship", "forbearance", "modification", "behind on", "can't afford", "cannot afford"},
			Subcategories: []Subcategory{
				{Name: "Forbearance Request", Weight: 90, Keywords: []string{"forbearance", "pause my payments", "suspend payments"}},
				{Name: "Loan Modification", Weight: 80, Keywords: []string{"modification", "modify my loan", "lower my payment"}},
				{Name: "Payment Arrangement", Weight: 70, Keywords: []string{"payment plan", "arrangement", "catch up", "repayment plan"}},
			},
		},
		{
			Name:            "Rates and Terms",
			GeneralKeywords: []string{"rate", "interest", "term", "refinance"},
			Subcategories: []Subcategory{
				{Name: "Interest Rate Question", Weight: 80, Keywords: []string{"interest rate", "rate change", "why did my rate"}},
				{Name: "ARM Adjustment", Weight: 70, Keywords: []string{"adjustable", "arm adjustment", "rate adjustment"}},
				{Name: "Refinance Inquiry", Weight: 60, Keywords: []string{"refinance", "refi", "lower rate"}},
			},
		},
		{
			Name:            "Complaints",
			GeneralKeywords: []string{"complaint", "supervisor", "manager", "frustrated", "unacceptable", "ridiculous"},
			Subcategories: []Subcategory{
				{Name: "Service Complaint", Weight: 80, Keywords: []string{"complaint", "poor service", "terrible service", "never called back"}},
				{Name: "Escalation Request", Weight: 70, Keywords: []string{"supervisor", "manager", "escalate"}},
			},
		},
	}
}
