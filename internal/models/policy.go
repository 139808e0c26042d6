package models

// PolicyRule describes one reimbursable expense category and its limits
type PolicyRule struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	MaxAmount     float64  `json:"max_amount"`
	Conditions    []string `json:"conditions"`
	Restrictions  []string `json:"restrictions"`
	PolicySection string   `json:"policy_section"`
}

// PolicyDocument is the structured reimbursement policy invoices are judged
// against. Either the built-in company policy or derived from an uploaded
// document; read-only during analysis.
type PolicyDocument struct {
	CompanyName string                `json:"company_name"`
	PolicyTitle string                `json:"policy_title"`
	Version     string                `json:"version"`
	Categories  map[string]PolicyRule `json:"categories"`

	// Text is the full policy wording handed to the language model.
	Text string `json:"-"`

	// Integrated marks the built-in policy, which is evaluated by the rule
	// engine instead of the language model.
	Integrated bool `json:"-"`
}

// PolicySummary is the response shape of the policy info endpoint
type PolicySummary struct {
	CompanyName            string                `json:"company_name"`
	PolicyTitle            string                `json:"policy_title"`
	Version                string                `json:"version"`
	SubmissionDeadlineDays int                   `json:"submission_deadline_days"`
	ApprovalDeadlineDays   int                   `json:"approval_deadline_days"`
	Categories             map[string]PolicyRule `json:"categories"`
}
