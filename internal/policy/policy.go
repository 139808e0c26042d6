// Package policy supplies the reimbursement policy invoices are judged
// against: the built-in company policy with its category limits, or a policy
// derived from an uploaded document.
package policy

import (
	"fmt"
	"strings"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

const (
	companyName = "IAI Solution"
	policyTitle = "Employee Reimbursement Policy"
	policyVersion = "1.0"

	// SubmissionDeadlineDays is the receipt submission window
	SubmissionDeadlineDays = 30
	// ApprovalDeadlineDays is the HR review window
	ApprovalDeadlineDays = 10
)

// integratedCategories is the authoritative category table of the built-in
// policy. Amounts are in rupees.
var integratedCategories = map[string]models.PolicyRule{
	"food_beverages": {
		Name:        "Food and Beverages",
		Description: "Meals during work travel or business meetings",
		MaxAmount:   200.0,
		Conditions: []string{
			"Traveling for work",
			"Attending business meetings",
		},
		Restrictions: []string{
			"Alcoholic beverages not reimbursable",
		},
		PolicySection: "5.1 Food and Beverages",
	},
	"travel_expenses": {
		Name:        "Travel Expenses",
		Description: "Work-related travel expenses",
		MaxAmount:   2000.0,
		Conditions: []string{
			"Work-related travel only",
		},
		Restrictions: []string{
			"Personal travel expenses not reimbursed",
		},
		PolicySection: "5.2 Travel Expenses",
	},
	"cab": {
		Name:        "Cab Expenses",
		Description: "Regular cab/taxi expenses for work",
		MaxAmount:   200.0,
		Conditions: []string{
			"Work-related cab rides",
		},
		Restrictions: []string{
			"Personal cab rides not reimbursed",
		},
		PolicySection: "5.2 Travel Expenses",
	},
	"daily_cab": {
		Name:        "Daily Office Cab",
		Description: "Daily office cab allowance",
		MaxAmount:   150.0,
		Conditions: []string{
			"Daily office commute",
		},
		Restrictions: []string{
			"Only for office commute",
		},
		PolicySection: "5.2 Travel Expenses",
	},
	"accommodation": {
		Name:        "Accommodation",
		Description: "Hotel stays for overnight business travel",
		MaxAmount:   50.0,
		Conditions: []string{
			"Overnight business travel",
		},
		Restrictions: []string{
			"Use company-approved hotels when available",
			"Excludes taxes and fees",
		},
		PolicySection: "5.3 Accommodation",
	},
}

// Integrated returns the built-in company policy
func Integrated() *models.PolicyDocument {
	categories := make(map[string]models.PolicyRule, len(integratedCategories))
	for key, rule := range integratedCategories {
		categories[key] = rule
	}
	return &models.PolicyDocument{
		CompanyName: companyName,
		PolicyTitle: policyTitle,
		Version:     policyVersion,
		Categories:  categories,
		Text:        integratedPolicyText(),
		Integrated:  true,
	}
}

// Summary returns the structured summary served by the policy endpoint
func Summary() models.PolicySummary {
	return models.PolicySummary{
		CompanyName:            companyName,
		PolicyTitle:            policyTitle,
		Version:                policyVersion,
		SubmissionDeadlineDays: SubmissionDeadlineDays,
		ApprovalDeadlineDays:   ApprovalDeadlineDays,
		Categories:             Integrated().Categories,
	}
}

// integratedPolicyText renders the full policy wording used in LLM prompts
func integratedPolicyText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company Name: %s\n", companyName)
	fmt.Fprintf(&sb, "Policy Title: %s\n", policyTitle)
	fmt.Fprintf(&sb, "Version: %s\n\n", policyVersion)

	sb.WriteString(`1. Purpose
The purpose of this policy is to outline the guidelines and procedures for the reimbursement of expenses incurred by employees while performing work-related duties. This policy ensures transparency and consistency in the reimbursement process.

2. Scope
This policy applies to all employees of ` + companyName + ` who incur expenses in the course of their work duties.

3. Reimbursement Categories
The following categories of expenses are eligible for reimbursement under this policy:
- Food and Beverages
- Travel Expenses
- Cab Expenses
- Daily Office Cab
- Accommodations

4. General Guidelines
`)
	fmt.Fprintf(&sb, "- All reimbursements must be supported by original receipts and submitted within %d days of the expense incurred.\n", SubmissionDeadlineDays)
	sb.WriteString(`- Employees must complete the reimbursement request form and submit it along with the required documentation to the HR department.

5. Specific Expense Guidelines

5.1 Food and Beverages
- Eligibility: Reimbursement for meals is allowed when traveling for work or attending business meetings.
- Limits: We have set food allowances for food reimbursements of INR 200 per meal.
- Restrictions: Alcoholic beverages are not reimbursable.

5.2 Travel Expenses
- Eligibility: Travel expenses are reimbursable for work-related travel only.
- Limits: We have set allowances for travel reimbursements of INR 2,000 per trip, depending on the location and the employee's level.
- Restrictions: Any travel-related expenses incurred for personal reasons will not be reimbursed.

5.2.1 Cab Expenses
- Eligibility: Regular cab/taxi expenses for work-related purposes.
- Limits: INR 200 per cab ride.
- Restrictions: Personal cab rides are not reimbursed.

5.2.2 Daily Office Cab
- Eligibility: Daily office commute cab allowance.
- Limits: INR 150 per day.
- Restrictions: Only for office commute.

5.3 Accommodation
- Eligibility: Reimbursement for hotel stays is allowed for overnight business travel.
- Limits: Up to INR 50 per night, excluding taxes and fees.
- Restrictions: Employees must use company-approved hotels when available.

6. Submission Process
1. Complete the reimbursement request form.
2. Attach all relevant receipts.
3. Submit to the HR department for approval.

7. Review and Approval
`)
	fmt.Fprintf(&sb, "HR will review submissions for compliance with this policy and will either approve or deny the request within %d business days.\n\n", ApprovalDeadlineDays)
	sb.WriteString(`8. Policy Amendments
This policy may be amended at any time with prior notice to employees.
`)
	return sb.String()
}
