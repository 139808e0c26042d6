package ai

import (
	"fmt"
	"strings"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

const (
	// Prompt inputs are truncated to stay inside model token limits
	maxPolicyChars  = 4000
	maxInvoiceChars = 2000
	maxContentChars = 500
	maxContextDocs  = 5
)

const classificationSystemPrompt = "You are a financial auditor specializing in HR reimbursement policies. Always respond with valid JSON."

// buildClassificationPrompt embeds the policy wording and invoice text into
// the analysis prompt
func buildClassificationPrompt(policyText, invoiceText, invoiceID string) string {
	return fmt.Sprintf(`Given the following HR reimbursement policy and an employee invoice, determine the reimbursement status and provide a detailed explanation.

HR POLICY:
%s

INVOICE (%s):
%s

Analyze this invoice against the policy and provide your response in the following JSON format:

{
    "status": "Fully Reimbursed" | "Partially Reimbursed" | "Declined",
    "reason": "Detailed explanation of why this status was chosen",
    "policy_reference": "Specific section or rule from the policy that applies",
    "category": "Expense category this invoice falls under",
    "policy_rule": "The policy rule applied",
    "amount": <total_invoice_amount_if_mentioned>,
    "reimbursed_amount": <amount_to_be_reimbursed>
}

Focus on:
1. Whether the expenses are covered by the policy
2. Any policy violations or limitations
3. Specific policy sections that apply
4. Clear reasoning for the decision

Respond only with valid JSON.`,
		truncate(policyText, maxPolicyChars),
		invoiceID,
		truncate(invoiceText, maxInvoiceChars))
}

const chatSystemPrompt = "You are an intelligent assistant that answers queries about past invoice analyses. Base your answers strictly on the provided context."

// buildChatPrompt embeds retrieved analyses as grounding context for a query
func buildChatPrompt(query string, records []models.InvoiceRecord) string {
	var context strings.Builder
	for i, rec := range records {
		if i >= maxContextDocs {
			break
		}
		fmt.Fprintf(&context, `
Document %d:
- Invoice ID: %s
- Employee: %s
- Status: %s
- Reason: %s
- Policy Reference: %s
- Content: %s
`,
			i+1,
			rec.InvoiceID,
			rec.EmployeeName,
			rec.Analysis.Status,
			rec.Analysis.Reason,
			rec.Analysis.PolicyReference,
			truncate(rec.Content, maxContentChars))
	}

	return fmt.Sprintf(`User Query: %s

Context from previous invoice analyses:
%s

Based on the provided context, answer the user's query in a clear and helpful manner. If the context doesn't contain enough information to answer the query, say so. Format your response in markdown and be specific about which invoices or employees you're referring to.

Focus on:
1. Providing accurate information based on the context
2. Explaining the reasoning behind reimbursement decisions
3. Referencing specific policy sections when relevant
4. Being helpful and professional in tone`,
		query, context.String())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
