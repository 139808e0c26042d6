package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// amountPatterns match rupee amounts in invoice text, most specific first
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`₹\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)rs\.?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)inr\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)rupees?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)amount[:\s]*₹?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)total[:\s]*₹?\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
}

// RuleEngine classifies invoices against the integrated policy without a
// language model call: keyword category inference, amount extraction and
// limit checks.
type RuleEngine struct {
	logger *zap.Logger
}

// NewRuleEngine creates a new rule engine
func NewRuleEngine(logger *zap.Logger) *RuleEngine {
	return &RuleEngine{logger: logger}
}

// Analyze classifies one invoice against the integrated policy rules
func (e *RuleEngine) Analyze(invoiceText, invoiceID string) models.AnalysisResult {
	category, amount := inferCategory(invoiceText)
	rule := integratedCategories[category]

	result := e.validate(category, rule, amount, invoiceText)
	result.InvoiceID = invoiceID
	result.Category = category
	result.PolicyRule = rule.Description
	result.CreatedAt = time.Now().UTC()

	e.logger.Info("Rule-based analysis completed",
		zap.String("invoice_id", invoiceID),
		zap.String("category", category),
		zap.String("status", string(result.Status)),
		zap.Float64("amount", amount))

	return result
}

func (e *RuleEngine) validate(category string, rule models.PolicyRule, amount float64, invoiceText string) models.AnalysisResult {
	lower := strings.ToLower(invoiceText)

	// Restriction check: alcohol is never reimbursable under food
	if category == "food_beverages" && containsAny(lower, "alcohol", "beer", "wine", "liquor") {
		return models.AnalysisResult{
			Status:           models.StatusDeclined,
			Reason:           "Alcoholic beverages are not reimbursable according to policy",
			PolicyReference:  rule.PolicySection,
			Amount:           amount,
			ReimbursedAmount: 0,
		}
	}

	if amount > rule.MaxAmount {
		return models.AnalysisResult{
			Status: models.StatusPartiallyReimbursed,
			Reason: fmt.Sprintf("Amount (INR %.2f) exceeds policy limit of INR %.2f for %s",
				amount, rule.MaxAmount, rule.Name),
			PolicyReference:  rule.PolicySection,
			Amount:           amount,
			ReimbursedAmount: rule.MaxAmount,
		}
	}

	return models.AnalysisResult{
		Status: models.StatusFullyReimbursed,
		Reason: fmt.Sprintf("Amount (INR %.2f) is within policy limit of INR %.2f for %s",
			amount, rule.MaxAmount, rule.Name),
		PolicyReference:  rule.PolicySection,
		Amount:           amount,
		ReimbursedAmount: amount,
	}
}

// inferCategory determines the expense category and extracts the amount from
// invoice text
func inferCategory(invoiceText string) (string, float64) {
	lower := strings.ToLower(invoiceText)
	amount := extractAmount(lower)

	switch {
	case containsAny(lower, "food", "meal", "restaurant", "cafe", "dining", "lunch", "dinner", "breakfast"):
		return "food_beverages", amount
	case containsAny(lower, "hotel", "accommodation", "lodging", "stay", "room"):
		return "accommodation", amount
	case containsAny(lower, "cab", "taxi", "uber", "ola"):
		if containsAny(lower, "daily", "office", "commute", "regular") {
			return "daily_cab", amount
		}
		if containsAny(lower, "client", "meeting", "business", "trip", "visit") {
			return "travel_expenses", amount
		}
		return "cab", amount
	case containsAny(lower, "transport", "travel", "flight", "train", "bus"):
		return "travel_expenses", amount
	default:
		// Unclear invoices default to the broadest category
		return "travel_expenses", amount
	}
}

func extractAmount(lower string) float64 {
	for _, pattern := range amountPatterns {
		matches := pattern.FindStringSubmatch(lower)
		if len(matches) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(matches[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return value
	}
	return 0
}

func containsAny(s string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}
