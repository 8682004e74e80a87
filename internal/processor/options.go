// Package processor turns raw sheet cells into budget records. Processors
// never fail on bad data: every problem becomes a validation message and
// extraction continues.
package processor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/budget"
)

// Options holds the tunable thresholds of extraction.
type Options struct {
	// VarianceTolerance is the largest declared-vs-calculated difference
	// treated as rounding.
	VarianceTolerance decimal.Decimal
}

// DefaultOptions returns a one-cent variance tolerance.
func DefaultOptions() Options {
	return Options{VarianceTolerance: decimal.New(1, -2)}
}

type collector struct {
	msgs []budget.ValidationMessage
}

func (c *collector) add(m budget.ValidationMessage) {
	c.msgs = append(c.msgs, m)
}

func (c *collector) formatError(vt budget.ValidationType, sev budget.Severity, classCode, lineItemID, field string, err error) {
	c.add(formatMessage(vt, sev, classCode, lineItemID, field, err))
}

// formatMessage describes a cell that failed to parse, keeping the raw text.
func formatMessage(vt budget.ValidationType, sev budget.Severity, classCode, lineItemID, field string, err error) budget.ValidationMessage {
	raw := ""
	if fe, ok := err.(*budget.FormatError); ok {
		fe.Field = field
		raw = fe.Raw
	}
	return budget.ValidationMessage{
		ValidationType: vt,
		Severity:       sev,
		Message:        err.Error(),
		ClassCode:      classCode,
		LineItemID:     lineItemID,
		FieldName:      field,
		ActualValue:    raw,
	}
}

func exceeds(diff, tolerance decimal.Decimal) bool {
	return diff.Abs().GreaterThan(tolerance)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mismatch(what string, expected, actual decimal.Decimal) string {
	return fmt.Sprintf("%s mismatch: expected %s, found %s", what, money(expected), money(actual))
}
