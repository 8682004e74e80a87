// Package validation aggregates extraction findings and runs the checks that
// span a whole budget.
package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/budget"
)

// Options bounds the plausibility checks.
type Options struct {
	PnWRateMin decimal.Decimal
	PnWRateMax decimal.Decimal
	// Tolerance is the allowed difference when class totals are recomputed.
	Tolerance decimal.Decimal
}

// DefaultOptions accepts P&W rates in [0, 1] with a one-cent tolerance.
func DefaultOptions() Options {
	return Options{
		PnWRateMin: decimal.Zero,
		PnWRateMax: decimal.NewFromInt(1),
		Tolerance:  decimal.New(1, -2),
	}
}

// Input is everything extraction produced for one budget.
type Input struct {
	Messages  []budget.ValidationMessage
	LineItems []budget.LineItem
	Summaries []budget.ClassSummary
}

// Result is the full message list with its rolled-up status.
type Result struct {
	Messages []budget.ValidationMessage
	Status   budget.Status
}

// Engine runs cross-cutting checks. It never returns an error: every
// finding becomes a message.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Validate appends the budget-wide findings to the extraction messages.
func (e *Engine) Validate(in Input) Result {
	msgs := make([]budget.ValidationMessage, 0, len(in.Messages))
	msgs = append(msgs, in.Messages...)
	msgs = append(msgs, e.checkUniqueIDs(in.LineItems)...)
	for _, s := range in.Summaries {
		msgs = append(msgs, e.checkPnW(s)...)
	}
	return Result{Messages: msgs, Status: budget.Rollup(msgs)}
}

func (e *Engine) checkUniqueIDs(items []budget.LineItem) []budget.ValidationMessage {
	var out []budget.ValidationMessage
	seen := make(map[string]int, len(items))
	for _, li := range items {
		seen[li.LineItemID]++
		if seen[li.LineItemID] != 2 {
			continue
		}
		out = append(out, budget.ValidationMessage{
			ValidationType: budget.TypeBudget,
			Severity:       budget.SeverityError,
			Message:        fmt.Sprintf("Duplicate line item id %s", li.LineItemID),
			ClassCode:      li.ClassCode,
			LineItemID:     li.LineItemID,
			FieldName:      "line_item_number",
			ActualValue:    li.LineItemNumber,
		})
	}
	return out
}

func (e *Engine) checkPnW(s budget.ClassSummary) []budget.ValidationMessage {
	var out []budget.ValidationMessage
	rate := s.PnWRate
	if rate.Valid && (rate.Decimal.LessThan(e.opts.PnWRateMin) || rate.Decimal.GreaterThan(e.opts.PnWRateMax)) {
		out = append(out, budget.ValidationMessage{
			ValidationType: budget.TypeClassTotal,
			Severity:       budget.SeverityWarning,
			Message: fmt.Sprintf("Class %s P&W rate %s is outside [%s, %s]",
				s.ClassCode, rate.Decimal.String(), e.opts.PnWRateMin.String(), e.opts.PnWRateMax.String()),
			ClassCode:   s.ClassCode,
			FieldName:   "pnw_rate",
			ActualValue: rate.Decimal.String(),
		})
		return out
	}

	// P&W estimate should be the subtotal times the rate.
	if rate.Valid && s.SubtotalEstimate.Valid && s.PnWEstimate.Valid {
		want := s.SubtotalEstimate.Decimal.Mul(rate.Decimal).Round(2)
		if s.PnWEstimate.Decimal.Sub(want).Abs().GreaterThan(e.opts.Tolerance) {
			out = append(out, budget.ValidationMessage{
				ValidationType: budget.TypeClassTotal,
				Severity:       budget.SeverityWarning,
				Message: fmt.Sprintf("Class %s P&W estimate mismatch: expected %s, found %s",
					s.ClassCode, want.StringFixed(2), s.PnWEstimate.Decimal.StringFixed(2)),
				ClassCode:     s.ClassCode,
				FieldName:     "pnw_estimate",
				ExpectedValue: want.StringFixed(2),
				ActualValue:   s.PnWEstimate.Decimal.StringFixed(2),
			})
		}
	}
	return out
}
