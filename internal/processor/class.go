package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/cellmap"
	"github.com/dvloznov/budget-sync/internal/sheet"
)

// ClassResult is the output of processing one class.
type ClassResult struct {
	Summary   budget.ClassSummary
	LineItems []budget.LineItem
	Messages  []budget.ValidationMessage
	// Extracted is false when the class header was unreadable and the class skipped.
	Extracted bool
}

// ClassProcessor extracts line items and the summary of one class.
type ClassProcessor struct {
	opts Options
}

// NewClassProcessor creates a ClassProcessor.
func NewClassProcessor(opts Options) *ClassProcessor {
	return &ClassProcessor{opts: opts}
}

// Process reads the class described by m from g.
func (p *ClassProcessor) Process(budgetID string, m cellmap.ClassMapping, g *sheet.Grid) ClassResult {
	c := &collector{}
	res := ClassResult{
		Summary: budget.ClassSummary{
			BudgetID:  budgetID,
			ClassCode: m.ClassCode,
			ClassName: m.ClassName,
		},
	}

	code, name := readHeader(m, g)
	if code == "" || name == "" {
		c.add(budget.ValidationMessage{
			ValidationType: budget.TypeClassTotal,
			Severity:       budget.SeverityError,
			Message: (&budget.ExtractionError{
				Scope:  "class " + m.ClassCode,
				Reason: fmt.Sprintf("header cells %s/%s are blank", m.CodeCell, m.NameCell),
			}).Error(),
			ClassCode: m.ClassCode,
			FieldName: "class_header",
		})
		res.Messages = c.msgs
		return res
	}
	if !strings.EqualFold(code, m.ClassCode) {
		c.add(budget.ValidationMessage{
			ValidationType: budget.TypeClassTotal,
			Severity:       budget.SeverityWarning,
			Message:        fmt.Sprintf("Class header reads %q at %s", code, m.CodeCell),
			ClassCode:      m.ClassCode,
			FieldName:      "class_code",
			ExpectedValue:  m.ClassCode,
			ActualValue:    code,
		})
	}
	res.Extracted = true
	res.Summary.ClassName = name

	for row := m.FirstRow; row <= m.LastRow; row++ {
		numCell, _ := m.Cell(m.Columns.Number, row)
		descCell, _ := m.Cell(m.Columns.Description, row)
		if g.Blank(numCell) && g.Blank(descCell) {
			break
		}
		item := p.processRow(budgetID, name, m, g, row, c)
		res.LineItems = append(res.LineItems, item)
	}

	p.summarize(&res, m, g, c)
	res.Messages = c.msgs
	return res
}

// readHeader returns the class letter and name. A combined "C: NAME" cell
// supplies both.
func readHeader(m cellmap.ClassMapping, g *sheet.Grid) (code, name string) {
	code = g.At(m.CodeCell)
	if m.NameCell != m.CodeCell {
		name = g.At(m.NameCell)
	}

	if before, after, ok := strings.Cut(code, ":"); ok {
		code = strings.TrimSpace(before)
		if name == "" {
			name = strings.TrimSpace(after)
		}
	}
	if before, after, ok := strings.Cut(name, ":"); ok && strings.EqualFold(strings.TrimSpace(before), code) {
		name = strings.TrimSpace(after)
	}
	return strings.TrimSpace(code), strings.TrimSpace(name)
}

// rowReader parses the cells of one line-item row, recording failures
// against the line item.
type rowReader struct {
	m      cellmap.ClassMapping
	g      *sheet.Grid
	row    int
	c      *collector
	itemID string
	raw    map[string]string
	local  []budget.ValidationMessage
}

func (r *rowReader) add(msg budget.ValidationMessage) {
	r.local = append(r.local, msg)
	r.c.add(msg)
}

func (r *rowReader) read(field, column string, parse func(string) (decimal.NullDecimal, error)) decimal.NullDecimal {
	cell, ok := r.m.Cell(column, r.row)
	if !ok {
		return decimal.NullDecimal{}
	}
	raw := r.g.Value(cell)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	r.raw[field] = raw

	v, err := parse(raw)
	if err != nil {
		r.add(formatMessage(budget.TypeLineItem, budget.SeverityError, r.m.ClassCode, r.itemID, field, err))
		return decimal.NullDecimal{}
	}
	return v
}

func (r *rowReader) warn(field, message string) {
	r.add(budget.ValidationMessage{
		ValidationType: budget.TypeLineItem,
		Severity:       budget.SeverityWarning,
		Message:        message,
		ClassCode:      r.m.ClassCode,
		LineItemID:     r.itemID,
		FieldName:      field,
	})
}

func (p *ClassProcessor) processRow(budgetID, className string, m cellmap.ClassMapping, g *sheet.Grid, row int, c *collector) budget.LineItem {
	numCell, _ := m.Cell(m.Columns.Number, row)
	descCell, _ := m.Cell(m.Columns.Description, row)
	number := normalizeLineNumber(g.Value(numCell))
	description := g.Value(descCell)

	displayNumber := number
	if displayNumber == "" {
		displayNumber = "r" + strconv.Itoa(row)
	}

	item := budget.LineItem{
		LineItemID:     budget.LineItemID(budgetID, m.ClassCode, displayNumber),
		BudgetID:       budgetID,
		ClassCode:      m.ClassCode,
		ClassName:      className,
		LineItemNumber: displayNumber,
		Description:    description,
		QuantityUnit:   string(m.Unit),
		SourceRow:      row,
	}

	r := &rowReader{m: m, g: g, row: row, c: c, itemID: item.LineItemID, raw: make(map[string]string)}

	if number == "" {
		r.warn("line_item_number", fmt.Sprintf("Line item at row %d is missing a line number", row))
	}
	if description == "" {
		r.warn("description", fmt.Sprintf("Line item %s is missing a description", displayNumber))
	}

	cols := m.Columns
	item.EstimateCount = r.read("estimate_count", cols.EstimateCount, budget.ParseQuantity)
	item.EstimateDays = r.read("estimate_days", cols.EstimateDays, budget.ParseQuantity)
	item.EstimateRate = r.read("estimate_rate", cols.EstimateRate, budget.ParseCurrency)
	item.EstimateOTRate = r.read("estimate_ot_rate", cols.EstimateOTRate, budget.ParseCurrency)
	item.EstimateOTHours = r.read("estimate_ot_hours", cols.EstimateOTHours, budget.ParseQuantity)
	item.EstimateTotal = r.read("estimate_total", cols.EstimateTotal, budget.ParseCurrency)
	item.ActualDays = r.read("actual_days", cols.ActualDays, budget.ParseQuantity)
	item.ActualRate = r.read("actual_rate", cols.ActualRate, budget.ParseCurrency)
	item.ActualTotal = r.read("actual_total", cols.ActualTotal, budget.ParseCurrency)

	p.computeEstimate(&item, r)
	p.computeActual(&item, r)

	if len(r.raw) > 0 {
		item.Raw = r.raw
	}
	item.ValidationStatus = budget.Rollup(r.local)
	item.ValidationMessages = make([]string, 0, len(r.local))
	for _, msg := range r.local {
		item.ValidationMessages = append(item.ValidationMessages, msg.Message)
	}
	return item
}

func (p *ClassProcessor) computeEstimate(item *budget.LineItem, r *rowReader) {
	cols := r.m.Columns

	ot := decimal.Zero
	if cols.EstimateOTRate != "" || cols.EstimateOTHours != "" {
		hours, rate := item.EstimateOTHours, item.EstimateOTRate
		switch {
		case hours.Valid && rate.Valid:
			ot = hours.Decimal.Mul(rate.Decimal)
		case hours.Valid && !rate.Valid:
			r.warn("estimate_ot_rate", "Has OT hours but missing OT rate")
		case rate.Valid && !hours.Valid && !rate.Decimal.IsZero():
			r.warn("estimate_ot_hours", "Has OT rate but missing OT hours")
		}
	}

	days, rate := item.EstimateDays, item.EstimateRate
	if rate.Valid && !days.Valid && cols.EstimateDays != "" {
		r.warn("estimate_days", "Has estimate rate but missing "+string(r.m.Unit))
	}

	if days.Valid && rate.Valid {
		count := decimal.NewFromInt(1)
		if item.EstimateCount.Valid {
			count = item.EstimateCount.Decimal
		}
		item.CalculatedEstimateTotal = decimal.NewNullDecimal(count.Mul(days.Decimal).Mul(rate.Decimal).Add(ot))
	}

	p.checkVariance(r, "estimate", item.EstimateTotal, item.CalculatedEstimateTotal, days, rate,
		cols.EstimateDays != "" && cols.EstimateRate != "", &item.EstimateVariance)
}

func (p *ClassProcessor) computeActual(item *budget.LineItem, r *rowReader) {
	cols := r.m.Columns
	days, rate := item.ActualDays, item.ActualRate

	if days.Valid && rate.Valid {
		item.CalculatedActualTotal = decimal.NewNullDecimal(days.Decimal.Mul(rate.Decimal))
	}
	if rate.Valid && !days.Valid && cols.ActualDays != "" {
		r.warn("actual_days", "Has actual rate but missing "+string(r.m.Unit))
	}

	p.checkVariance(r, "actual", item.ActualTotal, item.CalculatedActualTotal, days, rate,
		cols.ActualDays != "" && cols.ActualRate != "", &item.ActualVariance)
}

// checkVariance compares a declared total with its calculated value.
// operandsMapped is true when the class has both quantity and rate columns,
// which is the only case where a total without operands is inconsistent.
func (p *ClassProcessor) checkVariance(r *rowReader, side string, declared, calculated, days, rate decimal.NullDecimal, operandsMapped bool, out *decimal.NullDecimal) {
	field := side + "_total"

	if declared.Valid && calculated.Valid {
		variance := declared.Decimal.Sub(calculated.Decimal)
		*out = decimal.NewNullDecimal(variance)
		if exceeds(variance, p.opts.VarianceTolerance) {
			r.add(budget.ValidationMessage{
				ValidationType: budget.TypeLineItem,
				Severity:       budget.SeverityWarning,
				Message:        mismatch(strings.ToUpper(side[:1])+side[1:]+" total", calculated.Decimal, declared.Decimal),
				ClassCode:      r.m.ClassCode,
				LineItemID:     r.itemID,
				FieldName:      field,
				ExpectedValue:  money(calculated.Decimal),
				ActualValue:    money(declared.Decimal),
			})
		}
		return
	}

	if declared.Valid && operandsMapped && !days.Valid && !rate.Valid && !declared.Decimal.IsZero() {
		r.add(budget.ValidationMessage{
			ValidationType: budget.TypeLineItem,
			Severity:       budget.SeverityError,
			Message:        fmt.Sprintf("Declared %s total %s has no %s or rate", side, money(declared.Decimal), r.m.Unit),
			ClassCode:      r.m.ClassCode,
			LineItemID:     r.itemID,
			FieldName:      field,
			ActualValue:    money(declared.Decimal),
		})
	}
}

// readPnW returns the P&W rate and the estimate surcharge it implies. The
// rate cell normally holds a percentage; a currency amount there is taken
// as the surcharge itself. The label cell only supplies the rate when it
// holds a number, since templates keep the "P&W" caption there.
func readPnW(m cellmap.ClassMapping, g *sheet.Grid, subtotal decimal.NullDecimal, c *collector) (rate, amount decimal.NullDecimal) {
	if m.PnWRateCell == "" {
		return rate, amount
	}
	raw := g.At(m.PnWRateCell)
	rate, err := budget.ParsePercent(raw)
	if err != nil {
		amt, cerr := budget.ParseCurrency(raw)
		if cerr != nil {
			c.formatError(budget.TypeClassTotal, budget.SeverityError, m.ClassCode, "", "pnw_rate", err)
			return decimal.NullDecimal{}, decimal.NullDecimal{}
		}
		amount = amt
		if amt.Valid && subtotal.Valid && !subtotal.Decimal.IsZero() {
			rate = decimal.NewNullDecimal(amt.Decimal.Div(subtotal.Decimal))
		}
		return rate, amount
	}
	if !rate.Valid && m.PnWLabelCell != "" {
		if label, lerr := budget.ParsePercent(g.At(m.PnWLabelCell)); lerr == nil {
			rate = label
		}
	}
	if rate.Valid && subtotal.Valid {
		amount = decimal.NewNullDecimal(subtotal.Decimal.Mul(rate.Decimal))
	}
	return rate, amount
}

func (p *ClassProcessor) summarize(res *ClassResult, m cellmap.ClassMapping, g *sheet.Grid, c *collector) {
	s := &res.Summary
	s.LineItemCount = len(res.LineItems)

	read := func(field, ref string, parse func(string) (decimal.NullDecimal, error)) decimal.NullDecimal {
		if ref == "" {
			return decimal.NullDecimal{}
		}
		v, err := parse(g.At(ref))
		if err != nil {
			c.formatError(budget.TypeClassTotal, budget.SeverityError, m.ClassCode, "", field, err)
			return decimal.NullDecimal{}
		}
		return v
	}

	s.SubtotalEstimate = read("subtotal_estimate", m.SubtotalEstimateCell, budget.ParseCurrency)
	s.SubtotalActual = read("subtotal_actual", m.SubtotalActualCell, budget.ParseCurrency)
	s.PnWRate, s.PnWEstimate = readPnW(m, g, s.SubtotalEstimate, c)
	s.PnWActual = read("pnw_actual", m.PnWActualCell, budget.ParseCurrency)
	s.ClientTotal = read("client_total", m.ClientTotalCell, budget.ParseCurrency)

	if m.TotalEstimateCell == m.SubtotalEstimateCell {
		s.ClassTotalEstimate = s.SubtotalEstimate
	} else {
		s.ClassTotalEstimate = read("class_total_estimate", m.TotalEstimateCell, budget.ParseCurrency)
	}
	if m.TotalActualCell == m.SubtotalActualCell {
		s.ClassTotalActual = s.SubtotalActual
	} else {
		s.ClassTotalActual = read("class_total_actual", m.TotalActualCell, budget.ParseCurrency)
	}

	s.ComputedEstimate = sumTotals(res.LineItems, func(li budget.LineItem) (decimal.NullDecimal, decimal.NullDecimal) {
		return li.CalculatedEstimateTotal, li.EstimateTotal
	})
	s.ComputedActual = sumTotals(res.LineItems, func(li budget.LineItem) (decimal.NullDecimal, decimal.NullDecimal) {
		return li.CalculatedActualTotal, li.ActualTotal
	})

	p.crossCheck(c, m.ClassCode, "subtotal_estimate", s.ComputedEstimate, s.SubtotalEstimate)
	p.crossCheck(c, m.ClassCode, "subtotal_actual", s.ComputedActual, s.SubtotalActual)
}

// sumTotals adds each line item's calculated total, falling back to the
// declared total when the item has no operands. Null when nothing contributes.
func sumTotals(items []budget.LineItem, pick func(budget.LineItem) (calculated, declared decimal.NullDecimal)) decimal.NullDecimal {
	sum := decimal.Zero
	seen := false
	for _, li := range items {
		calculated, declared := pick(li)
		switch {
		case calculated.Valid:
			sum = sum.Add(calculated.Decimal)
			seen = true
		case declared.Valid:
			sum = sum.Add(declared.Decimal)
			seen = true
		}
	}
	if !seen {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum)
}

func (p *ClassProcessor) crossCheck(c *collector, classCode, field string, computed, declared decimal.NullDecimal) {
	if !computed.Valid || !declared.Valid {
		return
	}
	if !exceeds(declared.Decimal.Sub(computed.Decimal), p.opts.VarianceTolerance) {
		return
	}
	c.add(budget.ValidationMessage{
		ValidationType: budget.TypeClassTotal,
		Severity:       budget.SeverityWarning,
		Message:        mismatch("Class "+classCode+" "+strings.ReplaceAll(field, "_", " "), computed.Decimal, declared.Decimal),
		ClassCode:      classCode,
		FieldName:      field,
		ExpectedValue:  money(computed.Decimal),
		ActualValue:    money(declared.Decimal),
	})
}

// normalizeLineNumber turns "3.0" into "3" so ids do not depend on cell formatting.
func normalizeLineNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return d.String()
	}
	return s
}
