package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/budget"
)

// hashedItem is the part of a line item that identifies its content.
// Per-run ids, raw cell text and validation output are left out.
type hashedItem struct {
	ClassCode       string              `json:"class_code"`
	LineItemNumber  string              `json:"line_item_number"`
	Description     string              `json:"description"`
	EstimateCount   decimal.NullDecimal `json:"estimate_count"`
	EstimateDays    decimal.NullDecimal `json:"estimate_days"`
	EstimateRate    decimal.NullDecimal `json:"estimate_rate"`
	EstimateOTRate  decimal.NullDecimal `json:"estimate_ot_rate"`
	EstimateOTHours decimal.NullDecimal `json:"estimate_ot_hours"`
	EstimateTotal   decimal.NullDecimal `json:"estimate_total"`
	ActualDays      decimal.NullDecimal `json:"actual_days"`
	ActualRate      decimal.NullDecimal `json:"actual_rate"`
	ActualTotal     decimal.NullDecimal `json:"actual_total"`
}

type hashedContent struct {
	CoverSheet budget.CoverSheet `json:"cover_sheet"`
	LineItems  []hashedItem      `json:"line_items"`
}

// ContentHash returns the hex sha256 of the canonical JSON of the cover sheet
// and line items. The same extracted content always hashes the same,
// whatever budget id it was stamped with.
func ContentHash(cover budget.CoverSheet, items []budget.LineItem) (string, error) {
	content := hashedContent{CoverSheet: cover, LineItems: make([]hashedItem, 0, len(items))}
	for _, li := range items {
		content.LineItems = append(content.LineItems, hashedItem{
			ClassCode:       li.ClassCode,
			LineItemNumber:  li.LineItemNumber,
			Description:     li.Description,
			EstimateCount:   li.EstimateCount,
			EstimateDays:    li.EstimateDays,
			EstimateRate:    li.EstimateRate,
			EstimateOTRate:  li.EstimateOTRate,
			EstimateOTHours: li.EstimateOTHours,
			EstimateTotal:   li.EstimateTotal,
			ActualDays:      li.ActualDays,
			ActualRate:      li.ActualRate,
			ActualTotal:     li.ActualTotal,
		})
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("ContentHash: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("ContentHash: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
