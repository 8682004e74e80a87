package budget

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var currencyReplacer = strings.NewReplacer(
	"$", "", "€", "", "£", "", "USD", "", "usd", "",
	",", "", " ", "", "\u00a0", "",
)

var errRepeatedSign = errors.New("repeated sign")

var quantityReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "")

// ParseCurrency normalizes a money cell to a signed decimal. Blank cells are
// null. Accounting forms such as "(1,250.00)" and a lone "-" are understood.
func ParseCurrency(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = currencyReplacer.Replace(s)
	if strings.HasPrefix(s, "-") && len(s) > 1 {
		neg = !neg
		s = s[1:]
		if strings.HasPrefix(s, "-") {
			return decimal.NullDecimal{}, &FormatError{Raw: raw, Kind: "currency", Err: errRepeatedSign}
		}
	}
	if s == "-" || s == "—" {
		return decimal.NewNullDecimal(decimal.Zero), nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &FormatError{Raw: raw, Kind: "currency", Err: err}
	}
	if neg {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseQuantity normalizes a day, hour or unit count. Blank cells are null, not zero.
func ParseQuantity(raw string) (decimal.NullDecimal, error) {
	s := quantityReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &FormatError{Raw: raw, Kind: "quantity", Err: err}
	}
	return decimal.NewNullDecimal(d), nil
}

// ParsePercent reads "28%" as 0.28. Bare numbers are returned unscaled so
// that a plausibility check can flag values such as 28.
func ParsePercent(raw string) (decimal.NullDecimal, error) {
	s := quantityReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &FormatError{Raw: raw, Kind: "percentage", Err: err}
	}
	if percent {
		d = d.Shift(-2)
	}
	return decimal.NewNullDecimal(d), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"1-2-2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Monday, January 2, 2006",
	"2 January 2006",
}

// spreadsheetEpoch is day zero of spreadsheet serial dates.
var spreadsheetEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// ParseDate normalizes a cover-sheet date to a calendar date. Serial day
// numbers from unformatted cells are accepted.
func ParseDate(raw string) (*civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			return &d, nil
		}
	}

	if serial, err := strconv.Atoi(s); err == nil && serial > 0 && serial < 2958466 {
		d := spreadsheetEpoch.AddDays(serial)
		return &d, nil
	}

	return nil, &FormatError{Raw: raw, Kind: "date"}
}

// NullString renders a nullable decimal for messages; null renders as "".
func NullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
