package budget

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		null    bool
		wantErr bool
	}{
		{name: "blank is null", raw: "  ", null: true},
		{name: "plain", raw: "1000", want: "1000"},
		{name: "dollar and separators", raw: "$1,250.50", want: "1250.5"},
		{name: "accounting negative", raw: "(1,250.00)", want: "-1250"},
		{name: "leading minus", raw: "-$75", want: "-75"},
		{name: "accounting zero", raw: "$ -", want: "0"},
		{name: "currency code", raw: "USD 200", want: "200"},
		{name: "formula error", raw: "#N/A", wantErr: true},
		{name: "text", raw: "TBD", wantErr: true},
		{name: "double minus", raw: "--5", wantErr: true},
		{name: "double minus after symbol", raw: "$--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.raw)
			if tt.wantErr {
				var fe *FormatError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.raw, fe.Raw)
				assert.False(t, got.Valid)
				return
			}
			require.NoError(t, err)
			if tt.null {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.Equal(t, tt.want, got.Decimal.String())
		})
	}
}

func TestParseQuantity(t *testing.T) {
	got, err := ParseQuantity("1,000.5")
	require.NoError(t, err)
	assert.Equal(t, "1000.5", got.Decimal.String())

	got, err = ParseQuantity("")
	require.NoError(t, err)
	assert.False(t, got.Valid)

	_, err = ParseQuantity("five")
	assert.Error(t, err)
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "28%", want: "0.28"},
		{raw: "0.28", want: "0.28"},
		{raw: "28", want: "28"},
		{raw: "12.5 %", want: "0.125"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePercent(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Decimal.String())
		})
	}

	_, err := ParsePercent("lots")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := civil.Date{Year: 2024, Month: 3, Day: 15}
	for _, raw := range []string{"2024-03-15", "3/15/2024", "3/15/24", "15-Mar-2024", "March 15, 2024", "Mar 15, 2024", "45366"} {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseDate(raw)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want, *got)
		})
	}

	got, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("next Tuesday")
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "next Tuesday", fe.Raw)
}

func TestRollup(t *testing.T) {
	assert.Equal(t, StatusValid, Rollup(nil))
	assert.Equal(t, StatusValid, Rollup([]ValidationMessage{{Severity: SeverityInfo}}))
	assert.Equal(t, StatusWarning, Rollup([]ValidationMessage{{Severity: SeverityInfo}, {Severity: SeverityWarning}}))
	assert.Equal(t, StatusError, Rollup([]ValidationMessage{{Severity: SeverityError}, {Severity: SeverityWarning}}))

	counts := CountBySeverity([]ValidationMessage{{Severity: SeverityError}, {Severity: SeverityError}})
	assert.Equal(t, 2, counts[SeverityError])
	assert.Equal(t, 0, counts[SeverityInfo])
}

func TestBudgetVersionLabel(t *testing.T) {
	v := BudgetVersion{Major: 1, Minor: 1, Patch: 1}
	assert.Equal(t, "1.1.1", v.Label())
	assert.True(t, v.Less(BudgetVersion{Major: 2}))
	assert.False(t, BudgetVersion{Major: 2}.Less(v))
}

func TestIdentityValidate(t *testing.T) {
	assert.NoError(t, Identity{SpreadsheetID: "S1", SheetName: "Estimate"}.Validate())
	assert.ErrorIs(t, Identity{SpreadsheetID: "S1"}.Validate(), ErrMissingIdentity)
	assert.ErrorIs(t, Identity{SheetName: "Estimate"}.Validate(), ErrMissingIdentity)
}
