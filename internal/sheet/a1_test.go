package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    Cell
		wantErr bool
	}{
		{name: "single letter", ref: "C5", want: Cell{Row: 5, Col: 3}},
		{name: "double letter", ref: "AB12", want: Cell{Row: 12, Col: 28}},
		{name: "absolute", ref: "$BA$47", want: Cell{Row: 47, Col: 53}},
		{name: "lower case", ref: "bp38", want: Cell{Row: 38, Col: 68}},
		{name: "missing row", ref: "AB", wantErr: true},
		{name: "missing column", ref: "12", wantErr: true},
		{name: "zero row", ref: "A0", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCell(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnNameRoundTrip(t *testing.T) {
	for _, letters := range []string{"A", "Z", "AA", "AZ", "BA", "BP", "ZZ", "AAA"} {
		n, err := ColumnNumber(letters)
		require.NoError(t, err)
		assert.Equal(t, letters, ColumnName(n))
	}
	assert.Equal(t, "", ColumnName(0))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("S52:L4")
	require.NoError(t, err)
	assert.Equal(t, "L4:S52", r.String())
	assert.True(t, r.Contains(MustCell("N10")))
	assert.False(t, r.Contains(MustCell("T10")))

	single, err := ParseRange("G35")
	require.NoError(t, err)
	assert.Equal(t, "G35", single.String())

	_, err = ParseRange("A1:B2:C3")
	assert.Error(t, err)
}

func TestRangeOverlaps(t *testing.T) {
	a := NewRange(MustCell("L4"), MustCell("S52"))
	b := NewRange(MustCell("T4"), MustCell("AC52"))
	c := NewRange(MustCell("S52"), MustCell("T60"))

	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, b.Overlaps(c))
}
