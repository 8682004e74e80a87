package sheet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGridBlankCells(t *testing.T) {
	g := NewGrid()
	require.NoError(t, g.SetA1("C5", "  Pixel Launch  "))
	require.NoError(t, g.SetA1("C6", "   "))

	assert.Equal(t, "Pixel Launch", g.At("C5"))
	assert.Equal(t, "", g.At("C6"))
	assert.Equal(t, "", g.At("ZZ999"))
	assert.Equal(t, "", g.At("not-a-cell"))
	assert.Equal(t, 1, g.Len())

	var nilGrid *Grid
	assert.Equal(t, "", nilGrid.At("A1"))
	assert.True(t, nilGrid.BlankWithin(NewRange(MustCell("A1"), MustCell("B2"))))
}

func TestGridFill(t *testing.T) {
	g := NewGrid()
	g.Fill(MustCell("L4"), [][]string{
		{"1", "Producer", "5"},
		{},
		{"3", "", "2"},
	})

	assert.Equal(t, "Producer", g.At("M4"))
	assert.Equal(t, "5", g.At("N4"))
	assert.True(t, g.Blank(MustCell("L5")))
	assert.Equal(t, "3", g.At("L6"))
	assert.False(t, g.BlankWithin(NewRange(MustCell("L6"), MustCell("N6"))))
	assert.True(t, g.BlankWithin(NewRange(MustCell("L5"), MustCell("S5"))))
}

func TestQualifiedRange(t *testing.T) {
	r := NewRange(MustCell("L4"), MustCell("S52"))
	assert.Equal(t, "'Estimate'!L4:S52", QualifiedRange("Estimate", r))
	assert.Equal(t, "'Bob''s Budget'!L4:S52", QualifiedRange("Bob's Budget", r))
}

func TestWorkbookSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ACME0324SPOT_Estimate.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Estimate")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Estimate", "C5", "Spring Spot"))
	require.NoError(t, f.SetCellValue("Estimate", "L4", "1"))
	require.NoError(t, f.SetCellValue("Estimate", "M4", "Producer"))
	require.NoError(t, f.SetCellValue("Estimate", "Z99", "outside"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := NewWorkbookSource(path)
	ranges := []Range{
		NewRange(MustCell("C5"), MustCell("C5")),
		NewRange(MustCell("L4"), MustCell("S52")),
	}

	snap, err := src.Fetch(context.Background(), "", "Estimate", ranges)
	require.NoError(t, err)

	assert.Equal(t, "ACME0324SPOT_Estimate", snap.Locator.SpreadsheetID)
	assert.Equal(t, "Estimate", snap.Locator.SheetName)
	assert.Equal(t, "Spring Spot", snap.Grid.At("C5"))
	assert.Equal(t, "Producer", snap.Grid.At("M4"))
	assert.Equal(t, "", snap.Grid.At("Z99"))

	_, err = src.Fetch(context.Background(), "", "Actuals", ranges)
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}
