package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/budget-sync/internal/cellmap"
)

func newInspectCommand() *cobra.Command {
	var classCode string

	cmd := &cobra.Command{
		Use:         "inspect",
		Short:       "Show the AICP cell map",
		Long:        "Without --class, list every class of the template. With --class, show where each field of that class is read from.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := cellmap.Default()
			out := cmd.OutOrStdout()

			if classCode == "" {
				fmt.Fprintln(out, renderTable(
					[]string{"Class", "Name", "Rows", "Unit", "P&W"},
					classRows(reg.Classes()),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			}

			m, err := reg.MappingFor(strings.ToUpper(strings.TrimSpace(classCode)))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Cell"}, mappingRows(m), nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&classCode, "class", "", "Class letter to show, e.g. A")

	return cmd
}

func classRows(classes []cellmap.ClassMapping) [][]string {
	rows := make([][]string, 0, len(classes))
	for _, m := range classes {
		pnw := "no"
		if m.HasPnW() {
			pnw = "yes"
		}
		rows = append(rows, []string{
			m.ClassCode,
			m.ClassName,
			strconv.Itoa(m.FirstRow) + "-" + strconv.Itoa(m.LastRow),
			string(m.Unit),
			pnw,
		})
	}
	return rows
}

func mappingRows(m cellmap.ClassMapping) [][]string {
	rows := [][]string{
		{"class", m.ClassCode + " " + m.ClassName},
		{"code cell", m.CodeCell},
		{"name cell", m.NameCell},
		{"line items", m.LineItemRange().String()},
		{"unit", string(m.Unit)},
	}

	col := func(field, letter string) {
		if letter != "" {
			rows = append(rows, []string{field, letter + strconv.Itoa(m.FirstRow) + ":" + letter + strconv.Itoa(m.LastRow)})
		}
	}
	col("number", m.Columns.Number)
	col("description", m.Columns.Description)
	col("estimate count", m.Columns.EstimateCount)
	col("estimate days", m.Columns.EstimateDays)
	col("estimate rate", m.Columns.EstimateRate)
	col("estimate OT rate", m.Columns.EstimateOTRate)
	col("estimate OT hours", m.Columns.EstimateOTHours)
	col("estimate total", m.Columns.EstimateTotal)
	col("actual days", m.Columns.ActualDays)
	col("actual rate", m.Columns.ActualRate)
	col("actual total", m.Columns.ActualTotal)

	cell := func(field, ref string) {
		if ref != "" {
			rows = append(rows, []string{field, ref})
		}
	}
	cell("subtotal estimate", m.SubtotalEstimateCell)
	cell("subtotal actual", m.SubtotalActualCell)
	cell("P&W label", m.PnWLabelCell)
	cell("P&W rate", m.PnWRateCell)
	cell("P&W actual", m.PnWActualCell)
	cell("total estimate", m.TotalEstimateCell)
	cell("total actual", m.TotalActualCell)
	cell("client total", m.ClientTotalCell)
	return rows
}
