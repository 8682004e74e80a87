package cellmap

// aicpClasses is the cell geography of the sixteen AICP classes. Classes
// without a P&W surcharge report their subtotal cells as totals.
var aicpClasses = []ClassMapping{
	{
		ClassCode: "A", ClassName: "PRE-PRODUCTION & WRAP CREW",
		CodeCell: "L1", NameCell: "M1",
		FirstRow: 4, LastRow: 52, Unit: UnitDays,
		Columns: Columns{
			Number: "L", Description: "M",
			EstimateDays: "N", EstimateRate: "O", EstimateTotal: "P",
			ActualDays: "Q", ActualRate: "R", ActualTotal: "S",
		},
		SubtotalEstimateCell: "P53", SubtotalActualCell: "S53",
		PnWLabelCell: "O54", PnWRateCell: "P54", PnWActualCell: "S54",
		TotalEstimateCell: "P55", TotalActualCell: "S55",
	},
	{
		ClassCode: "B", ClassName: "SHOOTING CREW",
		CodeCell: "T1", NameCell: "U1",
		FirstRow: 4, LastRow: 52, Unit: UnitDays,
		Columns: Columns{
			Number: "T", Description: "U",
			EstimateDays: "V", EstimateRate: "W", EstimateOTRate: "X", EstimateOTHours: "Y", EstimateTotal: "Z",
			ActualDays: "AA", ActualRate: "AB", ActualTotal: "AC",
		},
		SubtotalEstimateCell: "Z53", SubtotalActualCell: "AC53",
		PnWLabelCell: "Y54", PnWRateCell: "Z54", PnWActualCell: "AC54",
		TotalEstimateCell: "Z55", TotalActualCell: "AC55",
	},
	{
		ClassCode: "C", ClassName: "PRE-PRODUCTION & WRAP EXPENSES",
		CodeCell: "AD1", NameCell: "AD1",
		FirstRow: 3, LastRow: 15, Unit: UnitDays,
		Columns: expenseColumns("AD", "AE", "AF", "AG", "AH", "AI", "AJ"),
		SubtotalEstimateCell: "AI16", SubtotalActualCell: "AJ16",
		TotalEstimateCell: "AI16", TotalActualCell: "AJ16",
	},
	{
		ClassCode: "D", ClassName: "LOCATION & TRAVEL EXPENSES",
		CodeCell: "AD18", NameCell: "AD18",
		FirstRow: 20, LastRow: 44, Unit: UnitDays,
		Columns: expenseColumns("AD", "AE", "AF", "AG", "AH", "AI", "AJ"),
		SubtotalEstimateCell: "AI45", SubtotalActualCell: "AJ45",
		TotalEstimateCell: "AI45", TotalActualCell: "AJ45",
	},
	{
		ClassCode: "E", ClassName: "PROPS, WARDROBE & ANIMALS",
		CodeCell: "AD47", NameCell: "AD47",
		FirstRow: 49, LastRow: 59, Unit: UnitDays,
		Columns: expenseColumns("AD", "AE", "AF", "AG", "AH", "AI", "AJ"),
		SubtotalEstimateCell: "AI60", SubtotalActualCell: "AJ60",
		TotalEstimateCell: "AI60", TotalActualCell: "AJ60",
	},
	{
		ClassCode: "F", ClassName: "STUDIO RENTAL & EXPENSES",
		CodeCell: "AK1", NameCell: "AL1",
		FirstRow: 3, LastRow: 19, Unit: UnitUnits,
		Columns: Columns{
			Number: "AK", Description: "AL",
			EstimateDays: "AM", EstimateRate: "AN", EstimateTotal: "AO",
			ActualTotal: "AR",
		},
		SubtotalEstimateCell: "AO20", SubtotalActualCell: "AR20",
		TotalEstimateCell: "AO20", TotalActualCell: "AR20",
	},
	{
		ClassCode: "G", ClassName: "ART DEPARTMENT LABOR",
		CodeCell: "AK22", NameCell: "AL22",
		FirstRow: 24, LastRow: 35, Unit: UnitDays,
		Columns: Columns{
			Number: "AK", Description: "AL",
			EstimateDays: "AM", EstimateRate: "AN", EstimateTotal: "AO",
			ActualTotal: "AR",
		},
		SubtotalEstimateCell: "AO36", SubtotalActualCell: "AR36",
		PnWLabelCell: "AN37", PnWRateCell: "AO37", PnWActualCell: "AR37",
		TotalEstimateCell: "AO38", TotalActualCell: "AR38",
	},
	{
		ClassCode: "H", ClassName: "ART DEPARTMENT EXPENSES",
		CodeCell: "AK40", NameCell: "AL40",
		FirstRow: 42, LastRow: 53, Unit: UnitUnits,
		Columns: Columns{
			Number: "AK", Description: "AL",
			EstimateDays: "AM", EstimateRate: "AN", EstimateTotal: "AO",
			ActualTotal: "AR",
		},
		SubtotalEstimateCell: "AO54", SubtotalActualCell: "AR54",
		TotalEstimateCell: "AO54", TotalActualCell: "AR54",
	},
	{
		ClassCode: "I", ClassName: "EQUIPMENT RENTAL",
		CodeCell: "AS1", NameCell: "AT1",
		FirstRow: 3, LastRow: 20, Unit: UnitDays,
		Columns: expenseColumns("AS", "AT", "AU", "AV", "AW", "AX", "AZ"),
		SubtotalEstimateCell: "AX21", SubtotalActualCell: "AZ21",
		TotalEstimateCell: "AX21", TotalActualCell: "AZ21",
	},
	{
		ClassCode: "J", ClassName: "FILM STOCK & MEDIA",
		CodeCell: "AS23", NameCell: "AT23",
		FirstRow: 25, LastRow: 30, Unit: UnitDays,
		Columns: expenseColumns("AS", "AT", "AU", "AV", "AW", "AX", "AZ"),
		SubtotalEstimateCell: "AX31", SubtotalActualCell: "AZ31",
		TotalEstimateCell: "AX31", TotalActualCell: "AZ31",
	},
	{
		ClassCode: "K", ClassName: "MISCELLANEOUS",
		CodeCell: "AS33", NameCell: "AT33",
		FirstRow: 35, LastRow: 46, Unit: UnitHours,
		Columns: Columns{
			Number: "AS", Description: "AT",
			EstimateDays: "AU", EstimateRate: "AV", EstimateTotal: "AW",
			ActualDays: "AX", ActualTotal: "AY",
		},
		SubtotalEstimateCell: "AW47", SubtotalActualCell: "AY47",
		TotalEstimateCell: "AW47", TotalActualCell: "AY47",
		ClientTotalCell: "BA47",
	},
	{
		ClassCode: "L", ClassName: "DIRECTOR & CREATIVE FEES",
		CodeCell: "AS49", NameCell: "AT49",
		FirstRow: 51, LastRow: 55, Unit: UnitDays,
		Columns: Columns{
			Number: "AS", Description: "AT",
			EstimateDays: "AV", EstimateRate: "AW", EstimateTotal: "AX",
			ActualDays: "AY", ActualTotal: "AZ",
		},
		SubtotalEstimateCell: "AX56", SubtotalActualCell: "AZ56",
		TotalEstimateCell: "AX56", TotalActualCell: "AZ56",
		ClientTotalCell: "BA56",
	},
	{
		ClassCode: "M", ClassName: "TALENT",
		CodeCell: "BB1", NameCell: "BB1",
		FirstRow: 3, LastRow: 33, Unit: UnitDays,
		Columns: expenseColumns("BB", "BC", "BD", "BE", "BF", "BG", "BH"),
		SubtotalEstimateCell: "BG34", SubtotalActualCell: "BH34",
		PnWLabelCell: "BF35", PnWRateCell: "BG35", PnWActualCell: "BH35",
		TotalEstimateCell: "BG36", TotalActualCell: "BH36",
	},
	{
		ClassCode: "N", ClassName: "TALENT EXPENSES",
		CodeCell: "BB47", NameCell: "BB47",
		FirstRow: 49, LastRow: 54, Unit: UnitDays,
		Columns: expenseColumns("BB", "BC", "BD", "BE", "BF", "BG", "BH"),
		SubtotalEstimateCell: "BG55", SubtotalActualCell: "BH55",
		TotalEstimateCell: "BG55", TotalActualCell: "BH55",
	},
	{
		ClassCode: "O", ClassName: "EDITORIAL & FINISHING LABOR",
		CodeCell: "BI1", NameCell: "BI1",
		FirstRow: 3, LastRow: 37, Unit: UnitHours,
		Columns: hourlyColumns("BI", "BJ", "BK", "BL", "BM", "BN", "BO"),
		SubtotalEstimateCell: "BM38", SubtotalActualCell: "BO38",
		TotalEstimateCell: "BM38", TotalActualCell: "BO38",
		ClientTotalCell: "BP38",
	},
	{
		ClassCode: "P", ClassName: "EDITORIAL & FINISHING EXPENSES",
		CodeCell: "BI40", NameCell: "BI40",
		FirstRow: 42, LastRow: 51, Unit: UnitHours,
		Columns: hourlyColumns("BI", "BJ", "BK", "BL", "BM", "BN", "BO"),
		SubtotalEstimateCell: "BM52", SubtotalActualCell: "BO52",
		TotalEstimateCell: "BM52", TotalActualCell: "BO52",
	},
}

// expenseColumns is the "# / days / rate / total / actual" layout.
func expenseColumns(number, description, count, days, rate, total, actual string) Columns {
	return Columns{
		Number: number, Description: description,
		EstimateCount: count, EstimateDays: days, EstimateRate: rate, EstimateTotal: total,
		ActualTotal: actual,
	}
}

// hourlyColumns is the "hours / rate / total / actual hours / actual" layout.
func hourlyColumns(number, description, hours, rate, total, actualHours, actual string) Columns {
	return Columns{
		Number: number, Description: description,
		EstimateDays: hours, EstimateRate: rate, EstimateTotal: total,
		ActualDays: actualHours, ActualTotal: actual,
	}
}
