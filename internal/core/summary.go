package core

// MonthTotal is one bucket of the yearly summary. Balance is the net
// (income minus expense) carried forward from January.
type MonthTotal struct {
	Month   int   `json:"month"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// YearSummary always holds exactly 12 entries, months 1 through 12,
// even when no transaction exists for a month. Chart-rendering callers
// rely on that ordering and completeness.
type YearSummary struct {
	Year   int          `json:"year"`
	Series []MonthTotal `json:"series"`
}

// MonthAggregate is a sparse per-month sum as produced by the store.
type MonthAggregate struct {
	Month        int
	IncomeCents  int64
	ExpenseCents int64
}

// BuildYearSummary expands sparse month rows into the full 12-month
// series and computes the running balance:
//
//	balance[m] = balance[m-1] + income[m] - expense[m]
//
// starting from zero before January.
func BuildYearSummary(year int, rows []MonthAggregate) YearSummary {
	byMonth := make(map[int]MonthAggregate, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}

	series := make([]MonthTotal, 0, 12)
	var balance int64
	for m := 1; m <= 12; m++ {
		r := byMonth[m]
		balance += r.IncomeCents - r.ExpenseCents
		series = append(series, MonthTotal{
			Month:   m,
			Income:  Money{Cents: r.IncomeCents},
			Expense: Money{Cents: r.ExpenseCents},
			Balance: Money{Cents: balance},
		})
	}
	return YearSummary{Year: year, Series: series}
}
