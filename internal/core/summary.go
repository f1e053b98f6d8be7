package core

// UncategorizedLabel groups expenses that were stored without a category.
const UncategorizedLabel = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is derived from the full transaction collection. Sums are exact
// integer cents; rounding happens only when formatting.
type Summary struct {
	Balance      Money
	TotalIncome  Money
	TotalExpense Money
	Breakdown    []CategoryAmount
	Count        int
}

// Summarize computes balance, totals and the expense breakdown. Breakdown
// keys appear in order of first occurrence and include expenses only.
func Summarize(txs []Transaction) Summary {
	var s Summary
	index := make(map[string]int)

	for _, t := range txs {
		s.Balance.Cents += t.Signed()
		switch t.Type {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpense.Cents += t.Amount.Cents

			name := t.Category
			if name == "" {
				name = UncategorizedLabel
			}
			i, ok := index[name]
			if !ok {
				i = len(s.Breakdown)
				index[name] = i
				s.Breakdown = append(s.Breakdown, CategoryAmount{Name: name})
			}
			s.Breakdown[i].Amount.Cents += t.Amount.Cents
		}
	}
	s.Count = len(txs)
	return s
}

// BreakdownSeries splits a breakdown into parallel label and value slices.
func BreakdownSeries(b []CategoryAmount) (labels []string, values []float64) {
	labels = make([]string, len(b))
	values = make([]float64, len(b))
	for i, c := range b {
		labels[i] = c.Name
		values[i] = c.Amount.Float()
	}
	return labels, values
}
