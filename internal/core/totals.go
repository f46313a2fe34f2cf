package core

// Palette is the fixed set of chart colors, assigned by category position.
var Palette = []string{"#3498db", "#e74c3c", "#f1c40f", "#2ecc71", "#9b59b6"}

// ColorAt returns the palette color for the i-th category. Colors wrap once
// the palette is exhausted.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// CategoryTotal is the accumulated amount of one category.
type CategoryTotal struct {
	Category string
	Total    Money
	Color    string
	Count    int
}

// Totals is the per-category breakdown of an expense collection.
type Totals struct {
	// Categories in first-seen order.
	Categories []CategoryTotal
	// Skipped counts expenses whose amount could not be parsed. Their
	// category is still listed; the amount contributes nothing.
	Skipped int
}

// Aggregate sums expense amounts by category. It is a pure function of its
// input: category order follows first occurrence, and an unparsable amount
// counts as zero and is reported in Skipped.
func Aggregate(expenses []Expense) Totals {
	var t Totals
	index := make(map[string]int, len(expenses))
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(t.Categories)
			index[e.Category] = i
			t.Categories = append(t.Categories, CategoryTotal{Category: e.Category, Color: ColorAt(i)})
		}
		t.Categories[i].Count++
		amt, err := ParseAmount(e.Amount)
		if err != nil {
			t.Skipped++
			continue
		}
		t.Categories[i].Total = t.Categories[i].Total.Add(amt)
	}
	return t
}

// Len returns the number of distinct categories.
func (t Totals) Len() int { return len(t.Categories) }

// Get returns the total of one category.
func (t Totals) Get(category string) (Money, bool) {
	for _, c := range t.Categories {
		if c.Category == category {
			return c.Total, true
		}
	}
	return Money{}, false
}

// Grand returns the sum over all categories.
func (t Totals) Grand() Money {
	var m Money
	for _, c := range t.Categories {
		m = m.Add(c.Total)
	}
	return m
}

// ChartData is the Chart.js dataset derived from Totals.
type ChartData struct {
	Labels  []string  `json:"labels"`
	Data    []float64 `json:"data"`
	Colors  []string  `json:"colors"`
	Skipped int       `json:"skipped"`
}

// Chart converts the breakdown into pie chart data.
func (t Totals) Chart() ChartData {
	cd := ChartData{
		Labels:  make([]string, 0, len(t.Categories)),
		Data:    make([]float64, 0, len(t.Categories)),
		Colors:  make([]string, 0, len(t.Categories)),
		Skipped: t.Skipped,
	}
	for _, c := range t.Categories {
		cd.Labels = append(cd.Labels, c.Category)
		cd.Data = append(cd.Data, c.Total.Float())
		cd.Colors = append(cd.Colors, c.Color)
	}
	return cd
}
