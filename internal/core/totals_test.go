package core

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func exp(category, amount string) Expense {
	return Expense{Category: category, Amount: amount}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)
	require.Zero(t, got.Len())
	require.Zero(t, got.Skipped)
	require.Empty(t, got.Chart().Labels)
}

func TestAggregate_SumsSameCategory(t *testing.T) {
	got := Aggregate([]Expense{exp("Food", "10"), exp("Food", "5")})
	require.Equal(t, 1, got.Len())
	total, ok := got.Get("Food")
	require.True(t, ok)
	require.Equal(t, "15.00", total.String())
	require.Equal(t, 2, got.Categories[0].Count)
}

func TestAggregate_FirstSeenOrder(t *testing.T) {
	in := []Expense{
		exp("Rent", "800"),
		exp("Food", "12.5"),
		exp("Rent", "20"),
		exp("Fun", "3"),
		exp("Food", "7.5"),
	}
	got := Aggregate(in)
	require.Equal(t, []string{"Rent", "Food", "Fun"}, got.Chart().Labels)
	require.Equal(t, []float64{820, 20, 3}, got.Chart().Data)
}

func TestAggregate_TotalsAreOrderIndependent(t *testing.T) {
	a := []Expense{exp("A", "1.10"), exp("B", "2"), exp("A", "3.35"), exp("B", "0.05")}
	b := []Expense{a[3], a[2], a[1], a[0]}

	ga, gb := Aggregate(a), Aggregate(b)
	for _, cat := range []string{"A", "B"} {
		ta, _ := ga.Get(cat)
		tb, _ := gb.Get(cat)
		require.True(t, ta.Equal(tb), "category %s: %s != %s", cat, ta, tb)
	}
	require.Equal(t, []string{"A", "B"}, ga.Chart().Labels)
	require.Equal(t, []string{"B", "A"}, gb.Chart().Labels)
}

// An unparsable amount must not poison the category: it counts as zero and
// is reported through Skipped.
func TestAggregate_UnparsableAmountPolicy(t *testing.T) {
	got := Aggregate([]Expense{exp("Food", "x")})
	total, ok := got.Get("Food")
	require.True(t, ok)
	require.Equal(t, "0.00", total.String())
	require.Equal(t, 1, got.Skipped)

	got = Aggregate([]Expense{exp("Food", "x"), exp("Food", "4"), exp("Food", "")})
	total, _ = got.Get("Food")
	require.Equal(t, "4.00", total.String())
	require.Equal(t, 2, got.Skipped)
	for _, v := range got.Chart().Data {
		require.False(t, math.IsNaN(v))
	}
}

func TestAggregate_PaletteWraps(t *testing.T) {
	var in []Expense
	for _, c := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		in = append(in, exp(c, "1"))
	}
	colors := Aggregate(in).Chart().Colors
	require.Len(t, colors, 7)
	require.Equal(t, Palette[0], colors[5])
	require.Equal(t, Palette[1], colors[6])
}

func TestTotalsGrand(t *testing.T) {
	got := Aggregate([]Expense{exp("A", "1.5"), exp("B", "2.25"), exp("C", "oops")})
	require.Equal(t, "3.75", got.Grand().String())
}

// Sums of amounts near the per-expense ceiling keep growing instead of
// wrapping around.
func TestAggregate_LargeSumsDoNotWrap(t *testing.T) {
	const n = 93
	in := make([]Expense, n)
	for i := range in {
		in[i] = exp("Food", "999999999999999")
	}
	got := Aggregate(in)
	require.Zero(t, got.Skipped)

	want := decimal.RequireFromString("999999999999999").Mul(decimal.NewFromInt(n))
	total, ok := got.Get("Food")
	require.True(t, ok)
	require.True(t, total.Decimal().IsPositive())
	require.True(t, total.Decimal().Equal(want), "got %s want %s", total, want)

	got = Aggregate(append(in, exp("Rent", "999999999999999")))
	require.True(t, got.Grand().Decimal().Equal(want.Add(decimal.RequireFromString("999999999999999"))))
	require.False(t, strings.HasPrefix(got.Grand().String(), "-"))
	require.Greater(t, got.Chart().Data[0], 0.0)
}
