package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerate_ZeroRateStraightLine(t *testing.T) {
	rows, err := Generate(Terms{
		Principal:  d("1000000"),
		AnnualRate: decimal.Zero,
		Term:       6,
		Frequency:  FrequencyMonthly,
		Method:     MethodAnnuity,
		StartDate:  start,
	})
	require.NoError(t, err)
	require.Len(t, rows, 6)

	for i := 0; i < 5; i++ {
		assert.True(t, rows[i].Principal.Equal(d("166666.67")), "row %d principal = %s", i+1, rows[i].Principal)
	}
	assert.True(t, rows[5].Principal.Equal(d("166666.65")), "last row principal = %s", rows[5].Principal)

	for _, r := range rows {
		assert.True(t, r.Interest.IsZero())
		assert.True(t, r.Total.Equal(r.Principal))
	}
	assert.True(t, TotalPrincipal(rows).Equal(d("1000000")))
	assert.True(t, rows[5].RemainingBalance.IsZero())
}

func TestGenerate_AnnuityInterestOnPriorBalance(t *testing.T) {
	principal := d("500000")
	rows, err := Generate(Terms{
		Principal:  principal,
		AnnualRate: d("12"),
		Term:       12,
		Frequency:  FrequencyMonthly,
		Method:     MethodAnnuity,
		StartDate:  start,
	})
	require.NoError(t, err)
	require.Len(t, rows, 12)

	balance := principal
	for _, r := range rows {
		expected := balance.Mul(d("0.01")).Round(Precision)
		assert.True(t, r.Interest.Equal(expected), "period %d interest = %s, want %s", r.Period, r.Interest, expected)
		balance = balance.Sub(r.Principal)
	}
	assert.True(t, balance.IsZero(), "balance after last row = %s", balance)
	assert.True(t, rows[11].RemainingBalance.IsZero())

	// Payment for 500k at 1% monthly over 12 periods is about 44,424.39
	assert.True(t, rows[0].Total.Sub(d("44424.39")).Abs().LessThan(d("0.01")), "payment = %s", rows[0].Total)
}

func TestGenerate_FlatInterestOnOriginalPrincipal(t *testing.T) {
	tests := []struct {
		name      string
		frequency Frequency
		term      int
		rows      int
		principal string
		interest  string
	}{
		{"monthly", FrequencyMonthly, 12, 12, "1000", "120"},
		{"biweekly is half the monthly interest", FrequencyBiweekly, 6, 12, "1000", "60"},
		{"weekly is a quarter of the monthly interest", FrequencyWeekly, 3, 12, "1000", "30"},
		{"quarterly", FrequencyQuarterly, 4, 4, "3000", "360"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Generate(Terms{
				Principal:  d("12000"),
				AnnualRate: d("12"),
				Term:       tt.term,
				Frequency:  tt.frequency,
				Method:     MethodFlat,
				StartDate:  start,
			})
			require.NoError(t, err)
			require.Len(t, rows, tt.rows)
			for _, r := range rows {
				assert.True(t, r.Principal.Equal(d(tt.principal)), "principal = %s", r.Principal)
				assert.True(t, r.Interest.Equal(d(tt.interest)), "interest = %s", r.Interest)
			}
		})
	}
}

func TestGenerate_BalloonOnLastRowOnly(t *testing.T) {
	rows, err := Generate(Terms{
		Principal:  d("100000"),
		AnnualRate: d("10"),
		Term:       12,
		Frequency:  FrequencyMonthly,
		Method:     MethodBalloon,
		StartDate:  start,
		Balloon:    d("20000"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 12)

	amortized := decimal.Zero
	for i, r := range rows {
		amortized = amortized.Add(r.Principal.Sub(r.Balloon))
		if i < len(rows)-1 {
			assert.True(t, r.Balloon.IsZero())
		}
	}
	last := rows[len(rows)-1]
	assert.True(t, last.Balloon.Equal(d("20000")))
	assert.True(t, last.Principal.GreaterThan(d("20000")))
	assert.True(t, last.Total.Equal(last.Principal.Add(last.Interest)))
	assert.True(t, amortized.Equal(d("80000")), "amortized = %s", amortized)
	assert.True(t, TotalPrincipal(rows).Equal(d("100000")))
	assert.True(t, last.RemainingBalance.IsZero())
}

func TestGenerate_ComponentsSumAcrossMethodsAndFrequencies(t *testing.T) {
	frequencies := []Frequency{FrequencyMonthly, FrequencyWeekly, FrequencyBiweekly, FrequencyQuarterly, FrequencySemiannual, FrequencyAnnual}
	methods := []Method{MethodAnnuity, MethodFlat, MethodBalloon}
	principals := []string{"999.99", "12345.67", "250000"}

	for _, f := range frequencies {
		for _, m := range methods {
			for _, p := range principals {
				principal := d(p)
				balloon := decimal.Zero
				if m == MethodBalloon {
					balloon = principal.Div(d("7")).Round(2)
				}
				rows, err := Generate(Terms{
					Principal:  principal,
					AnnualRate: d("7.35"),
					Term:       7,
					Frequency:  f,
					Method:     m,
					StartDate:  start,
					Balloon:    balloon,
				})
				require.NoError(t, err)
				require.Len(t, rows, RowCount(f, 7))

				amortized := decimal.Zero
				for _, r := range rows {
					amortized = amortized.Add(r.Principal.Sub(r.Balloon))
				}
				assert.True(t, amortized.Equal(principal.Sub(balloon)), "%s/%s/%s amortized %s", f, m, p, amortized)
				assert.True(t, TotalPrincipal(rows).Equal(principal), "%s/%s/%s total %s", f, m, p, TotalPrincipal(rows))
			}
		}
	}
}

func TestGenerate_DueDatesFollowFrequency(t *testing.T) {
	weekly, err := Generate(Terms{Principal: d("400"), Term: 1, Frequency: FrequencyWeekly, Method: MethodAnnuity, StartDate: start})
	require.NoError(t, err)
	require.Len(t, weekly, 4)
	assert.Equal(t, start.AddDate(0, 0, 7), weekly[0].DueDate)
	assert.Equal(t, start.AddDate(0, 0, 28), weekly[3].DueDate)

	annual, err := Generate(Terms{Principal: d("400"), Term: 2, Frequency: FrequencyAnnual, Method: MethodAnnuity, StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(2, 0, 0), annual[1].DueDate)
}

func TestGenerate_RejectsInvalidTerms(t *testing.T) {
	valid := Terms{Principal: d("1000"), AnnualRate: d("5"), Term: 12, Frequency: FrequencyMonthly, Method: MethodAnnuity, StartDate: start}

	tests := []struct {
		name  string
		terms func(Terms) Terms
		field string
	}{
		{"negative principal", func(t Terms) Terms { t.Principal = d("-1"); return t }, "principal"},
		{"balloon above principal", func(t Terms) Terms { t.Balloon = d("1000.01"); return t }, "balloon"},
		{"negative balloon", func(t Terms) Terms { t.Balloon = d("-5"); return t }, "balloon"},
		{"zero term", func(t Terms) Terms { t.Term = 0; return t }, "term"},
		{"negative rate", func(t Terms) Terms { t.AnnualRate = d("-1"); return t }, "annual_rate"},
		{"unknown frequency", func(t Terms) Terms { t.Frequency = "daily"; return t }, "frequency"},
		{"unknown method", func(t Terms) Terms { t.Method = "rule78"; return t }, "method"},
		{"zero_rate with a rate", func(t Terms) Terms { t.Method = MethodZeroRate; return t }, "method"},
		{"balloon method without balloon", func(t Terms) Terms { t.Method = MethodBalloon; return t }, "balloon"},
		{"missing start date", func(t Terms) Terms { t.StartDate = time.Time{}; return t }, "start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Generate(tt.terms(valid))
			assert.Nil(t, rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTerms))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseMethodAndFrequency(t *testing.T) {
	m, err := ParseMethod("effective")
	require.NoError(t, err)
	assert.Equal(t, MethodAnnuity, m)

	m, err = ParseMethod("linear")
	require.NoError(t, err)
	assert.Equal(t, MethodFlat, m)

	_, err = ParseMethod("bogus")
	assert.ErrorIs(t, err, ErrInvalidTerms)

	f, err := ParseFrequency("")
	require.NoError(t, err)
	assert.Equal(t, FrequencyMonthly, f)

	_, err = ParseFrequency("fortnightly")
	assert.ErrorIs(t, err, ErrInvalidTerms)
}

func TestTermForPeriods(t *testing.T) {
	assert.Equal(t, 3, TermForPeriods(FrequencyWeekly, 9))
	assert.Equal(t, 2, TermForPeriods(FrequencyBiweekly, 4))
	assert.Equal(t, 5, TermForPeriods(FrequencyMonthly, 5))
	assert.Equal(t, 1, TermForPeriods(FrequencyMonthly, 0))
}
