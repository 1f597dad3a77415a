package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	ref := time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)

	buckets, err := Window(ref, 3)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, []string{"2024-04", "2024-05", "2024-06"}, keys(buckets))
	assert.Equal(t, []string{"abr", "may", "jun"}, labels(buckets))
	for _, b := range buckets {
		assert.Zero(t, b.Total)
	}
}

func TestWindow_YearBoundary(t *testing.T) {
	ref := time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)

	buckets, err := Window(ref, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, keys(buckets))
	assert.Equal(t, []string{"nov", "dic", "ene", "feb"}, labels(buckets))
}

func TestWindow_SingleMonth(t *testing.T) {
	ref := time.Date(2024, 6, 30, 23, 59, 59, 0, time.Local)

	buckets, err := Window(ref, 1)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "2024-06", buckets[0].Key)
}

func TestWindow_InvalidMonthCount(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

	for _, months := range []int{0, -1, -12} {
		_, err := Window(ref, months)
		assert.ErrorIs(t, err, ErrInvalidMonthCount)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  time.Time
	}{
		{"2024-06-15", true, time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)},
		// Out-of-range components normalize arithmetically.
		{"2024-13-01", true, time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)},
		{"2024-02-30", true, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)},
		{"2024-00-15", false, time.Time{}},
		{"2024-06-00", false, time.Time{}},
		{"2024-06", false, time.Time{}},
		{"2024-06-15-00", false, time.Time{}},
		{"abc-06-15", false, time.Time{}},
		{"", false, time.Time{}},
		{"junio 15 2024", false, time.Time{}},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.valid, ok, "ParseDate(%q)", tt.in)
		if tt.valid {
			assert.True(t, got.Equal(tt.want), "ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAggregateByMonth(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)
	records := []Record{
		{Date: "2024-05-10", Amount: 200},
		{Date: "2024-06-01", Amount: 100},
		{Date: "2024-06-28", Amount: 200},
		{Date: "2023-12-25", Amount: 999},  // outside the window, dropped
		{Date: "not-a-date", Amount: 1000}, // unparsable, skipped
	}

	buckets, err := AggregateByMonth(records, ref, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-04", "2024-05", "2024-06"}, keys(buckets))
	assert.Equal(t, []float64{0, 200, 300}, totals(buckets))
}

func TestAggregateByMonth_EmptyRecords(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

	buckets, err := AggregateByMonth(nil, ref, 12)
	require.NoError(t, err)
	require.Len(t, buckets, 12)
	for _, b := range buckets {
		assert.Zero(t, b.Total)
	}
}

func TestAggregateByMonth_InvalidMonthCount(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)

	_, err := AggregateByMonth([]Record{{Date: "2024-06-01", Amount: 10}}, ref, 0)
	assert.ErrorIs(t, err, ErrInvalidMonthCount)
}

func TestSumSince(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	records := []Record{
		{Date: "2024-06-01", Amount: 50}, // on the cutoff, included
		{Date: "2024-06-15", Amount: 100},
		{Date: "2024-05-31", Amount: 999}, // before the cutoff
		{Date: "broken", Amount: 999},     // unparsable, excluded
	}

	assert.InDelta(t, 150, SumSince(records, cutoff), 1e-9)
}

func TestSumSince_Empty(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

	assert.Zero(t, SumSince(nil, cutoff))
	assert.Zero(t, SumSince([]Record{{Date: "bad", Amount: 10}}, cutoff))
}

func TestAverage(t *testing.T) {
	assert.InDelta(t, 15, Average([]Record{
		{Date: "2024-06-01", Amount: 10},
		{Date: "2024-06-02", Amount: 20},
	}), 1e-9)

	assert.Zero(t, Average(nil))
	assert.Zero(t, Average([]Record{}))
}

func TestAverage_CountsUnparsableDates(t *testing.T) {
	// Average is a pure amount mean; a row with a broken date still
	// contributes, unlike in the date-filtered computations.
	records := []Record{
		{Date: "2024-06-01", Amount: 10},
		{Date: "not-a-date", Amount: 20},
	}

	assert.InDelta(t, 15, Average(records), 1e-9)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "1234567", digitsOf(FormatCurrency(1234567)))
	assert.Equal(t, "₡", FormatCurrency(0)[:len("₡")])
	assert.Equal(t, "0", digitsOf(FormatCurrency(0)))

	// Rounds to the nearest integer before formatting.
	assert.Equal(t, "13", digitsOf(FormatCurrency(12.6)))
	assert.Equal(t, "12", digitsOf(FormatCurrency(12.4)))
}

func TestFormatCurrency_NonFinite(t *testing.T) {
	assert.Equal(t, "0", digitsOf(FormatCurrency(math.NaN())))
	assert.Equal(t, "0", digitsOf(FormatCurrency(math.Inf(1))))
	assert.Equal(t, "0", digitsOf(FormatCurrency(math.Inf(-1))))
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{1234567, "1.234.567"},
		{-1234567, "-1.234.567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in), "groupThousands(%d)", tt.in)
	}
}

func keys(buckets []MonthBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Key
	}
	return out
}

func labels(buckets []MonthBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Label
	}
	return out
}

func totals(buckets []MonthBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Total
	}
	return out
}

func digitsOf(s string) string {
	var out []rune
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return string(out)
}
