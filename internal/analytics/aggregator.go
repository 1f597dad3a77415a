// Package analytics computes the monthly time series and scalar KPIs
// shown on the income and expense dashboards.
//
// All functions are pure computation over caller-supplied records; the
// HTTP layer fetches and caches the rows, a charting client renders the
// resulting labels and totals.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultWindowMonths is the trailing window size used by the dashboards.
const DefaultWindowMonths = 12

// ErrInvalidMonthCount reports a non-positive window size. This is a
// programmer error, never coerced.
var ErrInvalidMonthCount = errors.New("month count must be at least 1")

// Record is the minimal shape of a dated monetary row. Storage rows are
// mapped into it before aggregation; extra fields are simply not carried
// over. A Record with a date that fails to parse is excluded from every
// date-filtered computation, not zero-filled.
type Record struct {
	Date   string  // calendar date, "YYYY-MM-DD"
	Amount float64 // signed as the caller models it, no normalization here
}

// MonthBucket is one slot of a trailing month window.
type MonthBucket struct {
	Label string  `json:"label"` // abbreviated month name, fixed locale
	Key   string  `json:"key"`   // "YYYY-MM", zero-padded
	Total float64 `json:"total"`
}

// Abbreviated month names as the console has always displayed them
// (Spanish, lowercase).
var monthAbbrev = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// ParseDate parses a "YYYY-MM-DD" string with deliberately minimal
// validation: exactly three dash-separated numeric components, none of
// them zero. Out-of-range components normalize arithmetically (month 13
// rolls into the next year), matching how rows have historically been
// bucketed. Anything else is invalid and the record is skipped.
func ParseDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n == 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.Local), true
}

// MonthKey returns the "YYYY-MM" bucket key for a date.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d-%02d", t.Year(), int(t.Month()))
}

// Window returns the trailing months-sized sequence of zero-total
// buckets anchored at ref, oldest first. The reference date is
// normalized to the first of its month, so the last bucket is always
// ref's own month. Bucket keys are contiguous months with no gaps.
func Window(ref time.Time, months int) ([]MonthBucket, error) {
	if months < 1 {
		return nil, ErrInvalidMonthCount
	}
	base := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	buckets := make([]MonthBucket, 0, months)
	for i := months - 1; i >= 0; i-- {
		d := time.Date(base.Year(), base.Month()-time.Month(i), 1, 0, 0, 0, 0, base.Location())
		buckets = append(buckets, MonthBucket{
			Label: monthAbbrev[int(d.Month())-1],
			Key:   MonthKey(d),
		})
	}
	return buckets, nil
}

// AggregateByMonth sums record amounts into the trailing month window.
// Records with unparsable dates are skipped; records dated outside the
// window are dropped, never clipped into the nearest edge. The result
// preserves window order and is deterministic for identical inputs.
func AggregateByMonth(records []Record, ref time.Time, months int) ([]MonthBucket, error) {
	buckets, err := Window(ref, months)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Key] = i
	}
	for _, r := range records {
		d, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		if i, ok := index[MonthKey(d)]; ok {
			buckets[i].Total += r.Amount
		}
	}
	return buckets, nil
}

// SumSince sums the amounts of all records dated on or after cutoff.
// Unparsable dates are excluded; an empty or all-invalid collection
// sums to zero.
func SumSince(records []Record, cutoff time.Time) float64 {
	var sum float64
	for _, r := range records {
		d, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		if !d.Before(cutoff) {
			sum += r.Amount
		}
	}
	return sum
}

// Average returns the arithmetic mean of all record amounts, 0 for an
// empty collection. Unlike SumSince and AggregateByMonth it does not
// look at dates at all, so rows with broken dates still count; the
// console has always computed the average ticket this way.
func Average(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var total float64
	for _, r := range records {
		total += r.Amount
	}
	return total / float64(len(records))
}

var crcTag, crcTagErr = language.Parse("es-CR")

// FormatCurrency renders an amount as a display-ready colón string with
// no fractional digits. Grouping follows the es-CR locale via x/text;
// if the tag ever fails to parse, a manually grouped string is produced
// instead. It never fails, NaN and infinities render as zero.
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	n := int64(math.Round(amount))
	if crcTagErr == nil {
		return message.NewPrinter(crcTag).Sprintf("₡%d", n)
	}
	return "₡ " + groupThousands(n)
}

// groupThousands inserts "." separators every three digits.
func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var b strings.Builder
		lead := len(s) % 3
		if lead > 0 {
			b.WriteString(s[:lead])
		}
		for i := lead; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}
