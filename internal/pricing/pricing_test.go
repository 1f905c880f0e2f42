package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeTotal(t *testing.T) {
	t.Parallel()

	t.Run("three nights at the standard surcharges", func(t *testing.T) {
		got := ComputeTotal(95000, date(time.January, 15), date(time.January, 18), 0.075, 5000)

		require.Equal(t, 3, got.Nights)
		assert.Equal(t, int64(285000), got.Base)
		assert.Equal(t, int64(21375), got.Taxes)
		assert.Equal(t, int64(5000), got.ServiceFee)
		assert.Equal(t, int64(311375), got.Total)
	})

	t.Run("identical inputs give identical breakdowns", func(t *testing.T) {
		in, out := date(time.March, 1), date(time.March, 4)
		first := ComputeTotal(87500, in, out, 0.075, 5000)
		second := ComputeTotal(87500, in, out, 0.075, 5000)

		assert.Equal(t, first, second)
	})

	t.Run("same day check-out gives zero nights", func(t *testing.T) {
		got := ComputeTotal(95000, date(time.May, 2), date(time.May, 2), 0.075, 5000)

		assert.Equal(t, 0, got.Nights)
		assert.Zero(t, got.Base)
		assert.Zero(t, got.Taxes)
		assert.Equal(t, int64(5000), got.Total)
	})

	t.Run("check-out before check-in goes negative", func(t *testing.T) {
		got := ComputeTotal(10000, date(time.May, 5), date(time.May, 3), 0.1, 500)

		assert.Equal(t, -2, got.Nights)
		assert.Equal(t, int64(-20000), got.Base)
		assert.Equal(t, int64(-2000), got.Taxes)
		assert.Equal(t, int64(-21500), got.Total)
	})

	t.Run("partial day rounds up to a full night", func(t *testing.T) {
		in := time.Date(2025, time.June, 1, 14, 0, 0, 0, time.UTC)
		out := time.Date(2025, time.June, 3, 11, 0, 0, 0, time.UTC)

		assert.Equal(t, 2, ComputeTotal(1000, in, out, 0, 0).Nights)
	})

	t.Run("taxes round half up", func(t *testing.T) {
		got := ComputeTotal(10, date(time.July, 1), date(time.July, 2), 0.05, 0)

		assert.Equal(t, int64(1), got.Taxes)
	})
}

func TestRulesQuote(t *testing.T) {
	t.Parallel()

	got := DefaultRules().Quote(95000, DateRange{From: date(time.January, 15), To: date(time.January, 18)})

	assert.Equal(t, int64(311375), got.Total)
}

func TestFormatNaira(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "₦311,375", FormatNaira(311375))
	assert.Equal(t, "₦0", FormatNaira(0))
	assert.Equal(t, "₦950", FormatNaira(950))
	assert.Equal(t, "-₦1,000,000", FormatNaira(-1000000))
}
