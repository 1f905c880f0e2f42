// Package pricing turns a nightly rate and a stay into the breakdown shown
// before payment. Amounts are whole currency units; no fractional subunit is
// tracked.
package pricing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTaxRate    = 0.075
	DefaultServiceFee = int64(5000)

	day = 24 * time.Hour
)

type Breakdown struct {
	Nights     int   `json:"nights"`
	Base       int64 `json:"base"`
	Taxes      int64 `json:"taxes"`
	ServiceFee int64 `json:"serviceFee"`
	Total      int64 `json:"total"`
}

type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Rules are the fixed surcharges applied on top of the room rate.
type Rules struct {
	TaxRate    float64
	ServiceFee int64
}

func DefaultRules() Rules {
	return Rules{TaxRate: DefaultTaxRate, ServiceFee: DefaultServiceFee}
}

func (r Rules) Quote(nightlyRate int64, stay DateRange) Breakdown {
	return ComputeTotal(nightlyRate, stay.From, stay.To, r.TaxRate, r.ServiceFee)
}

// ComputeTotal never fails. A check-out on or before check-in yields zero or
// negative nights and the totals follow; callers guard the range.
func ComputeTotal(nightlyRate int64, checkIn time.Time, checkOut time.Time, taxRate float64, serviceFee int64) Breakdown {
	nights := Nights(checkIn, checkOut)
	base := nightlyRate * int64(nights)
	taxes := roundMoney(float64(base) * taxRate)

	return Breakdown{
		Nights:     nights,
		Base:       base,
		Taxes:      taxes,
		ServiceFee: serviceFee,
		Total:      base + taxes + serviceFee,
	}
}

// Nights is ceil((checkOut - checkIn) / 1 day).
func Nights(checkIn time.Time, checkOut time.Time) int {
	span := checkOut.Sub(checkIn)
	nights := span / day
	if span%day > 0 {
		nights++
	}
	return int(nights)
}

// roundMoney rounds half up, toward positive infinity.
func roundMoney(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// FormatNaira renders an amount with thousand separators, e.g. ₦311,375.
func FormatNaira(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}

	return sign + "₦" + out.String()
}
