package payment

import (
	"context"
	"time"
)

// DeclinedTestCard is always refused by Simulated.
const DeclinedTestCard = "4000000000000002"

// Simulated approves every charge after Delay. It is the card processor used
// when no Stripe key is configured.
type Simulated struct {
	Delay time.Duration
	now   func() time.Time
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay, now: time.Now}
}

func (s *Simulated) Pay(ctx context.Context, charge Charge) (Receipt, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	if charge.Amount <= 0 {
		return Receipt{}, Decline("The booking total must be greater than zero.")
	}
	if NormalizeCardNumber(charge.CardNumber) == DeclinedTestCard {
		return Receipt{}, Decline("Your card was declined.")
	}

	return Receipt{
		Reference:   NewReference("STY"),
		Provider:    "simulated",
		Status:      StatusSucceeded,
		ProcessedAt: s.now(),
	}, nil
}

func NormalizeCardNumber(number string) string {
	out := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			out = append(out, number[i])
		}
	}
	return string(out)
}
