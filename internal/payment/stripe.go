package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Stripe charges cards through PaymentIntents. Amounts are whole naira and
// are sent to Stripe in kobo.
type Stripe struct {
	intents intentCreator
	now     func() time.Time
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{
		intents: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		now:     time.Now,
	}
}

func (s *Stripe) Pay(ctx context.Context, charge Charge) (Receipt, error) {
	if strings.TrimSpace(charge.PaymentMethodID) == "" {
		return Receipt{}, Decline("Card details are incomplete.")
	}

	currency := strings.ToLower(charge.Currency)
	if currency == "" {
		currency = "ngn"
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(charge.Amount * 100),
		Currency:           stripe.String(currency),
		PaymentMethod:      stripe.String(charge.PaymentMethodID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(charge.Description),
	}
	if charge.Email != "" {
		params.ReceiptEmail = stripe.String(charge.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(charge))
	params.AddMetadata("draft_id", charge.DraftID)

	intent, err := s.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return Receipt{}, Decline(stripeErr.Msg)
		}
		return Receipt{}, fmt.Errorf("create payment intent: %w", err)
	}

	receipt := Receipt{Reference: intent.ID, Provider: "stripe", ProcessedAt: s.now()}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		receipt.Status = StatusSucceeded
	case stripe.PaymentIntentStatusProcessing:
		receipt.Status = StatusPending
	case stripe.PaymentIntentStatusRequiresAction:
		return Receipt{}, Decline("Your bank requires additional authentication for this card.")
	default:
		return Receipt{}, Decline("Your card was not charged. Please try another card.")
	}

	return receipt, nil
}

// idempotencyKey is unique per submission so a retry after a decline is a
// new charge rather than a replay of the failed one.
func idempotencyKey(charge Charge) string {
	return fmt.Sprintf("%s:%d", charge.DraftID, max(charge.Attempt, 1))
}
