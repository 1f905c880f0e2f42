package payment

import (
	"context"
	"fmt"
	"time"

	"go-stay-portal/internal/pricing"
)

type BankAccount struct {
	BankName      string
	AccountName   string
	AccountNumber string
}

// BankTransfer does not move money. It issues a reference and the transfer
// instructions; the booking stays pending until the transfer is reconciled.
type BankTransfer struct {
	account BankAccount
	now     func() time.Time
}

func NewBankTransfer(account BankAccount) *BankTransfer {
	return &BankTransfer{account: account, now: time.Now}
}

func (b *BankTransfer) Pay(ctx context.Context, charge Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if charge.Amount <= 0 {
		return Receipt{}, Decline("The booking total must be greater than zero.")
	}

	reference := NewReference("TRF")
	return Receipt{
		Reference: reference,
		Provider:  "bank-transfer",
		Status:    StatusPending,
		Instructions: fmt.Sprintf("Transfer %s to %s, %s (%s) and use %s as the narration.",
			pricing.FormatNaira(charge.Amount), b.account.AccountName, b.account.BankName, b.account.AccountNumber, reference),
		ProcessedAt: b.now(),
	}, nil
}
