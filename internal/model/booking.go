package model

import "time"

type CreateDraftRequest struct {
	HotelID string    `json:"hotelId"`
	RoomID  string    `json:"roomId"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

type GuestRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests"`
}

type PaymentRequest struct {
	Method          string `json:"method"`
	CardHolder      string `json:"cardHolder"`
	CardNumber      string `json:"cardNumber"`
	Expiry          string `json:"expiry"`
	PaymentMethodID string `json:"paymentMethodId"`
	BankName        string `json:"bankName"`
	AccountName     string `json:"accountName"`
	AgreedToTerms   bool   `json:"agreedToTerms"`
}
