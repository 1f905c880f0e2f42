// Package receipt renders the booking confirmation as a PDF.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/phpdave11/gofpdf"

	"go-stay-portal/internal/booking"
	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
)

var ErrNotConfirmed = errors.New("booking is not confirmed")

type Data struct {
	Draft     booking.Draft
	Confirmed booking.Confirmed
	Quote     pricing.Breakdown
}

// FromWizard collects receipt data from a confirmed wizard.
func FromWizard(w *booking.Wizard) (Data, error) {
	confirmed, ok := w.State().(booking.Confirmed)
	if !ok {
		return Data{}, ErrNotConfirmed
	}
	return Data{Draft: w.Draft(), Confirmed: confirmed, Quote: w.Quote()}, nil
}

func Render(w io.Writer, d Data) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking confirmation "+d.Confirmed.Reference, false)
	pdf.SetAuthor("StayPortal", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING CONFIRMATION")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	line(pdf, "Reference", d.Confirmed.Reference)
	line(pdf, "Status", strings.ToUpper(string(d.Confirmed.Status)))
	line(pdf, "Issued", d.Confirmed.ConfirmedAt.Format("02 Jan 2006 15:04"))
	pdf.Ln(4)

	section(pdf, "Guest")
	line(pdf, "Name", strings.TrimSpace(d.Draft.Guest.FirstName+" "+d.Draft.Guest.LastName))
	line(pdf, "Email", d.Draft.Guest.Email)
	line(pdf, "Phone", d.Draft.Guest.Phone)
	pdf.Ln(4)

	section(pdf, "Stay")
	line(pdf, "Hotel", d.Draft.Room.HotelName)
	line(pdf, "Room", d.Draft.Room.RoomName)
	line(pdf, "Check-in", d.Draft.Stay.From.Format("Mon 02 Jan 2006"))
	line(pdf, "Check-out", d.Draft.Stay.To.Format("Mon 02 Jan 2006"))
	line(pdf, "Nights", fmt.Sprintf("%d", d.Quote.Nights))
	pdf.Ln(4)

	section(pdf, "Charges")
	line(pdf, fmt.Sprintf("%s x %d", money(d.Draft.Room.NightlyRate), d.Quote.Nights), money(d.Quote.Base))
	line(pdf, "Taxes", money(d.Quote.Taxes))
	line(pdf, "Service fee", money(d.Quote.ServiceFee))
	pdf.SetFont("Helvetica", "B", 12)
	line(pdf, "Total", money(d.Quote.Total))
	pdf.SetFont("Helvetica", "", 12)

	if d.Confirmed.Status == payment.StatusPending && d.Confirmed.Instructions != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, strings.ReplaceAll(d.Confirmed.Instructions, "₦", "NGN "), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 12)
}

func line(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		value = "-"
	}
	pdf.CellFormat(50, 7, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}

// money avoids the naira sign, which the core PDF fonts cannot encode.
func money(amount int64) string {
	return strings.Replace(pricing.FormatNaira(amount), "₦", "NGN ", 1)
}
