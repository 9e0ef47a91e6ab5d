package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
)

// Receipt is a printable summary of a trip and its settlement.
type Receipt struct {
	TripID              string
	TransactionNumber   string
	CustomerID          string
	DriverID            string
	VehicleID           string
	PickupLocation      string
	DestinationLocation string
	ReturnLocation      string
	RideDurationHours   int
	Status              domain.TripStatus
	TotalAmount         decimal.Decimal
	PaidAmount          decimal.Decimal
	Outstanding         decimal.Decimal
	IsPaid              bool
	Shares              domain.Shares
	RolePaid            domain.Shares
	RoleDue             domain.Shares
	Payments            []domain.Payment
	GeneratedAt         time.Time
}

// ReceiptService handles receipt generation.
type ReceiptService struct {
	mutator             *TripMutator
	notificationService *NotificationService
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(mutator *TripMutator, notificationService *NotificationService) *ReceiptService {
	return &ReceiptService{
		mutator:             mutator,
		notificationService: notificationService,
	}
}

// GenerateReceipt builds the receipt of a trip from its current state.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, tenantID, tripID string) (*Receipt, error) {
	trip, err := s.mutator.loadTrip(ctx, tenantID, tripID)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		TripID:              trip.ID,
		TransactionNumber:   trip.TransactionNumber,
		CustomerID:          trip.CustomerID,
		DriverID:            trip.DriverID,
		VehicleID:           trip.VehicleID,
		PickupLocation:      trip.PickupLocation,
		DestinationLocation: trip.DestinationLocation,
		ReturnLocation:      trip.ReturnLocation,
		RideDurationHours:   trip.RideDurationHours,
		Status:              trip.Status,
		TotalAmount:         trip.TotalAmount,
		PaidAmount:          trip.PaidAmount,
		Outstanding:         trip.Outstanding(),
		IsPaid:              trip.IsPaid,
		Shares:              trip.Shares,
		RolePaid:            trip.RolePaid,
		RoleDue:             trip.RoleDue(),
		Payments:            trip.Payments,
		GeneratedAt:         time.Now().UTC(),
	}

	// Notify customer that receipt is ready
	if s.notificationService != nil {
		s.notificationService.NotifyReceiptReady(ctx, receipt)
	}

	return receipt, nil
}

// FormatReceipt formats the receipt as plain text (for email/print).
func (s *ReceiptService) FormatReceipt(receipt *Receipt) string {
	var b strings.Builder
	line := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }
	rule := strings.Repeat("-", 37)

	line(strings.Repeat("=", 37))
	line("           TRIP RECEIPT")
	line(strings.Repeat("=", 37))
	line("Transaction: %s", receipt.TransactionNumber)
	line("Trip ID:     %s", receipt.TripID)
	line("Date:        %s", receipt.GeneratedAt.Format("Jan 02, 2006 3:04 PM"))
	line("")
	line("TRIP DETAILS")
	line(rule)
	line("Pickup:      %s", receipt.PickupLocation)
	line("Destination: %s", receipt.DestinationLocation)
	if receipt.ReturnLocation != "" {
		line("Return:      %s", receipt.ReturnLocation)
	}
	line("Duration:    %d h", receipt.RideDurationHours)
	line("Status:      %s", receipt.Status)
	line("")
	line("COMMISSION")
	line(rule)
	for _, role := range domain.CommissionRoles {
		line("%-12s %10s  paid %10s", role, money(receipt.Shares.Of(role)), money(receipt.RolePaid.Of(role)))
	}
	line(rule)
	line("TOTAL:       %10s", money(receipt.TotalAmount))
	line("PAID:        %10s", money(receipt.PaidAmount))
	line("OUTSTANDING: %10s", money(receipt.Outstanding))
	line("")
	line("PAYMENTS")
	line(rule)
	if len(receipt.Payments) == 0 {
		line("none")
	}
	for _, p := range receipt.Payments {
		line("%-10s %-8s %10s  %s", p.Method, p.Status, money(p.Amount), p.CreatedAt.Format("Jan 02 15:04"))
	}
	line("")
	line(strings.Repeat("=", 37))
	line("     Thank you for riding with us!")
	line(strings.Repeat("=", 37))
	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
