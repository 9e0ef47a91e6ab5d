package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ridedispatch/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationStatusChanged    NotificationType = "TRIP_STATUS_CHANGED"
	NotificationTripCancelled    NotificationType = "TRIP_CANCELLED"
	NotificationTripCompleted    NotificationType = "TRIP_COMPLETED"
	NotificationPaymentRecorded  NotificationType = "PAYMENT_RECORDED"
	NotificationPaymentSuccess   NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationReceiptReady     NotificationType = "RECEIPT_READY"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // customer, driver or dispatcher ID
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService handles notification delivery. Delivery is a
// structured log line; push and SMS channels are not wired.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *slog.Logger) *NotificationService {
	return &NotificationService{logger: logger}
}

// NotifyBookingConfirmed tells customer and driver about a new booking.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, trip *domain.Trip) {
	data := map[string]any{
		"trip_id":            trip.ID,
		"transaction_number": trip.TransactionNumber,
		"pickup":             trip.PickupLocation,
		"destination":        trip.DestinationLocation,
	}
	for _, recipient := range []string{trip.CustomerID, trip.DriverID} {
		s.send(ctx, Notification{
			Type:        NotificationBookingConfirmed,
			RecipientID: recipient,
			Title:       "Booking Confirmed",
			Message: fmt.Sprintf("Booking %s from %s to %s confirmed. Total %s",
				trip.TransactionNumber, trip.PickupLocation, trip.DestinationLocation, trip.TotalAmount.StringFixed(2)),
			Data:      data,
			CreatedAt: time.Now(),
		})
	}
}

// NotifyTransition tells the trip's parties about a status change.
func (s *NotificationService) NotifyTransition(ctx context.Context, trip *domain.Trip, tr domain.Transition) {
	kind := NotificationStatusChanged
	title := "Trip Update"
	switch tr.ToStatus {
	case domain.TripStatusCancelled:
		kind, title = NotificationTripCancelled, "Trip Cancelled"
	case domain.TripStatusCompleted:
		kind, title = NotificationTripCompleted, "Trip Completed"
	}

	data := map[string]any{
		"trip_id": tr.TripID,
		"from":    tr.FromStatus,
		"to":      tr.ToStatus,
	}
	for _, recipient := range []string{trip.CustomerID, trip.DriverID, trip.DispatcherID} {
		s.send(ctx, Notification{
			Type:        kind,
			RecipientID: recipient,
			Title:       title,
			Message:     fmt.Sprintf("Trip %s is now %s: %s", trip.TransactionNumber, tr.ToStatus, tr.Description),
			Data:        data,
			CreatedAt:   tr.Timestamp,
		})
	}
}

// NotifyPayment tells the customer and dispatcher about a payment change.
func (s *NotificationService) NotifyPayment(ctx context.Context, trip *domain.Trip, p domain.Payment) {
	kind, title := NotificationPaymentRecorded, "Payment Recorded"
	switch p.Status {
	case domain.PaymentStatusSuccess:
		kind, title = NotificationPaymentSuccess, "Payment Successful"
	case domain.PaymentStatusFailed:
		kind, title = NotificationPaymentFailed, "Payment Failed"
	}

	data := map[string]any{
		"trip_id":    trip.ID,
		"payment_id": p.ID,
		"amount":     p.Amount.StringFixed(2),
		"method":     p.Method,
	}
	for _, recipient := range []string{trip.CustomerID, trip.DispatcherID} {
		s.send(ctx, Notification{
			Type:        kind,
			RecipientID: recipient,
			Title:       title,
			Message: fmt.Sprintf("Payment of %s via %s for %s is %s. Outstanding %s",
				p.Amount.StringFixed(2), p.Method, trip.TransactionNumber, p.Status, trip.Outstanding().StringFixed(2)),
			Data:      data,
			CreatedAt: p.UpdatedAt,
		})
	}
}

// NotifyReceiptReady tells the customer that a receipt is available.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, receipt *Receipt) {
	s.send(ctx, Notification{
		Type:        NotificationReceiptReady,
		RecipientID: receipt.CustomerID,
		Title:       "Receipt Ready",
		Message:     fmt.Sprintf("Your receipt for %s is ready", receipt.TotalAmount.StringFixed(2)),
		Data: map[string]any{
			"trip_id":      receipt.TripID,
			"total_amount": receipt.TotalAmount.StringFixed(2),
		},
		CreatedAt: receipt.GeneratedAt,
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if n.RecipientID == "" {
		return
	}
	s.logger.InfoContext(ctx, "notification",
		"type", n.Type,
		"recipient", n.RecipientID,
		"title", n.Title,
		"message", n.Message,
	)
}
