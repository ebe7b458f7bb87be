package scheduling

import (
	"time"

	"hospital-ops-server/internal/models"
)

// transitions is the complete set of legal status edges. Statuses without an
// entry are terminal.
var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusScheduled: {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled, models.StatusNoShow},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(s models.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

// Change describes who moves an appointment and when.
type Change struct {
	By     Actor
	At     time.Time
	Reason string
}

// Transition is the only code path that writes Appointment.Status. Cancelling
// also stamps the cancel fields and applies the refund, so the caller persists
// status and payment together.
func Transition(a *models.Appointment, to models.AppointmentStatus, ch Change) error {
	if !CanTransition(a.Status, to) {
		return NewError(KindInvalidTransition, "cannot move appointment from %s to %s", a.Status, to).
			Arg("from", a.Status).
			Arg("to", to)
	}

	at := ch.At.UTC()
	switch to {
	case models.StatusCompleted:
		a.CompletedAt = &at
	case models.StatusCancelled:
		a.CancelledBy = ch.By.Ref
		a.CancelledByRole = ch.By.Kind
		a.CancelledAt = &at
		a.CancelReason = ch.Reason
		refund(&a.Payment)
	}
	a.Status = to
	return nil
}

// Initialize sets the state of a freshly reserved appointment.
func Initialize(a *models.Appointment, fee float64) {
	a.Status = models.StatusScheduled
	a.Payment = models.Payment{Amount: fee, Status: models.PaymentPending}
	a.CancelReason, a.CancelledBy, a.CancelledByRole = "", "", ""
	a.CancelledAt, a.CompletedAt = nil, nil
}

// PaymentReceipt is the settlement reference of a consultation fee.
type PaymentReceipt struct {
	Method        string
	TransactionID string
}

// RecordPayment moves a pending payment to paid. Cancelled appointments and
// payments that already left pending are refused.
func RecordPayment(a *models.Appointment, r PaymentReceipt) error {
	if a.Status == models.StatusCancelled {
		return NewError(KindPolicyDenied, "cannot record payment for a cancelled appointment")
	}
	if a.Payment.Status != models.PaymentPending {
		return NewError(KindPolicyDenied, "payment is already %s", a.Payment.Status).
			Arg("paymentStatus", a.Payment.Status)
	}
	a.Payment.Status = models.PaymentPaid
	a.Payment.Method = r.Method
	a.Payment.TransactionID = r.TransactionID
	return nil
}
