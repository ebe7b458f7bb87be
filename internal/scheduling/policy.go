package scheduling

import (
	"time"

	"hospital-ops-server/internal/models"
)

// CancellationCutoff is the minimum notice a patient must give.
const CancellationCutoff = 2 * time.Hour

const cutoffMessage = "appointments must be cancelled at least 2 hours before the scheduled time"

// CanCancel decides whether actor may cancel a at now. It does not mutate a.
// Doctors and staff are exempt from the notice period.
func CanCancel(a *models.Appointment, kind models.Role, now time.Time, loc *time.Location) error {
	if a.Status == models.StatusCancelled || a.Status == models.StatusCompleted {
		return NewError(KindPolicyDenied, "appointment is already %s", a.Status).
			Arg("status", a.Status)
	}
	if kind != models.RolePatient {
		return nil
	}

	at, err := ScheduledAt(a.Date, a.TimeSlot, loc)
	if err != nil {
		return err
	}
	if at.Sub(now) < CancellationCutoff {
		return NewError(KindPolicyDenied, cutoffMessage).
			Arg("scheduledAt", at.Format(time.RFC3339))
	}
	return nil
}

// refund is the payment side effect of a cancellation. Pending fees were
// never collected and stay pending.
func refund(p *models.Payment) {
	if p.Status == models.PaymentPaid {
		p.Status = models.PaymentRefunded
	}
}
