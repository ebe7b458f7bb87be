package notification

import (
	"fmt"
	"strings"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
)

// Render builds the inbox entries for an event: one for the patient and one
// for the doctor. The actor who caused the event is not notified about it.
func Render(e scheduling.Event) []models.Notification {
	a := e.Appointment
	kind, subject := kindAndSubject(e)
	when := fmt.Sprintf("%s at %s", a.Date, a.TimeSlot)

	var out []models.Notification
	for _, r := range []struct {
		id   string
		body string
	}{
		{a.PatientID, patientBody(e, when)},
		{a.DoctorID, doctorBody(e, when)},
	} {
		if r.id == "" || r.id == e.Actor.Ref {
			continue
		}
		out = append(out, models.Notification{
			TenantID:      a.TenantID,
			RecipientID:   r.id,
			AppointmentID: a.ID,
			Kind:          kind,
			Subject:       subject,
			Content:       r.body,
			Status:        models.NotificationStatusSent,
		})
	}
	return out
}

func kindAndSubject(e scheduling.Event) (models.NotificationKind, string) {
	switch e.Kind {
	case scheduling.EventBooked:
		return models.NotificationBooked, "Appointment booked"
	case scheduling.EventCancelled:
		return models.NotificationCancelled, "Appointment cancelled"
	default:
		return models.NotificationStatusChanged, "Appointment " + humanStatus(e.Appointment.Status)
	}
}

func patientBody(e scheduling.Event, when string) string {
	a := e.Appointment
	switch e.Kind {
	case scheduling.EventBooked:
		return fmt.Sprintf("Your appointment on %s is scheduled. Consultation fee: %.2f.", when, a.Payment.Amount)
	case scheduling.EventCancelled:
		msg := fmt.Sprintf("Your appointment on %s was cancelled%s.", when, reasonSuffix(a.CancelReason))
		if a.Payment.Status == models.PaymentRefunded {
			msg += " Your payment will be refunded."
		}
		return msg
	default:
		return fmt.Sprintf("Your appointment on %s is now %s.", when, humanStatus(a.Status))
	}
}

func doctorBody(e scheduling.Event, when string) string {
	a := e.Appointment
	switch e.Kind {
	case scheduling.EventBooked:
		return fmt.Sprintf("A patient booked your %s slot (%s).", when, humanType(a.Type))
	case scheduling.EventCancelled:
		return fmt.Sprintf("The appointment on %s was cancelled%s.", when, reasonSuffix(a.CancelReason))
	default:
		return fmt.Sprintf("The appointment on %s moved from %s to %s.", when, humanStatus(e.From), humanStatus(a.Status))
	}
}

func reasonSuffix(reason string) string {
	if reason == "" {
		return ""
	}
	return ": " + reason
}

func humanStatus(s models.AppointmentStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func humanType(t models.AppointmentType) string {
	return strings.NewReplacer("_", " ", "-", " ").Replace(string(t))
}
