package scheduling

import (
	"context"

	"hospital-ops-server/internal/models"
)

// ListFilter narrows appointment listings. Empty fields do not filter.
type ListFilter struct {
	TenantID  string
	DoctorID  string
	PatientID string
	Statuses  []models.AppointmentStatus
	From      *models.Date
	To        *models.Date
	Limit     int
	Offset    int
}

// Repository persists appointments.
//
// Create must fail with a KindSlotConflict error when a live appointment
// already holds (DoctorID, Date, TimeSlot); the check and the insert are one
// atomic step. GetByID returns a KindNotFound error for unknown ids.
type Repository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// GetForUpdate reads the row and locks it until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Appointment, error)
	Update(ctx context.Context, a *models.Appointment) error
	BookedSlots(ctx context.Context, doctorID string, date models.Date) ([]string, error)
	List(ctx context.Context, f ListFilter) ([]*models.Appointment, int64, error)
	CountByStatus(ctx context.Context, scope StatsScope) (map[models.AppointmentStatus]int64, error)
	// Transaction runs fn against a repository bound to one storage transaction.
	// A non-nil error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// Person is a directory entry as seen by the scheduler.
type Person struct {
	ID              string
	TenantID        string
	Role            models.Role
	Name            string
	Specialty       string
	ConsultationFee float64
}

func (p *Person) DoctorSummary() models.DoctorSummary {
	return models.DoctorSummary{
		ID:              p.ID,
		Name:            p.Name,
		Specialty:       p.Specialty,
		ConsultationFee: p.ConsultationFee,
	}
}

// PersonDirectory resolves identities. Lookup returns a KindNotFound error for unknown refs.
type PersonDirectory interface {
	Lookup(ctx context.Context, ref string) (*Person, error)
}

// EventKind names a lifecycle event.
type EventKind string

const (
	EventBooked        EventKind = "booked"
	EventCancelled     EventKind = "cancelled"
	EventStatusChanged EventKind = "status_changed"
)

// Event is emitted after the change it reports has been committed.
type Event struct {
	Kind        EventKind
	Appointment models.Appointment
	From        models.AppointmentStatus
	Actor       Actor
}

// Emitter receives lifecycle events. Delivery is best effort.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}
