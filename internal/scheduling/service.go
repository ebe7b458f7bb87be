package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hospital-ops-server/internal/models"
)

// MaxBulkOperations caps one bulk status request.
const MaxBulkOperations = 100

type Service struct {
	repo      Repository
	directory PersonDirectory
	events    Emitter
	log       zerolog.Logger
	now       func() time.Time
	loc       *time.Location
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the clinic time zone slots are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo Repository, directory PersonDirectory, events Emitter, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		directory: directory,
		events:    events,
		log:       logger.With().Str("component", "scheduling").Logger(),
		now:       time.Now,
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -- Slots --

// AvailableSlots computes the bookable slots of a doctor's day.
func (s *Service) AvailableSlots(ctx context.Context, actor Actor, doctorID string, date models.Date) (*SlotAvailability, error) {
	if err := Can(actor, ActionViewSlots); err != nil {
		return nil, err
	}
	if err := checkID("doctorId", doctorID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, NewError(KindValidation, "date is required")
	}

	doctor, err := s.lookupRole(ctx, doctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, ActionViewSlots, doctor.TenantID); err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}
	all := SlotCatalogue()
	available, bookedSorted := subtractBooked(all, booked)

	return &SlotAvailability{
		Date:           date,
		Doctor:         doctor.DoctorSummary(),
		AllSlots:       all,
		BookedSlots:    bookedSorted,
		AvailableSlots: available,
	}, nil
}

// -- Booking --

// BookingRequest carries the caller-supplied booking fields.
type BookingRequest struct {
	PatientID string
	DoctorID  string
	Date      models.Date
	TimeSlot  string
	Type      models.AppointmentType
	Symptoms  string
}

// Book reserves a slot and creates a scheduled appointment with a pending
// payment for the doctor's consultation fee.
func (s *Service) Book(ctx context.Context, actor Actor, req BookingRequest) (*models.Appointment, error) {
	if err := Can(actor, ActionBook); err != nil {
		return nil, err
	}

	patientID, err := s.bookingPatient(actor, req.PatientID)
	if err != nil {
		return nil, err
	}
	if err := checkID("doctorId", req.DoctorID); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, NewError(KindValidation, "date is required")
	}
	if req.Type == "" {
		req.Type = models.TypeClinicVisit
	}
	if !req.Type.Valid() {
		return nil, NewError(KindValidation, "unknown appointment type %q", req.Type)
	}
	at, err := ScheduledAt(req.Date, req.TimeSlot, s.loc)
	if err != nil {
		return nil, err
	}
	if !at.After(s.now()) {
		return nil, NewError(KindValidation, "appointment time must be in the future")
	}

	doctor, err := s.lookupRole(ctx, req.DoctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	if err := authorizeTenant(actor, ActionBook, doctor.TenantID); err != nil {
		return nil, err
	}
	patient, err := s.lookupRole(ctx, patientID, models.RolePatient)
	if err != nil {
		return nil, err
	}
	if patient.TenantID != doctor.TenantID {
		return nil, NewError(KindForbidden, "patient and doctor belong to different hospitals")
	}

	a := &models.Appointment{
		TenantID:  doctor.TenantID,
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Type:      req.Type,
		Symptoms:  req.Symptoms,
	}
	Initialize(a, doctor.ConsultationFee)

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.log.Info().
				Str("doctor_id", a.DoctorID).
				Str("date", a.Date.String()).
				Str("time_slot", a.TimeSlot).
				Msg("slot conflict")
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", a.ID).
		Str("tenant_id", a.TenantID).
		Str("doctor_id", a.DoctorID).
		Str("date", a.Date.String()).
		Str("time_slot", a.TimeSlot).
		Msg("appointment booked")
	s.emit(ctx, Event{Kind: EventBooked, Appointment: *a, Actor: actor})
	return a, nil
}

func (s *Service) bookingPatient(actor Actor, requested string) (string, error) {
	if actor.Kind == models.RolePatient {
		if requested != "" && requested != actor.Ref {
			return "", NewError(KindForbidden, "patients can only book appointments for themselves")
		}
		return actor.Ref, nil
	}
	if requested == "" {
		return "", NewError(KindValidation, "patient id is required when booking on a patient's behalf")
	}
	if err := checkID("patientId", requested); err != nil {
		return "", err
	}
	return requested, nil
}

// checkID rejects references that cannot name a stored record. Record keys
// are uuids.
func checkID(field, id string) error {
	if id == "" {
		return NewError(KindValidation, "%s is required", field).Arg("field", field)
	}
	if err := uuid.Validate(id); err != nil {
		return NewError(KindValidation, "%s is not a valid id", field).Arg("field", field)
	}
	return nil
}

func (s *Service) lookupRole(ctx context.Context, ref string, role models.Role) (*Person, error) {
	p, err := s.directory.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p.Role != role {
		return nil, NewError(KindNotFound, "%s %s not found", role, ref)
	}
	return p, nil
}

// -- Reads --

// ListQuery is the caller-controlled part of a listing.
type ListQuery struct {
	Statuses []models.AppointmentStatus
	From     *models.Date
	To       *models.Date
	Limit    int
	Offset   int
}

// List returns the appointments visible to the actor.
func (s *Service) List(ctx context.Context, actor Actor, q ListQuery) ([]*models.Appointment, int64, error) {
	if err := Can(actor, ActionView); err != nil {
		return nil, 0, err
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, 0, NewError(KindValidation, "unknown status %q", st)
		}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, 0, NewError(KindValidation, "endDate must not be before startDate")
	}

	f := ListFilter{
		Statuses: q.Statuses,
		From:     q.From,
		To:       q.To,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	switch actor.Kind {
	case models.RolePatient:
		f.TenantID, f.PatientID = actor.TenantID, actor.Ref
	case models.RoleDoctor:
		f.TenantID, f.DoctorID = actor.TenantID, actor.Ref
	case models.RoleAdmin:
		f.TenantID = actor.TenantID
	}
	return s.repo.List(ctx, f)
}

// Get fetches one appointment the actor may see.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, ActionView, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Stats aggregates status counts over the actor's scope.
func (s *Service) Stats(ctx context.Context, actor Actor) (Stats, error) {
	if err := Can(actor, ActionStats); err != nil {
		return Stats{}, err
	}
	counts, err := s.repo.CountByStatus(ctx, statsScopeFor(actor))
	if err != nil {
		return Stats{}, fmt.Errorf("count appointments: %w", err)
	}
	return aggregate(counts), nil
}

// -- Lifecycle --

// ChangeStatus moves an appointment along the state machine. Cancellation
// goes through the cancellation policy and persists status and payment in
// one transaction.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id string, to models.AppointmentStatus, reason string) (*models.Appointment, error) {
	if !to.Valid() {
		return nil, NewError(KindValidation, "unknown status %q", to)
	}
	if err := checkID("id", id); err != nil {
		return nil, err
	}

	var (
		updated *models.Appointment
		from    models.AppointmentStatus
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		var err error
		updated, from, err = s.applyStatus(ctx, tx, actor, id, to, reason, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(updated, from, actor)
	s.emit(ctx, transitionEvent(updated, from, actor))
	return updated, nil
}

// Cancel is ChangeStatus to cancelled.
func (s *Service) Cancel(ctx context.Context, actor Actor, id, reason string) (*models.Appointment, error) {
	return s.ChangeStatus(ctx, actor, id, models.StatusCancelled, reason)
}

func (s *Service) applyStatus(ctx context.Context, tx Repository, actor Actor, id string, to models.AppointmentStatus, reason string, now time.Time) (*models.Appointment, models.AppointmentStatus, error) {
	a, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := Authorize(actor, ActionView, a); err != nil {
		return nil, "", err
	}

	action, ok := actionFor(to)
	if !ok {
		return nil, "", NewError(KindInvalidTransition, "cannot move appointment from %s to %s", a.Status, to).
			Arg("from", a.Status).
			Arg("to", to)
	}
	if err := Authorize(actor, action, a); err != nil {
		return nil, "", err
	}
	if to == models.StatusCancelled {
		if err := CanCancel(a, actor.Kind, now, s.loc); err != nil {
			return nil, "", err
		}
	}

	from := a.Status
	if err := Transition(a, to, Change{By: actor, At: now, Reason: reason}); err != nil {
		return nil, "", err
	}
	if err := tx.Update(ctx, a); err != nil {
		return nil, "", fmt.Errorf("save appointment %s: %w", a.ID, err)
	}
	return a, from, nil
}

// StatusOperation is one member of a bulk status request.
type StatusOperation struct {
	ID           string
	Status       models.AppointmentStatus
	CancelReason string
}

// BulkChangeStatus applies every operation or none of them.
func (s *Service) BulkChangeStatus(ctx context.Context, actor Actor, ops []StatusOperation) ([]*models.Appointment, error) {
	if err := Can(actor, ActionBulkStatus); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, NewError(KindValidation, "at least one operation is required")
	}
	if len(ops) > MaxBulkOperations {
		return nil, NewError(KindValidation, "at most %d operations per batch", MaxBulkOperations).
			Arg("operations", len(ops))
	}
	for i, op := range ops {
		if uuid.Validate(op.ID) != nil {
			return nil, NewError(KindValidation, "operation %d: id is not a valid id", i).Arg("index", i)
		}
		if !op.Status.Valid() {
			return nil, NewError(KindValidation, "operation %d: unknown status %q", i, op.Status).Arg("index", i)
		}
	}

	type applied struct {
		a    *models.Appointment
		from models.AppointmentStatus
	}
	var results []applied
	now := s.now()
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		results = results[:0]
		for i, op := range ops {
			a, from, err := s.applyStatus(ctx, tx, actor, op.ID, op.Status, op.CancelReason, now)
			if err != nil {
				if kind := KindOf(err); kind != "" {
					return NewError(kind, "operation %d failed", i).Arg("index", i).Arg("id", op.ID).Wrap(err)
				}
				return fmt.Errorf("operation %d (%s): %w", i, op.ID, err)
			}
			results = append(results, applied{a: a, from: from})
		}
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Int("operations", len(ops)).Msg("bulk status update rolled back")
		return nil, err
	}

	out := make([]*models.Appointment, 0, len(results))
	for _, r := range results {
		s.logTransition(r.a, r.from, actor)
		s.emit(ctx, transitionEvent(r.a, r.from, actor))
		out = append(out, r.a)
	}
	return out, nil
}

// RecordPayment marks the consultation fee as paid.
func (s *Service) RecordPayment(ctx context.Context, actor Actor, id string, receipt PaymentReceipt) (*models.Appointment, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	if receipt.Method == "" {
		return nil, NewError(KindValidation, "payment method is required")
	}

	var updated *models.Appointment
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		a, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ActionView, a); err != nil {
			return err
		}
		if err := Authorize(actor, ActionRecordPayment, a); err != nil {
			return err
		}
		if err := RecordPayment(a, receipt); err != nil {
			return err
		}
		if err := tx.Update(ctx, a); err != nil {
			return fmt.Errorf("save appointment %s: %w", a.ID, err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("appointment_id", updated.ID).Str("method", receipt.Method).Msg("payment recorded")
	return updated, nil
}

// -- Amendments --

// Amendment holds optional field updates. Nil fields are left untouched.
type Amendment struct {
	Diagnosis *string
	Notes     *string
	FollowUp  *models.FollowUp
	Symptoms  *string
	Type      *models.AppointmentType
}

var amendableFields = map[models.Role]map[string]bool{
	models.RoleDoctor:     {"diagnosis": true, "notes": true, "followUp": true},
	models.RolePatient:    {"symptoms": true},
	models.RoleAdmin:      {"type": true},
	models.RoleSuperAdmin: {"type": true},
}

func (am Amendment) fields() []string {
	var out []string
	if am.Diagnosis != nil {
		out = append(out, "diagnosis")
	}
	if am.Notes != nil {
		out = append(out, "notes")
	}
	if am.FollowUp != nil {
		out = append(out, "followUp")
	}
	if am.Symptoms != nil {
		out = append(out, "symptoms")
	}
	if am.Type != nil {
		out = append(out, "type")
	}
	return out
}

// Amend updates the role-gated annotation fields. Status and payment are not
// reachable from here.
func (s *Service) Amend(ctx context.Context, actor Actor, id string, am Amendment) (*models.Appointment, error) {
	if err := checkID("id", id); err != nil {
		return nil, err
	}
	fields := am.fields()
	if len(fields) == 0 {
		return nil, NewError(KindValidation, "no updatable fields supplied")
	}
	for _, f := range fields {
		if !amendableFields[actor.Kind][f] {
			return nil, NewError(KindForbidden, "role %s may not update %s", actor.Kind, f).Arg("field", f)
		}
	}
	if am.Type != nil && !am.Type.Valid() {
		return nil, NewError(KindValidation, "unknown appointment type %q", *am.Type)
	}

	var updated *models.Appointment
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		a, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ActionAmend, a); err != nil {
			return err
		}
		if am.Symptoms != nil && a.Status != models.StatusScheduled && a.Status != models.StatusConfirmed {
			return NewError(KindPolicyDenied, "symptoms can only be changed before the visit")
		}

		if am.Diagnosis != nil {
			a.Diagnosis = *am.Diagnosis
		}
		if am.Notes != nil {
			a.Notes = *am.Notes
		}
		if am.FollowUp != nil {
			a.FollowUp = *am.FollowUp
		}
		if am.Symptoms != nil {
			a.Symptoms = *am.Symptoms
		}
		if am.Type != nil {
			a.Type = *am.Type
		}
		if err := tx.Update(ctx, a); err != nil {
			return fmt.Errorf("save appointment %s: %w", a.ID, err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// -- Events --

func transitionEvent(a *models.Appointment, from models.AppointmentStatus, actor Actor) Event {
	kind := EventStatusChanged
	if a.Status == models.StatusCancelled {
		kind = EventCancelled
	}
	return Event{Kind: kind, Appointment: *a, From: from, Actor: actor}
}

func (s *Service) logTransition(a *models.Appointment, from models.AppointmentStatus, actor Actor) {
	s.log.Info().
		Str("appointment_id", a.ID).
		Str("from", string(from)).
		Str("to", string(a.Status)).
		Str("actor_role", string(actor.Kind)).
		Str("payment_status", string(a.Payment.Status)).
		Msg("appointment status changed")
}

func (s *Service) emit(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, e); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", e.Appointment.ID).
			Str("event", string(e.Kind)).
			Msg("notification emit failed")
	}
}
