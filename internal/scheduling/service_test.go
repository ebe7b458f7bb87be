package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
	"hospital-ops-server/internal/scheduling/schedulingtest"
)

const (
	doctorID       = "0b6f3c1e-4a2d-4f8e-9c71-2d5a8e6b1f01"
	otherDoctorID  = "0b6f3c1e-4a2d-4f8e-9c71-2d5a8e6b1f02"
	patientID      = "6a1d9e42-7c3b-4b05-8f2e-9e4c1a7d3b01"
	otherPatientID = "6a1d9e42-7c3b-4b05-8f2e-9e4c1a7d3b02"
	adminID        = "c3e8a7d1-2f6b-4e94-a1c5-7b9d0e2f4a01"
	foreignAdminID = "c3e8a7d1-2f6b-4e94-a1c5-7b9d0e2f4a02"
	unknownID      = "f0000000-0000-4000-8000-000000000000"
)

type fixture struct {
	repo    *schedulingtest.Repository
	dir     *schedulingtest.Directory
	events  *schedulingtest.Recorder
	svc     *scheduling.Service
	now     time.Time
	doctor  *scheduling.Person
	patient *scheduling.Person
	other   *scheduling.Person
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   schedulingtest.NewRepository(),
		dir:    schedulingtest.NewDirectory(),
		events: &schedulingtest.Recorder{},
		now:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.doctor = f.dir.Add(scheduling.Person{ID: doctorID, TenantID: "h1", Role: models.RoleDoctor, Name: "Dr. Ada Grey", Specialty: "cardiology", ConsultationFee: 120})
	f.patient = f.dir.Add(scheduling.Person{ID: patientID, TenantID: "h1", Role: models.RolePatient, Name: "Sam Lee"})
	f.other = f.dir.Add(scheduling.Person{ID: otherPatientID, TenantID: "h1", Role: models.RolePatient, Name: "Kim Park"})
	f.svc = scheduling.NewService(f.repo, f.dir, f.events, zerolog.Nop(),
		scheduling.WithClock(func() time.Time { return f.now }),
		scheduling.WithLocation(time.UTC),
	)
	return f
}

func patientActor(p *scheduling.Person) scheduling.Actor {
	return scheduling.Actor{Kind: models.RolePatient, Ref: p.ID, TenantID: p.TenantID}
}

func doctorActor(p *scheduling.Person) scheduling.Actor {
	return scheduling.Actor{Kind: models.RoleDoctor, Ref: p.ID, TenantID: p.TenantID}
}

var admin = scheduling.Actor{Kind: models.RoleAdmin, Ref: adminID, TenantID: "h1"}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func (f *fixture) book(t *testing.T, p *scheduling.Person, day, slot string) *models.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), patientActor(p), scheduling.BookingRequest{
		DoctorID: f.doctor.ID,
		Date:     date(t, day),
		TimeSlot: slot,
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", day, slot, err)
	}
	return a
}

func TestBook_ThenConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, f.patient, "2025-01-10", "09:00")
	if a.Status != models.StatusScheduled {
		t.Errorf("status = %s, want scheduled", a.Status)
	}
	if a.Payment.Status != models.PaymentPending || a.Payment.Amount != 120 {
		t.Errorf("payment = %+v", a.Payment)
	}
	if a.Type != models.TypeClinicVisit {
		t.Errorf("type = %s, want clinic_visit", a.Type)
	}
	if a.TenantID != "h1" || a.PatientID != patientID {
		t.Errorf("unexpected ownership: %s/%s", a.TenantID, a.PatientID)
	}

	_, err := f.svc.Book(ctx, patientActor(f.other), scheduling.BookingRequest{
		DoctorID: f.doctor.ID, Date: date(t, "2025-01-10"), TimeSlot: "09:00",
	})
	if !errors.Is(err, scheduling.ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].Kind != scheduling.EventBooked {
		t.Errorf("expected one booked event, got %+v", events)
	}
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor scheduling.Actor
		req   scheduling.BookingRequest
		want  error
	}{
		{
			name:  "slot off the catalogue",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "20:30"},
			want:  scheduling.ErrValidation,
		},
		{
			name:  "in the past",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{DoctorID: doctorID, Date: date(t, "2024-12-31"), TimeSlot: "10:00"},
			want:  scheduling.ErrValidation,
		},
		{
			name:  "unknown doctor",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{DoctorID: unknownID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrNotFound,
		},
		{
			name:  "doctor id is a patient",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{DoctorID: otherPatientID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrNotFound,
		},
		{
			name:  "patient books for someone else",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{PatientID: otherPatientID, DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrForbidden,
		},
		{
			name:  "doctor may not book",
			actor: doctorActor(f.doctor),
			req:   scheduling.BookingRequest{PatientID: patientID, DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrForbidden,
		},
		{
			name:  "admin without patient id",
			actor: admin,
			req:   scheduling.BookingRequest{DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrValidation,
		},
		{
			name:  "admin from another tenant",
			actor: scheduling.Actor{Kind: models.RoleAdmin, Ref: foreignAdminID, TenantID: "h2"},
			req:   scheduling.BookingRequest{PatientID: patientID, DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "10:00"},
			want:  scheduling.ErrForbidden,
		},
		{
			name:  "unknown type",
			actor: patientActor(f.patient),
			req:   scheduling.BookingRequest{DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "10:00", Type: "house_call"},
			want:  scheduling.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tt.actor, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if n := len(f.repo.All()); n != 0 {
		t.Errorf("rejected bookings must not persist, found %d rows", n)
	}
}

func TestBook_AdminOnBehalf(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Book(context.Background(), admin, scheduling.BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		Date:      date(t, "2025-01-10"),
		TimeSlot:  "15:30",
		Type:      models.TypeTelemedicine,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PatientID != f.patient.ID || a.Type != models.TypeTelemedicine {
		t.Errorf("unexpected appointment: %+v", a)
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	const callers = 20
	for i := 0; i < callers; i++ {
		f.dir.Add(scheduling.Person{ID: fmt.Sprintf("racer-%d", i), TenantID: "h1", Role: models.RolePatient})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := scheduling.Actor{Kind: models.RolePatient, Ref: fmt.Sprintf("racer-%d", i), TenantID: "h1"}
			_, err := f.svc.Book(context.Background(), actor, scheduling.BookingRequest{
				DoctorID: doctorID, Date: date(t, "2025-01-10"), TimeSlot: "11:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, scheduling.ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != callers-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1 and %d", successes, conflicts, callers-1)
	}
}

func TestMalformedIDsAreValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")
	day := date(t, "2025-01-10")
	note := "checked"

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error {
			_, err := f.svc.Get(ctx, admin, "not a uuid!!")
			return err
		}},
		{"slots", func() error {
			_, err := f.svc.AvailableSlots(ctx, admin, "%%%", day)
			return err
		}},
		{"book doctor", func() error {
			_, err := f.svc.Book(ctx, patientActor(f.patient), scheduling.BookingRequest{DoctorID: "doc-1", Date: day, TimeSlot: "10:00"})
			return err
		}},
		{"book patient on behalf", func() error {
			_, err := f.svc.Book(ctx, admin, scheduling.BookingRequest{PatientID: "pat-1", DoctorID: doctorID, Date: day, TimeSlot: "10:00"})
			return err
		}},
		{"change status", func() error {
			_, err := f.svc.ChangeStatus(ctx, admin, a.ID+"x", models.StatusConfirmed, "")
			return err
		}},
		{"cancel", func() error {
			_, err := f.svc.Cancel(ctx, admin, "", "")
			return err
		}},
		{"record payment", func() error {
			_, err := f.svc.RecordPayment(ctx, admin, "12", scheduling.PaymentReceipt{Method: "card"})
			return err
		}},
		{"amend", func() error {
			_, err := f.svc.Amend(ctx, doctorActor(f.doctor), "abc", scheduling.Amendment{Notes: &note})
			return err
		}},
		{"bulk member", func() error {
			_, err := f.svc.BulkChangeStatus(ctx, admin, []scheduling.StatusOperation{
				{ID: a.ID, Status: models.StatusConfirmed},
				{ID: "bogus", Status: models.StatusConfirmed},
			})
			var se *scheduling.Error
			if errors.As(err, &se) && se.Args["index"] != 1 {
				return fmt.Errorf("index = %v", se.Args["index"])
			}
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, scheduling.ErrValidation) {
				t.Fatalf("expected validation, got %v", err)
			}
		})
	}

	stored, _ := f.repo.GetByID(ctx, a.ID)
	if stored.Status != models.StatusScheduled || stored.Notes != "" {
		t.Errorf("appointment changed: %+v", stored)
	}
	if n := len(f.repo.All()); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCancel_ReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, f.patient, "2025-01-10", "09:00")
	if _, err := f.svc.Cancel(ctx, patientActor(f.patient), a.ID, "changed plans"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	b := f.book(t, f.other, "2025-01-10", "09:00")
	if b.ID == a.ID {
		t.Fatal("expected a new appointment")
	}

	slots, err := f.svc.AvailableSlots(ctx, patientActor(f.patient), f.doctor.ID, date(t, "2025-01-10"))
	if err != nil {
		t.Fatal(err)
	}
	if len(slots.BookedSlots) != 1 || slots.BookedSlots[0] != "09:00" {
		t.Errorf("booked = %v, want [09:00]", slots.BookedSlots)
	}
}

func TestAvailableSlots_ExcludesBooked(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.patient, "2025-01-10", "09:00")

	slots, err := f.svc.AvailableSlots(context.Background(), patientActor(f.other), f.doctor.ID, date(t, "2025-01-10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots.AllSlots) != 23 {
		t.Errorf("all slots = %d, want 23", len(slots.AllSlots))
	}
	if len(slots.AvailableSlots) != 22 {
		t.Errorf("available = %d, want 22", len(slots.AvailableSlots))
	}
	for _, s := range slots.AvailableSlots {
		if s == "09:00" {
			t.Error("09:00 must not be available")
		}
	}
	if slots.Doctor.Name != "Dr. Ada Grey" || slots.Doctor.ConsultationFee != 120 {
		t.Errorf("doctor summary = %+v", slots.Doctor)
	}

	other, err := f.svc.AvailableSlots(context.Background(), patientActor(f.other), f.doctor.ID, date(t, "2025-01-11"))
	if err != nil {
		t.Fatal(err)
	}
	if len(other.AvailableSlots) != 23 {
		t.Errorf("another day should be free, got %d", len(other.AvailableSlots))
	}
}

func TestChangeStatus_ScheduledToCompleted(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, f.patient, "2025-01-10", "09:00")

	_, err := f.svc.ChangeStatus(context.Background(), doctorActor(f.doctor), a.ID, models.StatusCompleted, "")
	if !errors.Is(err, scheduling.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	stored, _ := f.repo.GetByID(context.Background(), a.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
}

func TestChangeStatus_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := doctorActor(f.doctor)
	a := f.book(t, f.patient, "2025-01-10", "09:00")

	if _, err := f.svc.ChangeStatus(ctx, patientActor(f.patient), a.ID, models.StatusConfirmed, ""); !errors.Is(err, scheduling.ErrForbidden) {
		t.Fatalf("patient confirm: expected forbidden, got %v", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, doc, a.ID, models.StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	done, err := f.svc.ChangeStatus(ctx, doc, a.ID, models.StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(f.now) {
		t.Errorf("completedAt = %v, want %s", done.CompletedAt, f.now)
	}
	if _, err := f.svc.Cancel(ctx, admin, a.ID, ""); !errors.Is(err, scheduling.ErrPolicyDenied) {
		t.Errorf("cancel completed: expected policy denial, got %v", err)
	}

	events := f.events.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[2].Kind != scheduling.EventStatusChanged || events[2].From != models.StatusConfirmed {
		t.Errorf("last event = %+v", events[2])
	}
}

func TestChangeStatus_ForeignActorsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")

	otherDoctor := scheduling.Actor{Kind: models.RoleDoctor, Ref: otherDoctorID, TenantID: "h1"}
	if _, err := f.svc.ChangeStatus(ctx, otherDoctor, a.ID, models.StatusCompleted, ""); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("other doctor: expected forbidden before transition check, got %v", err)
	}
	if _, err := f.svc.Get(ctx, patientActor(f.other), a.ID); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("other patient view: expected forbidden, got %v", err)
	}
	if _, err := f.svc.Get(ctx, admin, unknownID); !errors.Is(err, scheduling.ErrNotFound) {
		t.Errorf("missing: expected not found, got %v", err)
	}
}

func TestCancel_PatientCutoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.now = time.Date(2025, 1, 10, 7, 30, 0, 0, time.UTC)

	a := &models.Appointment{
		TenantID: "h1", PatientID: f.patient.ID, DoctorID: f.doctor.ID,
		Date: date(t, "2025-01-10"), TimeSlot: "09:00",
	}
	scheduling.Initialize(a, 120)
	f.repo.Put(a)

	_, err := f.svc.Cancel(ctx, patientActor(f.patient), a.ID, "late")
	if !errors.Is(err, scheduling.ErrPolicyDenied) {
		t.Fatalf("expected policy denial, got %v", err)
	}
	stored, _ := f.repo.GetByID(ctx, a.ID)
	if stored.Status != models.StatusScheduled {
		t.Fatalf("denied cancel must not change status, got %s", stored.Status)
	}

	cancelled, err := f.svc.Cancel(ctx, admin, a.ID, "clinic closed")
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled || cancelled.CancelledByRole != models.RoleAdmin {
		t.Errorf("unexpected result: %s by %s", cancelled.Status, cancelled.CancelledByRole)
	}
}

func TestCancel_RefundsPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")

	paid, err := f.svc.RecordPayment(ctx, patientActor(f.patient), a.ID, scheduling.PaymentReceipt{Method: "card", TransactionID: "tx-9"})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if paid.Payment.Status != models.PaymentPaid {
		t.Fatalf("payment status = %s", paid.Payment.Status)
	}

	cancelled, err := f.svc.Cancel(ctx, doctorActor(f.doctor), a.ID, "doctor unavailable")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Payment.Status != models.PaymentRefunded {
		t.Errorf("payment status = %s, want refunded", cancelled.Payment.Status)
	}
	if cancelled.CancelledBy != f.doctor.ID {
		t.Errorf("cancelledBy = %s", cancelled.CancelledBy)
	}

	stored, _ := f.repo.GetByID(ctx, a.ID)
	if stored.Status != models.StatusCancelled || stored.Payment.Status != models.PaymentRefunded {
		t.Errorf("persisted %s/%s", stored.Status, stored.Payment.Status)
	}

	events := f.events.Events()
	if last := events[len(events)-1]; last.Kind != scheduling.EventCancelled {
		t.Errorf("last event = %s, want cancelled", last.Kind)
	}
}

func TestRecordPayment_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")

	if _, err := f.svc.RecordPayment(ctx, patientActor(f.patient), a.ID, scheduling.PaymentReceipt{}); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("missing method: expected validation, got %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, doctorActor(f.doctor), a.ID, scheduling.PaymentReceipt{Method: "cash"}); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("doctor: expected forbidden, got %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, admin, a.ID, scheduling.PaymentReceipt{Method: "cash"}); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, admin, a.ID, scheduling.PaymentReceipt{Method: "cash"}); !errors.Is(err, scheduling.ErrPolicyDenied) {
		t.Errorf("twice: expected policy denial, got %v", err)
	}
}

func TestBulkChangeStatus_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, f.patient, "2025-01-10", "09:00")
	second := f.book(t, f.other, "2025-01-10", "09:30")

	_, err := f.svc.BulkChangeStatus(ctx, admin, []scheduling.StatusOperation{
		{ID: first.ID, Status: models.StatusConfirmed},
		{ID: second.ID, Status: models.StatusCompleted},
	})
	if !errors.Is(err, scheduling.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	var se *scheduling.Error
	if !errors.As(err, &se) || se.Args["index"] != 1 || se.Args["id"] != second.ID {
		t.Errorf("error should identify the failing operation, got %v", err)
	}

	stored, _ := f.repo.GetByID(ctx, first.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("first operation must be rolled back, status = %s", stored.Status)
	}
	if n := len(f.events.Events()); n != 2 {
		t.Errorf("rolled back batch must not emit, got %d events", n)
	}
}

func TestBulkChangeStatus_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, f.patient, "2025-01-10", "09:00")
	second := f.book(t, f.other, "2025-01-10", "09:30")

	f.repo.FailUpdate = func(a *models.Appointment) error {
		if a.ID == second.ID {
			return errors.New("disk full")
		}
		return nil
	}
	_, err := f.svc.BulkChangeStatus(ctx, admin, []scheduling.StatusOperation{
		{ID: first.ID, Status: models.StatusCancelled, CancelReason: "closure"},
		{ID: second.ID, Status: models.StatusCancelled, CancelReason: "closure"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	stored, _ := f.repo.GetByID(ctx, first.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("status = %s, want scheduled", stored.Status)
	}
}

func TestBulkChangeStatus_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, f.patient, "2025-01-10", "09:00")
	second := f.book(t, f.other, "2025-01-10", "09:30")

	out, err := f.svc.BulkChangeStatus(ctx, admin, []scheduling.StatusOperation{
		{ID: first.ID, Status: models.StatusConfirmed},
		{ID: second.ID, Status: models.StatusCancelled, CancelReason: "duplicate"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Status != models.StatusConfirmed || out[1].Status != models.StatusCancelled {
		t.Errorf("unexpected results")
	}
}

func TestBulkChangeStatus_Limits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.BulkChangeStatus(ctx, doctorActor(f.doctor), []scheduling.StatusOperation{{ID: "x", Status: models.StatusConfirmed}}); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("doctor: expected forbidden, got %v", err)
	}
	if _, err := f.svc.BulkChangeStatus(ctx, admin, nil); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("empty: expected validation, got %v", err)
	}
	ops := make([]scheduling.StatusOperation, scheduling.MaxBulkOperations+1)
	for i := range ops {
		ops[i] = scheduling.StatusOperation{ID: fmt.Sprint(i), Status: models.StatusConfirmed}
	}
	if _, err := f.svc.BulkChangeStatus(ctx, admin, ops); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("oversized: expected validation, got %v", err)
	}
}

func TestAmend_FieldGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")
	diagnosis := "hypertension"
	symptoms := "dizziness"
	kind := models.TypeFollowUp

	if _, err := f.svc.Amend(ctx, patientActor(f.patient), a.ID, scheduling.Amendment{Diagnosis: &diagnosis}); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("patient diagnosis: expected forbidden, got %v", err)
	}
	if _, err := f.svc.Amend(ctx, doctorActor(f.doctor), a.ID, scheduling.Amendment{Type: &kind}); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("doctor type: expected forbidden, got %v", err)
	}
	if _, err := f.svc.Amend(ctx, doctorActor(f.doctor), a.ID, scheduling.Amendment{}); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("empty: expected validation, got %v", err)
	}

	updated, err := f.svc.Amend(ctx, doctorActor(f.doctor), a.ID, scheduling.Amendment{Diagnosis: &diagnosis})
	if err != nil {
		t.Fatalf("doctor diagnosis: %v", err)
	}
	if updated.Diagnosis != diagnosis || updated.Status != models.StatusScheduled {
		t.Errorf("unexpected result: %+v", updated)
	}
	if _, err := f.svc.Amend(ctx, patientActor(f.patient), a.ID, scheduling.Amendment{Symptoms: &symptoms}); err != nil {
		t.Fatalf("patient symptoms: %v", err)
	}
	if _, err := f.svc.Amend(ctx, admin, a.ID, scheduling.Amendment{Type: &kind}); err != nil {
		t.Fatalf("admin type: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, patientActor(f.patient), a.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Amend(ctx, patientActor(f.patient), a.ID, scheduling.Amendment{Symptoms: &symptoms}); !errors.Is(err, scheduling.ErrPolicyDenied) {
		t.Errorf("symptoms after cancel: expected policy denial, got %v", err)
	}
}

func TestList_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.patient, "2025-01-11", "09:00")
	f.book(t, f.patient, "2025-01-10", "10:00")
	f.book(t, f.other, "2025-01-10", "09:00")
	f.repo.Put(&models.Appointment{TenantID: "h2", PatientID: "x", DoctorID: "y", Date: date(t, "2025-01-10"), TimeSlot: "09:00", Status: models.StatusScheduled})

	items, total, err := f.svc.List(ctx, patientActor(f.patient), scheduling.ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("patient sees %d (total %d), want 2", len(items), total)
	}
	if items[0].Date.String() != "2025-01-10" {
		t.Errorf("expected ascending date order, got %s first", items[0].Date)
	}

	_, total, _ = f.svc.List(ctx, doctorActor(f.doctor), scheduling.ListQuery{})
	if total != 3 {
		t.Errorf("doctor total = %d, want 3", total)
	}
	_, total, _ = f.svc.List(ctx, admin, scheduling.ListQuery{})
	if total != 3 {
		t.Errorf("admin total = %d, want 3", total)
	}
	_, total, _ = f.svc.List(ctx, scheduling.Actor{Kind: models.RoleSuperAdmin, Ref: "root"}, scheduling.ListQuery{})
	if total != 4 {
		t.Errorf("super admin total = %d, want 4", total)
	}

	from, to := date(t, "2025-01-10"), date(t, "2025-01-10")
	items, total, _ = f.svc.List(ctx, admin, scheduling.ListQuery{From: &from, To: &to, Limit: 1})
	if total != 2 || len(items) != 1 {
		t.Errorf("paged range: %d items of %d", len(items), total)
	}

	if _, _, err := f.svc.List(ctx, admin, scheduling.ListQuery{Statuses: []models.AppointmentStatus{"bogus"}}); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("bad status: expected validation, got %v", err)
	}
	before := date(t, "2025-01-09")
	if _, _, err := f.svc.List(ctx, admin, scheduling.ListQuery{From: &from, To: &before}); !errors.Is(err, scheduling.ErrValidation) {
		t.Errorf("inverted range: expected validation, got %v", err)
	}
}

func TestStats_Totals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, f.patient, "2025-01-10", "09:00")
	f.book(t, f.patient, "2025-01-10", "09:30")
	f.book(t, f.other, "2025-01-10", "10:00")
	if _, err := f.svc.Cancel(ctx, patientActor(f.patient), a.ID, ""); err != nil {
		t.Fatal(err)
	}

	s, err := f.svc.Stats(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 3 || s.Scheduled != 2 || s.Cancelled != 1 {
		t.Errorf("admin stats = %+v", s)
	}
	if s.Total != s.Scheduled+s.Confirmed+s.Completed+s.Cancelled+s.NoShow {
		t.Error("total must equal the sum of the buckets")
	}

	mine, err := f.svc.Stats(ctx, patientActor(f.other))
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 1 || mine.Scheduled != 1 {
		t.Errorf("patient stats = %+v", mine)
	}
}

func TestEmitFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New("mailer down")

	a := f.book(t, f.patient, "2025-01-10", "09:00")
	if _, err := f.svc.Cancel(context.Background(), patientActor(f.patient), a.ID, ""); err != nil {
		t.Fatalf("cancel should succeed despite emitter failure: %v", err)
	}
	if n := len(f.events.Events()); n != 2 {
		t.Errorf("expected 2 attempted events, got %d", n)
	}
}
