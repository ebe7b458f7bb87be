// Package schedulingtest provides in-memory implementations of the scheduling
// ports for tests.
package schedulingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
)

// Repository is an in-memory scheduling.Repository. Transactions are
// serialised and roll back by restoring a snapshot.
type Repository struct {
	txMu sync.Mutex
	mu   sync.Mutex
	rows map[string]models.Appointment

	// FailUpdate, when set, is consulted before every update.
	FailUpdate func(a *models.Appointment) error
}

func NewRepository() *Repository {
	return &Repository{rows: make(map[string]models.Appointment)}
}

// Put stores a fixture as-is, bypassing the booking key check.
func (r *Repository) Put(a *models.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	r.rows[a.ID] = *a
}

// All returns a copy of every stored appointment.
func (r *Repository) All() []models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Appointment, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, a)
	}
	return out
}

func (r *Repository) Create(ctx context.Context, a *models.Appointment) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.create(a)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return r.get(id)
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	return r.get(id)
}

func (r *Repository) Update(ctx context.Context, a *models.Appointment) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.update(a)
}

func (r *Repository) BookedSlots(ctx context.Context, doctorID string, date models.Date) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var slots []string
	for _, a := range r.rows {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.HoldsSlot() {
			slots = append(slots, a.TimeSlot)
		}
	}
	sort.Strings(slots)
	return slots, nil
}

func (r *Repository) List(ctx context.Context, f scheduling.ListFilter) ([]*models.Appointment, int64, error) {
	r.mu.Lock()
	var matched []models.Appointment
	for _, a := range r.rows {
		if matches(a, f) {
			matched = append(matched, a)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].TimeSlot < matched[j].TimeSlot
	})

	total := int64(len(matched))
	if f.Limit > 0 {
		start := f.Offset
		if start > len(matched) {
			start = len(matched)
		}
		end := start + f.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	out := make([]*models.Appointment, len(matched))
	for i := range matched {
		a := matched[i]
		out[i] = &a
	}
	return out, total, nil
}

func matches(a models.Appointment, f scheduling.ListFilter) bool {
	if f.TenantID != "" && a.TenantID != f.TenantID {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && a.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Date.After(*f.To) {
		return false
	}
	return true
}

func (r *Repository) CountByStatus(ctx context.Context, scope scheduling.StatsScope) (map[models.AppointmentStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.AppointmentStatus]int64)
	for _, a := range r.rows {
		if scope.TenantID != "" && a.TenantID != scope.TenantID {
			continue
		}
		if scope.DoctorID != "" && a.DoctorID != scope.DoctorID {
			continue
		}
		if scope.PatientID != "" && a.PatientID != scope.PatientID {
			continue
		}
		counts[a.Status]++
	}
	return counts, nil
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx scheduling.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snapshot := r.snapshot()
	if err := fn(&txView{r: r}); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshot() map[string]models.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]models.Appointment, len(r.rows))
	for k, v := range r.rows {
		cp[k] = v
	}
	return cp
}

func (r *Repository) restore(rows map[string]models.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func (r *Repository) get(id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, scheduling.NewError(scheduling.KindNotFound, "appointment %s not found", id)
	}
	return &a, nil
}

// create mirrors the unique index on (doctor, date, slot) over live rows.
func (r *Repository) create(a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.HoldsSlot() {
		for _, other := range r.rows {
			if other.HoldsSlot() && other.DoctorID == a.DoctorID && other.Date.Equal(a.Date) && other.TimeSlot == a.TimeSlot {
				return scheduling.NewError(scheduling.KindSlotConflict, "slot already booked")
			}
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.rows[a.ID] = *a
	return nil
}

func (r *Repository) update(a *models.Appointment) error {
	if r.FailUpdate != nil {
		if err := r.FailUpdate(a); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return scheduling.NewError(scheduling.KindNotFound, "appointment not found")
	}
	a.UpdatedAt = time.Now().UTC()
	r.rows[a.ID] = *a
	return nil
}

// txView is the repository handed to a transaction body; the caller already
// holds txMu.
type txView struct {
	r *Repository
}

func (t *txView) Create(ctx context.Context, a *models.Appointment) error { return t.r.create(a) }
func (t *txView) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return t.r.get(id)
}
func (t *txView) GetForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	return t.r.get(id)
}
func (t *txView) Update(ctx context.Context, a *models.Appointment) error { return t.r.update(a) }
func (t *txView) BookedSlots(ctx context.Context, doctorID string, date models.Date) ([]string, error) {
	return t.r.BookedSlots(ctx, doctorID, date)
}
func (t *txView) List(ctx context.Context, f scheduling.ListFilter) ([]*models.Appointment, int64, error) {
	return t.r.List(ctx, f)
}
func (t *txView) CountByStatus(ctx context.Context, scope scheduling.StatsScope) (map[models.AppointmentStatus]int64, error) {
	return t.r.CountByStatus(ctx, scope)
}
func (t *txView) Transaction(ctx context.Context, fn func(tx scheduling.Repository) error) error {
	return fn(t)
}

// Directory is an in-memory scheduling.PersonDirectory.
type Directory struct {
	mu     sync.RWMutex
	people map[string]*scheduling.Person
}

func NewDirectory() *Directory {
	return &Directory{people: make(map[string]*scheduling.Person)}
}

// Add registers a person and returns it.
func (d *Directory) Add(p scheduling.Person) *scheduling.Person {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	d.people[p.ID] = &p
	return &p
}

func (d *Directory) Lookup(ctx context.Context, ref string) (*scheduling.Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[ref]
	if !ok {
		return nil, scheduling.NewError(scheduling.KindNotFound, "person %s not found", ref)
	}
	cp := *p
	return &cp, nil
}

// Recorder is a scheduling.Emitter that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []scheduling.Event
	// Err is returned from Emit after recording.
	Err error
}

func (r *Recorder) Emit(ctx context.Context, e scheduling.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

func (r *Recorder) Events() []scheduling.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduling.Event, len(r.events))
	copy(out, r.events)
	return out
}
