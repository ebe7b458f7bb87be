package scheduling

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hospital-ops-server/internal/models"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type gormRepo struct {
	db *gorm.DB
}

// NewGormRepository returns a Repository over the appointments table.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepo{db: db}
}

func (r *gormRepo) Create(ctx context.Context, a *models.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicateKey(err) {
			return NewError(KindSlotConflict, "slot %s on %s is already booked", a.TimeSlot, a.Date).
				Arg("doctorId", a.DoctorID).
				Arg("date", a.Date.String()).
				Arg("timeSlot", a.TimeSlot).
				Wrap(err)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func (r *gormRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *gormRepo) GetForUpdate(ctx context.Context, id string) (*models.Appointment, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *gormRepo) get(q *gorm.DB, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := q.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "appointment %s not found", id)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

func (r *gormRepo) Update(ctx context.Context, a *models.Appointment) error {
	res := r.db.WithContext(ctx).Save(a)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return NewError(KindSlotConflict, "slot %s on %s is already booked", a.TimeSlot, a.Date).Wrap(res.Error)
		}
		return res.Error
	}
	return nil
}

func (r *gormRepo) BookedSlots(ctx context.Context, doctorID string, date models.Date) ([]string, error) {
	var slots []string
	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status <> ?", doctorID, date, models.StatusCancelled).
		Order("time_slot asc").
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *gormRepo) List(ctx context.Context, f ListFilter) ([]*models.Appointment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if f.TenantID != "" {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	// count and page from the same conditions
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	var items []*models.Appointment
	page := q.Order("date asc").Order("time_slot asc")
	if f.Limit > 0 {
		page = page.Limit(f.Limit).Offset(f.Offset)
	}
	if err := page.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}

func (r *gormRepo) CountByStatus(ctx context.Context, scope StatsScope) (map[models.AppointmentStatus]int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if scope.TenantID != "" {
		q = q.Where("tenant_id = ?", scope.TenantID)
	}
	if scope.DoctorID != "" {
		q = q.Where("doctor_id = ?", scope.DoctorID)
	}
	if scope.PatientID != "" {
		q = q.Where("patient_id = ?", scope.PatientID)
	}

	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *gormRepo) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepo{db: tx})
	})
}
