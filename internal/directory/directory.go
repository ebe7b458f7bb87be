// Package directory resolves people from the users table for the scheduler
// and lists the doctors of a hospital.
package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
)

// UserDirectory is a scheduling.PersonDirectory over models.User.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

// Lookup returns the person with the given id.
func (d *UserDirectory) Lookup(ctx context.Context, ref string) (*scheduling.Person, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduling.NewError(scheduling.KindNotFound, "user %s not found", ref)
		}
		return nil, fmt.Errorf("lookup user %s: %w", ref, err)
	}
	return ToPerson(&user), nil
}

// DoctorQuery narrows ListDoctors. An empty TenantID lists every hospital.
type DoctorQuery struct {
	TenantID  string
	Specialty string
}

// ListDoctors returns doctors ordered by last and first name.
func (d *UserDirectory) ListDoctors(ctx context.Context, q DoctorQuery) ([]models.DoctorSummary, error) {
	tx := d.db.WithContext(ctx).Where("role = ?", models.RoleDoctor)
	if q.TenantID != "" {
		tx = tx.Where("tenant_id = ?", q.TenantID)
	}
	if q.Specialty != "" {
		tx = tx.Where("specialty = ?", q.Specialty)
	}

	var doctors []models.User
	if err := tx.Order("last_name asc").Order("first_name asc").Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return Summaries(doctors), nil
}

// ToPerson maps a users row onto the scheduler's view of a person.
func ToPerson(u *models.User) *scheduling.Person {
	return &scheduling.Person{
		ID:              u.ID,
		TenantID:        u.TenantID,
		Role:            u.Role,
		Name:            u.FullName(),
		Specialty:       u.Specialty,
		ConsultationFee: u.ConsultationFee,
	}
}

// Summaries converts doctor rows to their public view.
func Summaries(users []models.User) []models.DoctorSummary {
	out := make([]models.DoctorSummary, len(users))
	for i := range users {
		out[i] = users[i].Summarize()
	}
	return out
}
