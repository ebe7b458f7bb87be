package models

import (
	"fmt"
	"strings"
)

// Role enum
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleDoctor     Role = "doctor"
	RolePatient    Role = "patient"
)

// ParseRole accepts the role spellings found in tokens and the users table.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleSuperAdmin, RoleDoctor, RolePatient:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is the directory record for a person known to a hospital. Accounts and
// credentials are managed elsewhere; this service only reads these rows.
type User struct {
	BaseModel
	TenantID        string  `gorm:"size:64;index;not null" json:"tenantId"`
	Email           string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName       string  `gorm:"size:100" json:"firstName"`
	LastName        string  `gorm:"size:100" json:"lastName"`
	Role            Role    `gorm:"size:20;index;not null" json:"role"`
	Specialty       string  `gorm:"size:100" json:"specialty,omitempty"`
	ConsultationFee float64 `gorm:"type:decimal(10,2);default:0" json:"consultationFee"`
	PhoneNumber     string  `json:"phoneNumber,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DoctorSummary is the public view of a doctor used in listings and slot responses.
type DoctorSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Specialty       string  `json:"specialty,omitempty"`
	ConsultationFee float64 `json:"consultationFee"`
}

// Summarize creates a DoctorSummary from a User row.
func (u *User) Summarize() DoctorSummary {
	return DoctorSummary{
		ID:              u.ID,
		Name:            u.FullName(),
		Specialty:       u.Specialty,
		ConsultationFee: u.ConsultationFee,
	}
}
