package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []AppointmentStatus{
	StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow,
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// AppointmentType is informational only.
type AppointmentType string

const (
	TypeClinicVisit  AppointmentType = "clinic_visit"
	TypeTelemedicine AppointmentType = "telemedicine"
	TypeEmergency    AppointmentType = "emergency"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeWalkIn       AppointmentType = "walk-in"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeClinicVisit, TypeTelemedicine, TypeEmergency, TypeFollowUp, TypeWalkIn:
		return true
	}
	return false
}

// PaymentStatus of the consultation fee.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	Amount        float64       `gorm:"type:decimal(10,2);default:0" json:"amount"`
	Status        PaymentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Method        string        `gorm:"size:30" json:"method,omitempty"`
	TransactionID string        `gorm:"size:100" json:"transactionId,omitempty"`
}

type FollowUp struct {
	Required bool  `gorm:"default:false" json:"required"`
	Date     *Date `json:"date,omitempty"`
}

// Appointment represents a booked doctor slot and its clinical annotations.
//
// (DoctorID, Date, TimeSlot, SlotHeld) carries a unique index. SlotHeld is
// true while the appointment occupies its slot and NULL once cancelled, so
// any number of cancelled rows can share a key with one live row.
type Appointment struct {
	BaseModel
	TenantID  string            `gorm:"size:64;index;not null" json:"tenantId"`
	PatientID string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID  string            `gorm:"size:36;not null;uniqueIndex:idx_doctor_slot_held,priority:1" json:"doctorId"`
	Date      Date              `gorm:"not null;uniqueIndex:idx_doctor_slot_held,priority:2" json:"date"`
	TimeSlot  string            `gorm:"size:5;not null;uniqueIndex:idx_doctor_slot_held,priority:3" json:"timeSlot"`
	SlotHeld  *bool             `gorm:"uniqueIndex:idx_doctor_slot_held,priority:4" json:"-"`
	Status    AppointmentStatus `gorm:"size:20;index;not null;default:'scheduled'" json:"status"`
	Type      AppointmentType   `gorm:"size:20;not null;default:'clinic_visit'" json:"type"`
	Symptoms  string            `gorm:"type:text" json:"symptoms,omitempty"`
	Diagnosis string            `gorm:"type:text" json:"diagnosis,omitempty"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`
	FollowUp  FollowUp          `gorm:"embedded;embeddedPrefix:follow_up_" json:"followUp"`
	Payment   Payment           `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	CancelReason    string     `gorm:"size:500" json:"cancelReason,omitempty"`
	CancelledBy     string     `gorm:"size:36" json:"cancelledBy,omitempty"`
	CancelledByRole Role       `gorm:"size:20" json:"cancelledByRole,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// HoldsSlot reports whether the appointment still occupies its booking key.
func (a *Appointment) HoldsSlot() bool {
	return a.Status != StatusCancelled
}

// BeforeSave derives SlotHeld from the status so the unique index always
// reflects the live set.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	if a.HoldsSlot() {
		held := true
		a.SlotHeld = &held
	} else {
		a.SlotHeld = nil
	}
	return nil
}
