package models

import (
	"time"
)

// NotificationKind names the appointment event a notification reports.
type NotificationKind string

const (
	NotificationBooked        NotificationKind = "appointment_booked"
	NotificationCancelled     NotificationKind = "appointment_cancelled"
	NotificationStatusChanged NotificationKind = "appointment_status_changed"
)

// NotificationStatus represents the status of a notification
type NotificationStatus string

const (
	NotificationStatusSent NotificationStatus = "sent"
	NotificationStatusRead NotificationStatus = "read"
)

// Notification is one inbox entry for a recipient. Delivery to phones or push
// channels happens outside this service.
type Notification struct {
	BaseModel
	TenantID      string             `gorm:"size:64;index;not null" json:"tenantId"`
	RecipientID   string             `gorm:"size:36;index;not null" json:"recipientId"`
	AppointmentID string             `gorm:"size:36;index" json:"appointmentId"`
	Kind          NotificationKind   `gorm:"size:40;not null" json:"kind"`
	Subject       string             `gorm:"size:255" json:"subject"`
	Content       string             `gorm:"type:text" json:"content"`
	Status        NotificationStatus `gorm:"size:20;default:'sent'" json:"status"`
	ReadAt        *time.Time         `json:"readAt,omitempty"`
}
