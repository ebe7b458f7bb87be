// Package notification keeps the per-user inbox of appointment events.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
)

// Store persists notifications and receives scheduling events.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, log: logger.With().Str("component", "notification").Logger()}
}

// Emit writes one inbox row per recipient of the event.
func (s *Store) Emit(ctx context.Context, e scheduling.Event) error {
	rows := Render(e)
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("store notifications for appointment %s: %w", e.Appointment.ID, err)
	}
	s.log.Debug().
		Str("appointment_id", e.Appointment.ID).
		Str("event", string(e.Kind)).
		Int("recipients", len(rows)).
		Msg("notifications stored")
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *Store) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("status = ?", models.NotificationStatusSent)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	var items []models.Notification
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead marks one of the recipient's notifications as read. Marking an
// already read notification is a no-op.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduling.NewError(scheduling.KindNotFound, "notification %s not found", id)
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if n.RecipientID != recipientID {
		return nil, scheduling.NewError(scheduling.KindForbidden, "notification belongs to another user")
	}
	if !markRead(&n, time.Now()) {
		return &n, nil
	}
	if err := s.db.WithContext(ctx).Model(&n).Updates(map[string]interface{}{
		"status":  n.Status,
		"read_at": n.ReadAt,
	}).Error; err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}

// markRead flips a notification to read and reports whether it changed.
func markRead(n *models.Notification, now time.Time) bool {
	if n.Status == models.NotificationStatusRead {
		return false
	}
	at := now.UTC()
	n.Status = models.NotificationStatusRead
	n.ReadAt = &at
	return true
}
