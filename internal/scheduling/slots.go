package scheduling

import (
	"fmt"
	"sort"
	"time"

	"hospital-ops-server/internal/models"
)

// Clinical day. The last bookable start is 20:00.
const (
	DayStart   = 9 * 60
	DayEnd     = 20*60 + 30
	SlotLength = 30
)

// SlotCatalogue lists every bookable start of a clinical day in ascending order.
func SlotCatalogue() []string {
	slots := make([]string, 0, (DayEnd-DayStart)/SlotLength)
	for m := DayStart; m < DayEnd; m += SlotLength {
		slots = append(slots, minutesToSlot(m))
	}
	return slots
}

func minutesToSlot(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseSlot validates an "HH:MM" slot against the catalogue and returns its clock time.
func ParseSlot(slot string) (hour, minute int, err error) {
	if len(slot) != 5 || slot[2] != ':' {
		return 0, 0, NewError(KindValidation, "time slot %q must be HH:MM", slot)
	}
	t, perr := time.Parse("15:04", slot)
	if perr != nil {
		return 0, 0, NewError(KindValidation, "time slot %q must be HH:MM", slot).Wrap(perr)
	}
	m := t.Hour()*60 + t.Minute()
	if m < DayStart || m >= DayEnd || (m-DayStart)%SlotLength != 0 {
		return 0, 0, NewError(KindValidation, "time slot %q is outside the bookable day", slot)
	}
	return t.Hour(), t.Minute(), nil
}

// ScheduledAt places an appointment's date and slot on the clock in loc.
func ScheduledAt(date models.Date, slot string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseSlot(slot)
	if err != nil {
		return time.Time{}, err
	}
	return date.In(loc, h, m), nil
}

// SlotAvailability is the slot view of one doctor's day.
type SlotAvailability struct {
	Date           models.Date          `json:"date"`
	Doctor         models.DoctorSummary `json:"doctor"`
	AllSlots       []string             `json:"allSlots"`
	BookedSlots    []string             `json:"bookedSlots"`
	AvailableSlots []string             `json:"availableSlots"`
}

// subtractBooked returns all minus booked, keeping catalogue order, and the
// booked set normalised to ascending order without duplicates.
func subtractBooked(all, booked []string) (available, bookedSorted []string) {
	taken := make(map[string]struct{}, len(booked))
	for _, s := range booked {
		taken[s] = struct{}{}
	}
	available = make([]string, 0, len(all))
	for _, s := range all {
		if _, ok := taken[s]; !ok {
			available = append(available, s)
		}
	}
	bookedSorted = make([]string, 0, len(taken))
	for s := range taken {
		bookedSorted = append(bookedSorted, s)
	}
	sort.Strings(bookedSorted)
	return available, bookedSorted
}
