package scheduling

import (
	"hospital-ops-server/internal/models"
)

// Stats counts appointments per status. Every key is always present.
type Stats struct {
	Total     int64 `json:"total"`
	Scheduled int64 `json:"scheduled"`
	Confirmed int64 `json:"confirmed"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	NoShow    int64 `json:"no_show"`
}

// StatsScope narrows the aggregation. Empty fields do not filter.
type StatsScope struct {
	TenantID  string
	DoctorID  string
	PatientID string
}

func statsScopeFor(actor Actor) StatsScope {
	switch actor.Kind {
	case models.RoleDoctor:
		return StatsScope{TenantID: actor.TenantID, DoctorID: actor.Ref}
	case models.RolePatient:
		return StatsScope{TenantID: actor.TenantID, PatientID: actor.Ref}
	case models.RoleSuperAdmin:
		return StatsScope{}
	default:
		return StatsScope{TenantID: actor.TenantID}
	}
}

// aggregate folds grouped counts into Stats. Unknown statuses are ignored so
// that Total always equals the sum of the five buckets.
func aggregate(counts map[models.AppointmentStatus]int64) Stats {
	s := Stats{
		Scheduled: counts[models.StatusScheduled],
		Confirmed: counts[models.StatusConfirmed],
		Completed: counts[models.StatusCompleted],
		Cancelled: counts[models.StatusCancelled],
		NoShow:    counts[models.StatusNoShow],
	}
	s.Total = s.Scheduled + s.Confirmed + s.Completed + s.Cancelled + s.NoShow
	return s
}
