package scheduling

import (
	"hospital-ops-server/internal/models"
)

// Actor is the authenticated identity issuing a request.
type Actor struct {
	Kind     models.Role
	Ref      string
	TenantID string
}

func (a Actor) IsStaff() bool {
	return a.Kind == models.RoleAdmin || a.Kind == models.RoleSuperAdmin
}

// Action is an operation subject to the capability table.
type Action string

const (
	ActionBook          Action = "book"
	ActionViewSlots     Action = "view_slots"
	ActionView          Action = "view"
	ActionStats         Action = "stats"
	ActionConfirm       Action = "confirm"
	ActionComplete      Action = "complete"
	ActionNoShow        Action = "no_show"
	ActionCancel        Action = "cancel"
	ActionAmend         Action = "amend"
	ActionRecordPayment Action = "record_payment"
	ActionBulkStatus    Action = "bulk_status"
)

// Scope is how far a capability reaches.
type Scope int

const (
	ScopeNone Scope = iota
	// ScopeOwn covers appointments where the actor is the patient or the doctor.
	ScopeOwn
	// ScopeTenant covers every appointment of the actor's hospital.
	ScopeTenant
	// ScopeAll crosses tenants.
	ScopeAll
)

var capabilities = map[Action]map[models.Role]Scope{
	ActionBook: {
		models.RolePatient: ScopeOwn, models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionViewSlots: {
		models.RolePatient: ScopeTenant, models.RoleDoctor: ScopeTenant,
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionView: {
		models.RolePatient: ScopeOwn, models.RoleDoctor: ScopeOwn,
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionStats: {
		models.RolePatient: ScopeOwn, models.RoleDoctor: ScopeOwn,
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionConfirm: {
		models.RoleDoctor: ScopeOwn, models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionComplete: {
		models.RoleDoctor: ScopeOwn, models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionNoShow: {
		models.RoleDoctor: ScopeOwn, models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionCancel: {
		models.RolePatient: ScopeOwn, models.RoleDoctor: ScopeOwn,
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionAmend: {
		models.RolePatient: ScopeOwn, models.RoleDoctor: ScopeOwn,
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionRecordPayment: {
		models.RolePatient: ScopeOwn, models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
	ActionBulkStatus: {
		models.RoleAdmin: ScopeTenant, models.RoleSuperAdmin: ScopeAll,
	},
}

// ScopeFor looks up the capability table.
func ScopeFor(action Action, kind models.Role) Scope {
	return capabilities[action][kind]
}

// Can reports whether the actor holds the action at any scope.
func Can(actor Actor, action Action) error {
	if ScopeFor(action, actor.Kind) == ScopeNone {
		return NewError(KindForbidden, "role %s may not %s", actor.Kind, action)
	}
	return nil
}

// Authorize checks that the actor may perform action on the appointment.
func Authorize(actor Actor, action Action, a *models.Appointment) error {
	switch ScopeFor(action, actor.Kind) {
	case ScopeAll:
		return nil
	case ScopeTenant:
		if a.TenantID == actor.TenantID {
			return nil
		}
	case ScopeOwn:
		if a.TenantID == actor.TenantID && involves(actor, a) {
			return nil
		}
	}
	return NewError(KindForbidden, "not permitted to %s this appointment", action)
}

// authorizeTenant checks tenant reach for resources that are not appointments.
func authorizeTenant(actor Actor, action Action, tenantID string) error {
	switch ScopeFor(action, actor.Kind) {
	case ScopeAll:
		return nil
	case ScopeNone:
		return NewError(KindForbidden, "role %s may not %s", actor.Kind, action)
	}
	if tenantID != actor.TenantID {
		return NewError(KindForbidden, "resource belongs to another tenant")
	}
	return nil
}

func involves(actor Actor, a *models.Appointment) bool {
	switch actor.Kind {
	case models.RolePatient:
		return a.PatientID == actor.Ref
	case models.RoleDoctor:
		return a.DoctorID == actor.Ref
	}
	return false
}

// actionFor maps a target status onto the capability that guards it.
func actionFor(to models.AppointmentStatus) (Action, bool) {
	switch to {
	case models.StatusConfirmed:
		return ActionConfirm, true
	case models.StatusCompleted:
		return ActionComplete, true
	case models.StatusNoShow:
		return ActionNoShow, true
	case models.StatusCancelled:
		return ActionCancel, true
	}
	return "", false
}
