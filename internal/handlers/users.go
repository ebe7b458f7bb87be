package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hospital-ops-server/internal/directory"
	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/utils"
)

// DoctorLister is the part of the user directory the doctor listing needs.
type DoctorLister interface {
	ListDoctors(ctx context.Context, q directory.DoctorQuery) ([]models.DoctorSummary, error)
}

// UserHandler serves the directory endpoints patients use to pick a doctor.
type UserHandler struct {
	Directory DoctorLister
	Log       zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(dir DoctorLister, logger zerolog.Logger) *UserHandler {
	return &UserHandler{Directory: dir, Log: logger}
}

// GetDoctors lists the doctors of the caller's hospital. Super admins may pass
// ?tenantId= to pick a hospital or omit it to list all of them.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	q := directory.DoctorQuery{TenantID: who.TenantID, Specialty: c.Query("specialty")}
	if who.Kind == models.RoleSuperAdmin {
		q.TenantID = c.Query("tenantId")
	}

	doctors, err := h.Directory.ListDoctors(c.Request.Context(), q)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}
