package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hospital-ops-server/internal/middleware"
	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/scheduling"
	"hospital-ops-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *scheduling.Service
	Log     zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *scheduling.Service, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{Service: svc, Log: logger}
}

// actor fetches the authenticated actor or answers 401.
func actor(c *gin.Context) (scheduling.Actor, bool) {
	a, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	return a, true
}

func parseDate(c *gin.Context, field, value string) (models.Date, bool) {
	d, err := models.ParseDate(value)
	if err != nil {
		utils.BadRequest(c, field+": "+err.Error())
		return models.Date{}, false
	}
	return d, true
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	TimeSlot  string `json:"timeSlot" binding:"required,len=5"`
	Type      string `json:"type" binding:"omitempty,oneof=clinic_visit telemedicine emergency follow_up walk-in"`
	Symptoms  string `json:"symptoms" binding:"max=2000"`
}

// CreateAppointment books a slot. Patients book for themselves, staff on a
// patient's behalf.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	date, ok := parseDate(c, "date", req.Date)
	if !ok {
		return
	}

	appointment, err := h.Service.Book(c.Request.Context(), who, scheduling.BookingRequest{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		TimeSlot:  req.TimeSlot,
		Type:      models.AppointmentType(req.Type),
		Symptoms:  req.Symptoms,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetAvailableSlots lists the free slots of a doctor on ?date=.
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	raw := c.Query("date")
	if raw == "" {
		utils.BadRequest(c, "date query parameter is required")
		return
	}
	date, ok := parseDate(c, "date", raw)
	if !ok {
		return
	}

	slots, err := h.Service.AvailableSlots(c.Request.Context(), who, c.Param("doctorId"), date)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Available slots fetched successfully", slots)
}

// GetAppointments lists the appointments visible to the caller.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}

	page := utils.PaginationFromQuery(c)
	q := scheduling.ListQuery{Limit: page.Limit, Offset: page.Offset()}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Statuses = append(q.Statuses, models.AppointmentStatus(s))
			}
		}
	}
	if raw := c.Query("startDate"); raw != "" {
		d, ok := parseDate(c, "startDate", raw)
		if !ok {
			return
		}
		q.From = &d
	}
	if raw := c.Query("endDate"); raw != "" {
		d, ok := parseDate(c, "endDate", raw)
		if !ok {
			return
		}
		q.To = &d
	}

	items, total, err := h.Service.List(c.Request.Context(), who, q)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if items == nil {
		items = []*models.Appointment{}
	}
	utils.Success(c, "Appointments fetched successfully", utils.NewPaginated(items, total, page))
}

// GetAppointmentStats returns per-status counts over the caller's scope.
func (h *AppointmentHandler) GetAppointmentStats(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(c.Request.Context(), who)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment statistics fetched successfully", stats)
}

// GetAppointmentByID handles fetching a single appointment.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	appointment, err := h.Service.Get(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentStatusRequest represents the request body for a status change.
type UpdateAppointmentStatusRequest struct {
	Status       string `json:"status" binding:"required,oneof=scheduled confirmed completed cancelled no_show"`
	CancelReason string `json:"cancelReason" binding:"max=500"`
}

// UpdateAppointmentStatus moves an appointment along its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Service.ChangeStatus(c.Request.Context(), who, c.Param("id"),
		models.AppointmentStatus(req.Status), req.CancelReason)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appointment)
}

// CancelAppointmentRequest is the optional body of a cancellation.
type CancelAppointmentRequest struct {
	CancelReason string `json:"cancelReason" binding:"max=500"`
}

// CancelAppointment cancels an appointment, subject to the cancellation policy.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 && !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Service.Cancel(c.Request.Context(), who, c.Param("id"), req.CancelReason)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// UpdateAppointmentRequest carries the amendable fields. Absent fields are
// left unchanged.
type UpdateAppointmentRequest struct {
	Diagnosis *string          `json:"diagnosis" binding:"omitempty,max=5000"`
	Notes     *string          `json:"notes" binding:"omitempty,max=5000"`
	FollowUp  *models.FollowUp `json:"followUp"`
	Symptoms  *string          `json:"symptoms" binding:"omitempty,max=2000"`
	Type      *string          `json:"type" binding:"omitempty,oneof=clinic_visit telemedicine emergency follow_up walk-in"`
}

// UpdateAppointment amends the clinical annotations of an appointment.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	am := scheduling.Amendment{
		Diagnosis: req.Diagnosis,
		Notes:     req.Notes,
		FollowUp:  req.FollowUp,
		Symptoms:  req.Symptoms,
	}
	if req.Type != nil {
		t := models.AppointmentType(*req.Type)
		am.Type = &t
	}

	appointment, err := h.Service.Amend(c.Request.Context(), who, c.Param("id"), am)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appointment)
}

// RecordPaymentRequest is the settlement reference of a consultation fee.
type RecordPaymentRequest struct {
	Method        string `json:"method" binding:"required,max=30"`
	TransactionID string `json:"transactionId" binding:"max=100"`
}

// RecordPayment marks the consultation fee of an appointment as paid.
func (h *AppointmentHandler) RecordPayment(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Service.RecordPayment(c.Request.Context(), who, c.Param("id"), scheduling.PaymentReceipt{
		Method:        req.Method,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Payment recorded successfully", appointment)
}

// BulkStatusOperation is one entry of a bulk status request.
type BulkStatusOperation struct {
	ID           string `json:"id" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=scheduled confirmed completed cancelled no_show"`
	CancelReason string `json:"cancelReason" binding:"max=500"`
}

// BulkUpdateStatusRequest holds up to 100 status operations.
type BulkUpdateStatusRequest struct {
	Operations []BulkStatusOperation `json:"operations" binding:"required,min=1,max=100,dive"`
}

// BulkUpdateStatus applies every operation in one transaction or none.
func (h *AppointmentHandler) BulkUpdateStatus(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req BulkUpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ops := make([]scheduling.StatusOperation, len(req.Operations))
	for i, op := range req.Operations {
		ops[i] = scheduling.StatusOperation{
			ID:           op.ID,
			Status:       models.AppointmentStatus(op.Status),
			CancelReason: op.CancelReason,
		}
	}

	updated, err := h.Service.BulkChangeStatus(c.Request.Context(), who, ops)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointments updated successfully", gin.H{
		"updated":      len(updated),
		"appointments": updated,
	})
}
