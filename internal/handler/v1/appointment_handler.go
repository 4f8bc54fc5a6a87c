package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type scheduleAppointmentRequest struct {
	PatientID   string    `json:"patient_id" binding:"required,uuid"`
	DoctorID    string    `json:"doctor_id" binding:"required,uuid"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason" binding:"required,max=500"`
	Notes       string    `json:"notes"`
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=SCHEDULED COMPLETED CANCELLED"`
	Notes  *string `json:"notes"`
}

func (h *Handler) scheduleAppointment(c *gin.Context) {
	var req scheduleAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ScheduledAt.IsZero() {
		respondError(c, http.StatusBadRequest, "scheduled_at is required")
		return
	}
	if !req.ScheduledAt.After(h.clock.Now()) {
		respondServiceError(c, appointment.ErrScheduledInPast)
		return
	}

	a, err := h.svc.Appointments.ScheduleAppointment(c.Request.Context(), actorFrom(c), &appointment.ScheduleAppointmentCommand{
		PatientID:   uuid.MustParse(req.PatientID),
		DoctorID:    uuid.MustParse(req.DoctorID),
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *Handler) updateAppointmentStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Appointments.UpdateStatus(c.Request.Context(), actorFrom(c), id, &appointment.UpdateStatusCommand{
		Status: appointment.AppointmentStatus(req.Status),
		Notes:  req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) getAppointment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Appointments.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) listAppointments(c *gin.Context) {
	res, err := h.svc.Appointments.ListAppointments(c.Request.Context(), pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listAppointmentsByDate(c *gin.Context) {
	date, ok := parseDate(c, h.location(), "date", c.Query("date"))
	if !ok {
		return
	}

	res, err := h.svc.Appointments.ListByDate(c.Request.Context(), date, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listTodayAppointments(c *gin.Context) {
	res, err := h.svc.Appointments.ListToday(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listTodayAppointmentsByDoctor(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Appointments.ListTodayByDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listAppointmentsByDoctor(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Appointments.ListByDoctor(c.Request.Context(), id, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listAppointmentsByPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Appointments.ListByPatient(c.Request.Context(), id, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listAppointmentsByStatus(c *gin.Context) {
	status := appointment.AppointmentStatus(strings.ToUpper(c.Param("status")))

	res, err := h.svc.Appointments.ListByStatus(c.Request.Context(), status, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}
