package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/gin-gonic/gin"
)

type patientRequest struct {
	FirstName        string `json:"first_name" binding:"required,max=100"`
	LastName         string `json:"last_name" binding:"required,max=100"`
	DateOfBirth      string `json:"date_of_birth" binding:"required"`
	Gender           string `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Phone            string `json:"phone" binding:"required,max=20"`
	Email            string `json:"email" binding:"omitempty,email"`
	Address          string `json:"address"`
	BloodGroup       string `json:"blood_group" binding:"max=10"`
	MedicalHistory   string `json:"medical_history"`
	Allergies        string `json:"allergies"`
	EmergencyContact string `json:"emergency_contact" binding:"max=100"`
	EmergencyPhone   string `json:"emergency_phone" binding:"max=20"`
}

func (h *Handler) bindPatient(c *gin.Context) (*patient.RegisterPatientCommand, bool) {
	var req patientRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	dob, ok := parseDate(c, h.location(), "date_of_birth", req.DateOfBirth)
	if !ok {
		return nil, false
	}
	return &patient.RegisterPatientCommand{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      dob,
		Gender:           patient.Gender(req.Gender),
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		BloodGroup:       req.BloodGroup,
		MedicalHistory:   req.MedicalHistory,
		Allergies:        req.Allergies,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
	}, true
}

func (h *Handler) registerPatient(c *gin.Context) {
	cmd, ok := h.bindPatient(c)
	if !ok {
		return
	}

	p, err := h.svc.Patients.RegisterPatient(c.Request.Context(), actorFrom(c), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *Handler) getPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.Patients.GetPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) getPatientByNumber(c *gin.Context) {
	p, err := h.svc.Patients.GetPatientByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) updatePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	cmd, ok := h.bindPatient(c)
	if !ok {
		return
	}

	p, err := h.svc.Patients.UpdatePatient(c.Request.Context(), actorFrom(c), id, cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) listPatients(c *gin.Context) {
	res, err := h.svc.Patients.ListPatients(c.Request.Context(),
		&patient.ListPatientsQuery{Search: c.Query("search")}, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) deletePatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Patients.DeletePatient(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
