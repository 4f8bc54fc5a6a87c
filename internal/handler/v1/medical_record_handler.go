package v1

import (
	"time"

	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type clinicalFieldsRequest struct {
	Diagnosis      string `json:"diagnosis" binding:"required"`
	Prescription   string `json:"prescription"`
	TreatmentNotes string `json:"treatment_notes"`
	LabResults     string `json:"lab_results"`
	VisitDate      string `json:"visit_date"`
}

type createRecordRequest struct {
	PatientID     string  `json:"patient_id" binding:"required,uuid"`
	DoctorID      string  `json:"doctor_id" binding:"required,uuid"`
	AppointmentID *string `json:"appointment_id" binding:"omitempty,uuid"`
	clinicalFieldsRequest
}

func (r clinicalFieldsRequest) toFields(c *gin.Context, loc *time.Location) (mr.ClinicalFields, bool) {
	visit, ok := optionalDate(c, loc, "visit_date", r.VisitDate)
	if !ok {
		return mr.ClinicalFields{}, false
	}
	return mr.ClinicalFields{
		Diagnosis:      r.Diagnosis,
		Prescription:   r.Prescription,
		TreatmentNotes: r.TreatmentNotes,
		LabResults:     r.LabResults,
		VisitDate:      visit,
	}, true
}

func (h *Handler) addMedicalRecord(c *gin.Context) {
	var req createRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	appointmentID, ok := optionalUUID(c, "appointment_id", req.AppointmentID)
	if !ok {
		return
	}
	fields, ok := req.toFields(c, h.location())
	if !ok {
		return
	}

	rec, err := h.svc.Records.AddRecord(c.Request.Context(), actorFrom(c), &mr.CreateRecordCommand{
		PatientID:      uuid.MustParse(req.PatientID),
		DoctorID:       uuid.MustParse(req.DoctorID),
		AppointmentID:  appointmentID,
		ClinicalFields: fields,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, rec)
}

func (h *Handler) updateMedicalRecord(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req clinicalFieldsRequest
	if !bindJSON(c, &req) {
		return
	}
	fields, ok := req.toFields(c, h.location())
	if !ok {
		return
	}

	rec, err := h.svc.Records.UpdateRecord(c.Request.Context(), actorFrom(c), id, &mr.UpdateRecordCommand{ClinicalFields: fields})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *Handler) getMedicalRecord(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Records.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *Handler) listMedicalRecords(c *gin.Context) {
	res, err := h.svc.Records.ListRecords(c.Request.Context(), pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) patientHistory(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Records.PatientHistory(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listMedicalRecordsByDoctor(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Records.ListByDoctor(c.Request.Context(), id, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}
