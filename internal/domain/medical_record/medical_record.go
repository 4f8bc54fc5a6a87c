package medical_record

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is one clinical entry. Its linkage (patient, doctor,
// appointment) is fixed at creation; only the clinical fields change later.
type MedicalRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID     uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID      uuid.UUID  `gorm:"column:doctor_id;type:uuid;not null;index"`
	AppointmentID *uuid.UUID `gorm:"column:appointment_id;type:uuid;index"`

	Diagnosis      string `gorm:"column:diagnosis;type:text;not null"`
	Prescription   string `gorm:"column:prescription;type:text"`
	TreatmentNotes string `gorm:"column:treatment_notes;type:text"`
	LabResults     string `gorm:"column:lab_results;type:text"`

	VisitDate time.Time `gorm:"column:visit_date;not null;index"`
}

func (MedicalRecord) TableName() string {
	return "clinical.medical_records"
}

// ClinicalFields is the mutable part of a record.
type ClinicalFields struct {
	Diagnosis      string
	Prescription   string
	TreatmentNotes string
	LabResults     string
	VisitDate      time.Time
}

func (f ClinicalFields) Validate() error {
	if strings.TrimSpace(f.Diagnosis) == "" {
		return ErrDiagnosisRequired
	}
	return nil
}

// ApplyClinical replaces the clinical fields and visit date.
func (r *MedicalRecord) ApplyClinical(f ClinicalFields) {
	r.Diagnosis = f.Diagnosis
	r.Prescription = f.Prescription
	r.TreatmentNotes = f.TreatmentNotes
	r.LabResults = f.LabResults
	r.VisitDate = f.VisitDate
}

type CreateRecordCommand struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	AppointmentID *uuid.UUID
	ClinicalFields
}

type UpdateRecordCommand struct {
	ClinicalFields
}

type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}
