package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	// PatientNumber is the externally visible identifier, e.g. P000042.
	PatientNumber string `gorm:"column:patient_number;type:varchar(20);uniqueIndex;not null"`

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100);not null"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;type:date;not null"`
	Gender      Gender    `gorm:"column:gender;type:varchar(10);not null"`

	Phone          string `gorm:"column:phone;type:varchar(20);uniqueIndex;not null"`
	Email          string `gorm:"column:email;type:varchar(255)"`
	Address        string `gorm:"column:address;type:text"`
	BloodGroup     string `gorm:"column:blood_group;type:varchar(5)"`
	MedicalHistory string `gorm:"column:medical_history;type:text"` // PHI
	Allergies      string `gorm:"column:allergies;type:text"`       // PHI

	EmergencyContact string `gorm:"column:emergency_contact;type:varchar(100)"`
	EmergencyPhone   string `gorm:"column:emergency_phone;type:varchar(20)"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AgeAt returns the patient's age in whole years at t.
func (p *Patient) AgeAt(t time.Time) int {
	years := t.Year() - p.DateOfBirth.Year()
	if t.Month() < p.DateOfBirth.Month() ||
		(t.Month() == p.DateOfBirth.Month() && t.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

type RegisterPatientCommand struct {
	FirstName        string
	LastName         string
	DateOfBirth      time.Time
	Gender           Gender
	Phone            string
	Email            string
	Address          string
	BloodGroup       string
	MedicalHistory   string
	Allergies        string
	EmergencyContact string
	EmergencyPhone   string
}

// UpdatePatientCommand replaces every profile field; the patient number never changes.
type UpdatePatientCommand = RegisterPatientCommand

// Apply copies the profile fields of cmd onto p.
func (p *Patient) Apply(cmd *RegisterPatientCommand) {
	p.FirstName = strings.TrimSpace(cmd.FirstName)
	p.LastName = strings.TrimSpace(cmd.LastName)
	p.DateOfBirth = cmd.DateOfBirth
	p.Gender = cmd.Gender
	p.Phone = strings.TrimSpace(cmd.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	p.Address = cmd.Address
	p.BloodGroup = cmd.BloodGroup
	p.MedicalHistory = cmd.MedicalHistory
	p.Allergies = cmd.Allergies
	p.EmergencyContact = cmd.EmergencyContact
	p.EmergencyPhone = cmd.EmergencyPhone
}

type ListPatientsQuery struct {
	Search string // matches first/last name, patient number or phone
}
