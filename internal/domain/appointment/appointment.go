package appointment

import (
	"time"

	"github.com/google/uuid"
)

// State transitions:
//
//	scheduled → scheduled | completed | cancelled
//	completed, cancelled are terminal
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	ScheduledAt time.Time         `gorm:"column:scheduled_at;not null;index"`
	Status      AppointmentStatus `gorm:"column:status;type:varchar(20);not null;default:'SCHEDULED';index"`

	Reason string `gorm:"column:reason;type:varchar(500);not null"`
	Notes  string `gorm:"column:notes;type:text"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) CanTransitionTo(newStatus AppointmentStatus) bool {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusScheduled: {StatusScheduled, StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// UpdateStatus moves the appointment to newStatus. A nil or empty notes
// leaves the existing notes untouched.
func (a *Appointment) UpdateStatus(newStatus AppointmentStatus, notes *string) error {
	switch a.Status {
	case StatusCompleted:
		return ErrAppointmentCompleted
	case StatusCancelled:
		return ErrAppointmentCancelled
	}
	if !newStatus.IsValid() {
		return ErrInvalidStatus
	}
	if !a.CanTransitionTo(newStatus) {
		return ErrInvalidStatus
	}

	a.Status = newStatus
	if notes != nil && *notes != "" {
		a.Notes = *notes
	}
	return nil
}

type ScheduleAppointmentCommand struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ScheduledAt time.Time
	Reason      string
	Notes       string
}

type UpdateStatusCommand struct {
	Status AppointmentStatus
	Notes  *string
}

// Filter narrows appointment queries. From/To bound ScheduledAt inclusively.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *AppointmentStatus
	From      *time.Time
	To        *time.Time
	Ascending bool
}
