package service

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
)

type UserView struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Phone       string      `json:"phone,omitempty"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
}

func newUserView(u *domain.User) *UserView {
	return &UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
	}
}

type PatientView struct {
	ID               uuid.UUID      `json:"id"`
	PatientNumber    string         `json:"patient_number"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	DateOfBirth      string         `json:"date_of_birth"`
	Age              int            `json:"age"`
	Gender           patient.Gender `json:"gender"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email,omitempty"`
	Address          string         `json:"address,omitempty"`
	BloodGroup       string         `json:"blood_group,omitempty"`
	MedicalHistory   string         `json:"medical_history,omitempty"`
	Allergies        string         `json:"allergies,omitempty"`
	EmergencyContact string         `json:"emergency_contact,omitempty"`
	EmergencyPhone   string         `json:"emergency_phone,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func newPatientView(p *patient.Patient, now time.Time) *PatientView {
	return &PatientView{
		ID:               p.ID,
		PatientNumber:    p.PatientNumber,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		DateOfBirth:      p.DateOfBirth.Format(time.DateOnly),
		Age:              p.AgeAt(now),
		Gender:           p.Gender,
		Phone:            p.Phone,
		Email:            p.Email,
		Address:          p.Address,
		BloodGroup:       p.BloodGroup,
		MedicalHistory:   p.MedicalHistory,
		Allergies:        p.Allergies,
		EmergencyContact: p.EmergencyContact,
		EmergencyPhone:   p.EmergencyPhone,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type AppointmentView struct {
	ID            uuid.UUID                     `json:"id"`
	PatientID     uuid.UUID                     `json:"patient_id"`
	PatientNumber string                        `json:"patient_number"`
	PatientName   string                        `json:"patient_name"`
	DoctorID      uuid.UUID                     `json:"doctor_id"`
	DoctorName    string                        `json:"doctor_name"`
	ScheduledAt   time.Time                     `json:"scheduled_at"`
	Status        appointment.AppointmentStatus `json:"status"`
	Reason        string                        `json:"reason"`
	Notes         string                        `json:"notes,omitempty"`
	CreatedBy     uuid.UUID                     `json:"created_by"`
	CreatedAt     time.Time                     `json:"created_at"`
	UpdatedAt     time.Time                     `json:"updated_at"`
}

type LineItemView struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

// BillView renders every amount with exactly two fractional digits.
type BillView struct {
	ID                uuid.UUID             `json:"id"`
	BillNumber        string                `json:"bill_number"`
	PatientID         uuid.UUID             `json:"patient_id"`
	PatientNumber     string                `json:"patient_number"`
	PatientName       string                `json:"patient_name"`
	AppointmentID     *uuid.UUID            `json:"appointment_id,omitempty"`
	Items             []LineItemView        `json:"items"`
	TotalAmount       string                `json:"total_amount"`
	PaidAmount        string                `json:"paid_amount"`
	OutstandingAmount string                `json:"outstanding_amount"`
	PaymentStatus     billing.PaymentStatus `json:"payment_status"`
	BillDate          time.Time             `json:"bill_date"`
	PaymentDate       *time.Time            `json:"payment_date,omitempty"`
	CreatedBy         uuid.UUID             `json:"created_by"`
	CreatedAt         time.Time             `json:"created_at"`
}

type MedicalRecordView struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	DoctorID       uuid.UUID  `json:"doctor_id"`
	DoctorName     string     `json:"doctor_name"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty"`
	Diagnosis      string     `json:"diagnosis"`
	Prescription   string     `json:"prescription,omitempty"`
	TreatmentNotes string     `json:"treatment_notes,omitempty"`
	LabResults     string     `json:"lab_results,omitempty"`
	VisitDate      time.Time  `json:"visit_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// viewer resolves the patient and user names a view needs. It caches for
// the duration of one call only.
type viewer struct {
	st       store.Store
	patients map[uuid.UUID]*patient.Patient
	users    map[uuid.UUID]*domain.User
}

func newViewer(st store.Store) *viewer {
	return &viewer{
		st:       st,
		patients: map[uuid.UUID]*patient.Patient{},
		users:    map[uuid.UUID]*domain.User{},
	}
}

// patient returns an empty patient when the row is gone.
func (v *viewer) patient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	if p, ok := v.patients[id]; ok {
		return p, nil
	}
	p, err := v.st.Patients().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = &patient.Patient{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	v.patients[id] = p
	return p, nil
}

func (v *viewer) user(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := v.users[id]; ok {
		return u, nil
	}
	u, err := v.st.Users().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = &domain.User{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	v.users[id] = u
	return u, nil
}

func (v *viewer) appointment(ctx context.Context, a *appointment.Appointment) (*AppointmentView, error) {
	p, err := v.patient(ctx, a.PatientID)
	if err != nil {
		return nil, err
	}
	d, err := v.user(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	return &AppointmentView{
		ID:            a.ID,
		PatientID:     a.PatientID,
		PatientNumber: p.PatientNumber,
		PatientName:   p.FullName(),
		DoctorID:      a.DoctorID,
		DoctorName:    d.FullName,
		ScheduledAt:   a.ScheduledAt,
		Status:        a.Status,
		Reason:        a.Reason,
		Notes:         a.Notes,
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}, nil
}

func (v *viewer) appointments(ctx context.Context, in []*appointment.Appointment) ([]*AppointmentView, error) {
	out := make([]*AppointmentView, 0, len(in))
	for _, a := range in {
		view, err := v.appointment(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (v *viewer) bill(ctx context.Context, b *billing.Bill) (*BillView, error) {
	p, err := v.patient(ctx, b.PatientID)
	if err != nil {
		return nil, err
	}
	items := make([]LineItemView, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, LineItemView{Description: it.Description, Amount: billing.FormatAmount(it.Amount)})
	}
	return &BillView{
		ID:                b.ID,
		BillNumber:        b.BillNumber,
		PatientID:         b.PatientID,
		PatientNumber:     p.PatientNumber,
		PatientName:       p.FullName(),
		AppointmentID:     b.AppointmentID,
		Items:             items,
		TotalAmount:       billing.FormatAmount(b.TotalAmount),
		PaidAmount:        billing.FormatAmount(b.PaidAmount),
		OutstandingAmount: billing.FormatAmount(b.OutstandingAmount),
		PaymentStatus:     b.PaymentStatus,
		BillDate:          b.BillDate,
		PaymentDate:       b.PaymentDate,
		CreatedBy:         b.CreatedBy,
		CreatedAt:         b.CreatedAt,
	}, nil
}

func (v *viewer) bills(ctx context.Context, in []*billing.Bill) ([]*BillView, error) {
	out := make([]*BillView, 0, len(in))
	for _, b := range in {
		view, err := v.bill(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (v *viewer) record(ctx context.Context, r *mr.MedicalRecord) (*MedicalRecordView, error) {
	p, err := v.patient(ctx, r.PatientID)
	if err != nil {
		return nil, err
	}
	d, err := v.user(ctx, r.DoctorID)
	if err != nil {
		return nil, err
	}
	return &MedicalRecordView{
		ID:             r.ID,
		PatientID:      r.PatientID,
		PatientName:    p.FullName(),
		DoctorID:       r.DoctorID,
		DoctorName:     d.FullName,
		AppointmentID:  r.AppointmentID,
		Diagnosis:      r.Diagnosis,
		Prescription:   r.Prescription,
		TreatmentNotes: r.TreatmentNotes,
		LabResults:     r.LabResults,
		VisitDate:      r.VisitDate,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func (v *viewer) records(ctx context.Context, in []*mr.MedicalRecord) ([]*MedicalRecordView, error) {
	out := make([]*MedicalRecordView, 0, len(in))
	for _, r := range in {
		view, err := v.record(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// pageOf converts the items of r while keeping its paging metadata.
func pageOf[T, V any](r *pagination.Result[T], convert func([]T) ([]V, error)) (*pagination.Result[V], error) {
	items, err := convert(r.Items)
	if err != nil {
		return nil, err
	}
	return &pagination.Result[V]{
		Items:      items,
		TotalCount: r.TotalCount,
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalPages: r.TotalPages,
	}, nil
}
