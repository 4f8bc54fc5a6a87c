package repository

import (
	"context"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepo struct{ db *gorm.DB }

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	u.ID = newID(u.ID)
	return translate(r.db.WithContext(ctx).Create(u).Error, nil, "creating user")
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, domain.ErrUserNotFound, "getting user")
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "LOWER(username) = LOWER(?)", username).Error; err != nil {
		return nil, translate(err, domain.ErrUserNotFound, "getting user by username")
	}
	return &u, nil
}

func (r *userRepo) CountActiveByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Count(&n).Error
	return n, translate(err, nil, "counting users")
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("last_login_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error, nil, "updating last login")
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

type patientRepo struct{ db *gorm.DB }

func (r *patientRepo) Create(ctx context.Context, p *patient.Patient) error {
	p.ID = newID(p.ID)
	return translate(r.db.WithContext(ctx).Create(p).Error, nil, "creating patient")
}

func (r *patientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, patient.ErrPatientNotFound, "getting patient")
	}
	return &p, nil
}

func (r *patientRepo) GetByPatientNumber(ctx context.Context, number string) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).First(&p, "patient_number = ?", number).Error; err != nil {
		return nil, translate(err, patient.ErrPatientNotFound, "getting patient by number")
	}
	return &p, nil
}

func (r *patientRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "id = ?", id)
}

func (r *patientRepo) ExistsByPatientNumber(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, "patient_number = ?", number)
}

func (r *patientRepo) ExistsByPhone(ctx context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	if excludeID != nil {
		return r.exists(ctx, "phone = ? AND id <> ?", phone, *excludeID)
	}
	return r.exists(ctx, "phone = ?", phone)
}

func (r *patientRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&patient.Patient{}).Where(query, args...).Limit(1).Count(&n).Error
	if err != nil {
		return false, translate(err, nil, "checking patient existence")
	}
	return n > 0, nil
}

func (r *patientRepo) Update(ctx context.Context, p *patient.Patient) error {
	return translate(r.db.WithContext(ctx).Save(p).Error, patient.ErrPatientNotFound, "updating patient")
}

func (r *patientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&patient.Patient{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, nil, "deleting patient")
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *patientRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&patient.Patient{}).Count(&n).Error
	return n, translate(err, nil, "counting patients")
}

func (r *patientRepo) List(ctx context.Context, q *patient.ListPatientsQuery, page pagination.Params) (*pagination.Result[*patient.Patient], error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{})
	if q != nil && strings.TrimSpace(q.Search) != "" {
		like := "%" + strings.TrimSpace(q.Search) + "%"
		tx = tx.Where("first_name ILIKE ? OR last_name ILIKE ? OR patient_number ILIKE ? OR phone LIKE ?", like, like, like, like)
	}
	res, err := paged[patient.Patient](tx, page, "created_at DESC")
	return res, translate(err, nil, "listing patients")
}

type appointmentRepo struct{ db *gorm.DB }

func (r *appointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	a.ID = newID(a.ID)
	return translate(r.db.WithContext(ctx).Create(a).Error, nil, "creating appointment")
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *appointmentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.get(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *appointmentRepo) get(db *gorm.DB, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, appointment.ErrAppointmentNotFound, "getting appointment")
	}
	return &a, nil
}

func (r *appointmentRepo) Update(ctx context.Context, a *appointment.Appointment) error {
	return translate(r.db.WithContext(ctx).Save(a).Error, appointment.ErrAppointmentNotFound, "updating appointment")
}

func (r *appointmentRepo) List(ctx context.Context, f appointment.Filter, page pagination.Params) (*pagination.Result[*appointment.Appointment], error) {
	res, err := paged[appointment.Appointment](r.filtered(ctx, f), page, appointmentOrder(f))
	return res, translate(err, nil, "listing appointments")
}

func (r *appointmentRepo) ListAll(ctx context.Context, f appointment.Filter) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.filtered(ctx, f).Order(appointmentOrder(f)).Find(&out).Error
	return out, translate(err, nil, "listing appointments")
}

func (r *appointmentRepo) Count(ctx context.Context, f appointment.Filter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, translate(err, nil, "counting appointments")
}

func (r *appointmentRepo) filtered(ctx context.Context, f appointment.Filter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&appointment.Appointment{})
	if f.PatientID != nil {
		tx = tx.Where("patient_id = ?", *f.PatientID)
	}
	if f.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *f.DoctorID)
	}
	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		tx = tx.Where("scheduled_at >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("scheduled_at <= ?", *f.To)
	}
	return tx
}

func appointmentOrder(f appointment.Filter) string {
	if f.Ascending {
		return "scheduled_at ASC"
	}
	return "scheduled_at DESC"
}

type recordRepo struct{ db *gorm.DB }

func (r *recordRepo) Create(ctx context.Context, rec *mr.MedicalRecord) error {
	rec.ID = newID(rec.ID)
	return translate(r.db.WithContext(ctx).Create(rec).Error, nil, "creating medical record")
}

func (r *recordRepo) GetByID(ctx context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	var rec mr.MedicalRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err, mr.ErrRecordNotFound, "getting medical record")
	}
	return &rec, nil
}

func (r *recordRepo) Update(ctx context.Context, rec *mr.MedicalRecord) error {
	return translate(r.db.WithContext(ctx).Save(rec).Error, mr.ErrRecordNotFound, "updating medical record")
}

func (r *recordRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*mr.MedicalRecord, error) {
	var out []*mr.MedicalRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Find(&out).Error
	return out, translate(err, nil, "listing patient medical records")
}

func (r *recordRepo) List(ctx context.Context, f mr.Filter, page pagination.Params) (*pagination.Result[*mr.MedicalRecord], error) {
	res, err := paged[mr.MedicalRecord](r.filtered(ctx, f), page, "visit_date DESC")
	return res, translate(err, nil, "listing medical records")
}

func (r *recordRepo) Count(ctx context.Context, f mr.Filter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, translate(err, nil, "counting medical records")
}

func (r *recordRepo) filtered(ctx context.Context, f mr.Filter) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&mr.MedicalRecord{})
	if f.PatientID != nil {
		tx = tx.Where("patient_id = ?", *f.PatientID)
	}
	if f.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *f.DoctorID)
	}
	return tx
}

type auditRepo struct{ db *gorm.DB }

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	entry.ID = newID(entry.ID)
	return translate(r.db.WithContext(ctx).Create(entry).Error, nil, "creating audit log")
}
