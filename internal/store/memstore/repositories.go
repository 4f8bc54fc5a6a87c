package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	mr "github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── users ─────────────────────────────────────────────────────────────────

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
				return store.ErrConflict
			}
		}
		now := time.Now()
		u.ID = newID(u.ID)
		u.CreatedAt, u.UpdatedAt = now, now
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.s.read(func(d *state) { u, ok = d.users[id] })
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var found *domain.User
	r.s.read(func(d *state) {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrUserNotFound
	}
	return found, nil
}

func (r *userRepo) CountActiveByRole(_ context.Context, role domain.Role) (int64, error) {
	var n int64
	r.s.read(func(d *state) {
		for _, u := range d.users {
			if u.Role == role && u.IsActive {
				n++
			}
		}
	})
	return n, nil
}

func (r *userRepo) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		now := time.Now()
		u.LastLoginAt = &now
		d.users[id] = u
		return nil
	})
}

// ── patients ──────────────────────────────────────────────────────────────

type patientRepo struct{ s *Store }

func (r *patientRepo) Create(_ context.Context, p *patient.Patient) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.patients {
			if existing.PatientNumber == p.PatientNumber || existing.Phone == p.Phone {
				return store.ErrConflict
			}
		}
		now := time.Now()
		p.ID = newID(p.ID)
		p.CreatedAt, p.UpdatedAt = now, now
		d.patients[p.ID] = *p
		return nil
	})
}

func (r *patientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	var (
		p  patient.Patient
		ok bool
	)
	r.s.read(func(d *state) { p, ok = d.patients[id] })
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (r *patientRepo) GetByPatientNumber(_ context.Context, number string) (*patient.Patient, error) {
	var found *patient.Patient
	r.s.read(func(d *state) {
		for _, p := range d.patients {
			if p.PatientNumber == number {
				p := p
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, patient.ErrPatientNotFound
	}
	return found, nil
}

func (r *patientRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	r.s.read(func(d *state) { _, ok = d.patients[id] })
	return ok, nil
}

func (r *patientRepo) ExistsByPatientNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.GetByPatientNumber(ctx, number)
	return err == nil, nil
}

func (r *patientRepo) ExistsByPhone(_ context.Context, phone string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	r.s.read(func(d *state) {
		for id, p := range d.patients {
			if excludeID != nil && id == *excludeID {
				continue
			}
			if p.Phone == phone {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *patientRepo) Update(_ context.Context, p *patient.Patient) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.patients[p.ID]; !ok {
			return patient.ErrPatientNotFound
		}
		for id, existing := range d.patients {
			if id != p.ID && existing.Phone == p.Phone {
				return store.ErrConflict
			}
		}
		p.UpdatedAt = time.Now()
		d.patients[p.ID] = *p
		return nil
	})
}

func (r *patientRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.patients[id]; !ok {
			return patient.ErrPatientNotFound
		}
		delete(d.patients, id)
		return nil
	})
}

func (r *patientRepo) Count(_ context.Context) (int64, error) {
	var n int64
	r.s.read(func(d *state) { n = int64(len(d.patients)) })
	return n, nil
}

func (r *patientRepo) List(_ context.Context, q *patient.ListPatientsQuery, page pagination.Params) (*pagination.Result[*patient.Patient], error) {
	search := ""
	if q != nil {
		search = strings.ToLower(strings.TrimSpace(q.Search))
	}
	var out []*patient.Patient
	r.s.read(func(d *state) {
		for _, p := range d.patients {
			if search != "" &&
				!strings.Contains(strings.ToLower(p.FirstName), search) &&
				!strings.Contains(strings.ToLower(p.LastName), search) &&
				!strings.Contains(p.PatientNumber, strings.ToUpper(search)) &&
				!strings.Contains(p.Phone, search) {
				continue
			}
			p := p
			out = append(out, &p)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pagination.Slice(out, page), nil
}

// ── appointments ──────────────────────────────────────────────────────────

type appointmentRepo struct{ s *Store }

func (r *appointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	return r.s.write(func(d *state) error {
		now := time.Now()
		a.ID = newID(a.ID)
		a.CreatedAt, a.UpdatedAt = now, now
		d.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var (
		a  appointment.Appointment
		ok bool
	)
	r.s.read(func(d *state) { a, ok = d.appointments[id] })
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

// GetByIDForUpdate needs no row lock: transactions are already serialized.
func (r *appointmentRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r *appointmentRepo) Update(_ context.Context, a *appointment.Appointment) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.appointments[a.ID]; !ok {
			return appointment.ErrAppointmentNotFound
		}
		a.UpdatedAt = time.Now()
		d.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepo) List(ctx context.Context, f appointment.Filter, page pagination.Params) (*pagination.Result[*appointment.Appointment], error) {
	all, err := r.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return pagination.Slice(all, page), nil
}

func (r *appointmentRepo) ListAll(_ context.Context, f appointment.Filter) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	r.s.read(func(d *state) {
		for _, a := range d.appointments {
			if matchAppointment(a, f) {
				a := a
				out = append(out, &a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if f.Ascending {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out, nil
}

func (r *appointmentRepo) Count(_ context.Context, f appointment.Filter) (int64, error) {
	var n int64
	r.s.read(func(d *state) {
		for _, a := range d.appointments {
			if matchAppointment(a, f) {
				n++
			}
		}
	})
	return n, nil
}

func matchAppointment(a appointment.Appointment, f appointment.Filter) bool {
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return inRange(a.ScheduledAt, f.From, f.To)
}

// ── bills ─────────────────────────────────────────────────────────────────

type billRepo struct{ s *Store }

func (r *billRepo) Create(_ context.Context, b *billing.Bill) error {
	return r.s.write(func(d *state) error {
		for _, existing := range d.bills {
			if existing.BillNumber == b.BillNumber {
				return store.ErrConflict
			}
		}
		now := time.Now()
		b.ID = newID(b.ID)
		b.CreatedAt, b.UpdatedAt = now, now
		d.bills[b.ID] = copyBill(*b)
		return nil
	})
}

func (r *billRepo) GetByID(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	var (
		b  billing.Bill
		ok bool
	)
	r.s.read(func(d *state) { b, ok = d.bills[id] })
	if !ok {
		return nil, billing.ErrBillNotFound
	}
	b = copyBill(b)
	return &b, nil
}

// GetByIDForUpdate needs no row lock: transactions are already serialized.
func (r *billRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.GetByID(ctx, id)
}

func (r *billRepo) GetByBillNumber(_ context.Context, number string) (*billing.Bill, error) {
	var found *billing.Bill
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if b.BillNumber == number {
				b = copyBill(b)
				found = &b
				return
			}
		}
	})
	if found == nil {
		return nil, billing.ErrBillNotFound
	}
	return found, nil
}

func (r *billRepo) ExistsByBillNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.GetByBillNumber(ctx, number)
	return err == nil, nil
}

func (r *billRepo) Update(_ context.Context, b *billing.Bill) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.bills[b.ID]; !ok {
			return billing.ErrBillNotFound
		}
		b.UpdatedAt = time.Now()
		d.bills[b.ID] = copyBill(*b)
		return nil
	})
}

func (r *billRepo) List(ctx context.Context, f billing.Filter, page pagination.Params) (*pagination.Result[*billing.Bill], error) {
	all, err := r.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return pagination.Slice(all, page), nil
}

func (r *billRepo) ListAll(_ context.Context, f billing.Filter) ([]*billing.Bill, error) {
	var out []*billing.Bill
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if matchBill(b, f) {
				b = copyBill(b)
				out = append(out, &b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].BillDate.After(out[j].BillDate) })
	return out, nil
}

func (r *billRepo) Count(_ context.Context, f billing.Filter) (int64, error) {
	var n int64
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if matchBill(b, f) {
				n++
			}
		}
	})
	return n, nil
}

func (r *billRepo) SumPaid(_ context.Context, f billing.Filter) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if matchBill(b, f) {
				sum = sum.Add(b.PaidAmount)
			}
		}
	})
	return sum, nil
}

func (r *billRepo) SumOutstanding(_ context.Context, f billing.Filter) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if matchBill(b, f) {
				sum = sum.Add(b.OutstandingAmount)
			}
		}
	})
	return sum, nil
}

// DailyRevenue buckets paid amounts by calendar day in from's location.
func (r *billRepo) DailyRevenue(_ context.Context, from, to time.Time) ([]billing.DailyRevenue, error) {
	loc := from.Location()
	byDay := map[string]decimal.Decimal{}
	r.s.read(func(d *state) {
		for _, b := range d.bills {
			if !inRange(b.BillDate, &from, &to) {
				continue
			}
			key := b.BillDate.In(loc).Format(time.DateOnly)
			byDay[key] = byDay[key].Add(b.PaidAmount)
		}
	})
	out := make([]billing.DailyRevenue, 0, len(byDay))
	for key, amount := range byDay {
		day, err := time.ParseInLocation(time.DateOnly, key, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, billing.DailyRevenue{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func matchBill(b billing.Bill, f billing.Filter) bool {
	if f.PatientID != nil && b.PatientID != *f.PatientID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.PaymentStatus == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return inRange(b.BillDate, f.BillDateFrom, f.BillDateTo)
}

// ── medical records ───────────────────────────────────────────────────────

type recordRepo struct{ s *Store }

func (r *recordRepo) Create(_ context.Context, rec *mr.MedicalRecord) error {
	return r.s.write(func(d *state) error {
		now := time.Now()
		rec.ID = newID(rec.ID)
		rec.CreatedAt, rec.UpdatedAt = now, now
		d.records[rec.ID] = *rec
		return nil
	})
}

func (r *recordRepo) GetByID(_ context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	var (
		rec mr.MedicalRecord
		ok  bool
	)
	r.s.read(func(d *state) { rec, ok = d.records[id] })
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *recordRepo) Update(_ context.Context, rec *mr.MedicalRecord) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.records[rec.ID]; !ok {
			return mr.ErrRecordNotFound
		}
		rec.UpdatedAt = time.Now()
		d.records[rec.ID] = *rec
		return nil
	})
}

func (r *recordRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*mr.MedicalRecord, error) {
	return r.filter(mr.Filter{PatientID: &patientID}), nil
}

func (r *recordRepo) List(_ context.Context, f mr.Filter, page pagination.Params) (*pagination.Result[*mr.MedicalRecord], error) {
	return pagination.Slice(r.filter(f), page), nil
}

func (r *recordRepo) Count(_ context.Context, f mr.Filter) (int64, error) {
	return int64(len(r.filter(f))), nil
}

func (r *recordRepo) filter(f mr.Filter) []*mr.MedicalRecord {
	var out []*mr.MedicalRecord
	r.s.read(func(d *state) {
		for _, rec := range d.records {
			if f.PatientID != nil && rec.PatientID != *f.PatientID {
				continue
			}
			if f.DoctorID != nil && rec.DoctorID != *f.DoctorID {
				continue
			}
			rec := rec
			out = append(out, &rec)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out
}

// ── audit ─────────────────────────────────────────────────────────────────

type auditRepo struct{ s *Store }

func (r *auditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	return r.s.write(func(d *state) error {
		entry.ID = newID(entry.ID)
		entry.OccurredAt = time.Now()
		d.audit = append(d.audit, *entry)
		return nil
	})
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}
