package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store/memstore"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// testNow is a Friday morning.
var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	store   *memstore.Store
	metrics *metrics.Collector
	clock   *fixedClock
	audit   *AuditService
	jwt     *auth.JWTManager

	patients     *PatientService
	appointments *AppointmentService
	bills        *BillingService
	records      *MedicalRecordService
	reports      *ReportingService
	auth         *AuthService

	admin  domain.Actor
	nurse  domain.Actor
	doctor *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore builds every service on top of wrap(memstore), or the
// plain memstore when wrap is nil.
func newTestEnvWithStore(t *testing.T, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	mem := memstore.New()
	var st store.Store = mem
	if wrap != nil {
		st = wrap(mem)
	}

	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())
	clock := &fixedClock{now: testNow}
	auditSvc := newAuditService(mem.Audit(), m, log, 1000)
	t.Cleanup(func() { auditSvc.Shutdown(context.Background()) })
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "clinicops-test",
	})

	e := &testEnv{
		t:            t,
		ctx:          context.Background(),
		store:        mem,
		metrics:      m,
		clock:        clock,
		audit:        auditSvc,
		jwt:          jwtManager,
		patients:     NewPatientService(st, auditSvc, m, clock, 5, log),
		appointments: NewAppointmentService(st, auditSvc, m, clock, log),
		bills:        NewBillingService(st, auditSvc, m, clock, 5, log),
		records:      NewMedicalRecordService(st, auditSvc, m, clock, log),
		reports:      NewReportingService(st, clock, log),
		auth:         NewAuthService(st, jwtManager, auditSvc, log),
	}
	e.auth.hashCost = bcrypt.MinCost

	admin := e.addUser("admin", domain.RoleAdmin)
	nurse := e.addUser("nurse", domain.RoleNurse)
	e.doctor = e.addUser("drhouse", domain.RoleDoctor)
	e.admin = domain.Actor{UserID: admin.ID, Role: admin.Role, IP: "127.0.0.1"}
	e.nurse = domain.Actor{UserID: nurse.ID, Role: nurse.Role, IP: "127.0.0.1"}

	return e
}

func (e *testEnv) addUser(username string, role domain.Role) *domain.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password-"+username), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := &domain.User{
		Username:     username,
		Email:        username + "@clinic.test",
		PasswordHash: string(hash),
		FullName:     "User " + username,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(e.t, e.store.Users().Create(e.ctx, u))
	return u
}

func (e *testEnv) doctorActor() domain.Actor {
	return domain.Actor{UserID: e.doctor.ID, Role: domain.RoleDoctor, IP: "127.0.0.1"}
}

var phoneSeq struct {
	sync.Mutex
	n int
}

func nextPhone() string {
	phoneSeq.Lock()
	defer phoneSeq.Unlock()
	phoneSeq.n++
	return fmt.Sprintf("555-%04d", phoneSeq.n)
}

func (e *testEnv) registerPatient(first string) *PatientView {
	e.t.Helper()
	p, err := e.patients.RegisterPatient(e.ctx, e.nurse, &patient.RegisterPatientCommand{
		FirstName:   first,
		LastName:    "Doe",
		DateOfBirth: time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC),
		Gender:      patient.GenderFemale,
		Phone:       nextPhone(),
	})
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) schedule(patientID uuid.UUID, at time.Time) *AppointmentView {
	e.t.Helper()
	a, err := e.appointments.ScheduleAppointment(e.ctx, e.nurse, &appointment.ScheduleAppointmentCommand{
		PatientID:   patientID,
		DoctorID:    e.doctor.ID,
		ScheduledAt: at,
		Reason:      "checkup",
	})
	require.NoError(e.t, err)
	return a
}

func (e *testEnv) setStatus(id uuid.UUID, status appointment.AppointmentStatus) (*AppointmentView, error) {
	return e.appointments.UpdateStatus(e.ctx, e.doctorActor(), id, &appointment.UpdateStatusCommand{Status: status})
}

func (e *testEnv) generateBill(patientID uuid.UUID, amounts ...string) *BillView {
	e.t.Helper()
	b, err := e.bills.GenerateBill(e.ctx, e.admin, &billing.GenerateBillCommand{
		PatientID: patientID,
		Items:     items(amounts...),
	})
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) pay(billID uuid.UUID, amount string) (*BillView, error) {
	return e.bills.ProcessPayment(e.ctx, e.admin, billID, &billing.PaymentCommand{Amount: dec(amount)})
}

func items(amounts ...string) []billing.LineItem {
	out := make([]billing.LineItem, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, billing.LineItem{Description: "item " + string(rune('A'+i)), Amount: dec(a)})
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// flakyStore fails the next Create calls on bills and patients with
// store.ErrConflict, imitating a lost race for a sequential number.
type flakyStore struct {
	store.Store
	conflicts *conflictBudget
}

type conflictBudget struct {
	mu       sync.Mutex
	bills    int
	patients int
}

func (b *conflictBudget) take(n *int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if *n > 0 {
		*n--
		return true
	}
	return false
}

func withConflicts(budget *conflictBudget) func(store.Store) store.Store {
	return func(st store.Store) store.Store { return flakyStore{Store: st, conflicts: budget} }
}

func (f flakyStore) Bills() billing.Repository {
	return flakyBills{Repository: f.Store.Bills(), conflicts: f.conflicts}
}

func (f flakyStore) Patients() patient.Repository {
	return flakyPatients{Repository: f.Store.Patients(), conflicts: f.conflicts}
}

func (f flakyStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(flakyStore{Store: tx, conflicts: f.conflicts})
	})
}

type flakyBills struct {
	billing.Repository
	conflicts *conflictBudget
}

func (r flakyBills) Create(ctx context.Context, b *billing.Bill) error {
	if r.conflicts.take(&r.conflicts.bills) {
		return store.ErrConflict
	}
	return r.Repository.Create(ctx, b)
}

type flakyPatients struct {
	patient.Repository
	conflicts *conflictBudget
}

func (r flakyPatients) Create(ctx context.Context, p *patient.Patient) error {
	if r.conflicts.take(&r.conflicts.patients) {
		return store.ErrConflict
	}
	return r.Repository.Create(ctx, p)
}
