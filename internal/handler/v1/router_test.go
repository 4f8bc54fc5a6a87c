package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store/memstore"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type apiEnv struct {
	t       *testing.T
	router  *gin.Engine
	store   *memstore.Store
	metrics *metrics.Collector
	jwt     *auth.JWTManager
	ready   error

	tokens map[domain.Role]string
	users  map[domain.Role]*domain.User
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	return newAPIEnvAt(t, testNow)
}

func newAPIEnvAt(t *testing.T, now time.Time) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	mem := memstore.New()
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", reg)
	clock := fixedClock{now: now}
	audit := service.NewAuditService(mem.Audit(), m, log)
	t.Cleanup(func() { audit.Shutdown(context.Background()) })
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "handler-test-secret-handler-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "clinicops-test",
	})

	e := &apiEnv{
		t:       t,
		store:   mem,
		metrics: m,
		jwt:     jwtManager,
		tokens:  map[domain.Role]string{},
		users:   map[domain.Role]*domain.User{},
	}
	e.router = NewRouter(RouterConfig{
		Services: Services{
			Auth:         service.NewAuthService(mem, jwtManager, audit, log),
			Patients:     service.NewPatientService(mem, audit, m, clock, 5, log),
			Appointments: service.NewAppointmentService(mem, audit, m, clock, log),
			Bills:        service.NewBillingService(mem, audit, m, clock, 5, log),
			Records:      service.NewMedicalRecordService(mem, audit, m, clock, log),
			Reports:      service.NewReportingService(mem, clock, log),
		},
		JWT:         jwtManager,
		Clock:       clock,
		Log:         log,
		Metrics:     m,
		Gatherer:    reg,
		MetricsPath: "/metrics",
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         time.Hour,
		},
		Ready: func(context.Context) error { return e.ready },
	})

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse, domain.RoleBilling} {
		e.addStaff(strings.ToLower(string(role)), role)
	}
	return e
}

func (e *apiEnv) addStaff(username string, role domain.Role) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password-"+username), bcrypt.MinCost)
	require.NoError(e.t, err)
	u := &domain.User{
		Username:     username,
		Email:        username + "@clinic.test",
		PasswordHash: string(hash),
		FullName:     "Staff " + username,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(e.t, e.store.Users().Create(context.Background(), u))

	pair, err := e.jwt.GenerateTokenPair(&domain.Claims{UserID: u.ID, Username: u.Username, Role: u.Role})
	require.NoError(e.t, err)
	e.users[role] = u
	e.tokens[role] = pair.AccessToken
}

// do sends body as JSON with the bearer token of role; an empty role sends
// no token.
func (e *apiEnv) do(method, path string, role domain.Role, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[role])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// data decodes the "data" envelope of a response into a generic map.
func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Data
}

func (e *apiEnv) createPatient(first, phone string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/patients", domain.RoleNurse, map[string]any{
		"first_name":    first,
		"last_name":     "Doe",
		"date_of_birth": "1990-05-01",
		"gender":        "FEMALE",
		"phone":         phone,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return data(e.t, rec)["id"].(string)
}

func TestHealthz(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	e.ready = errors.New("db down")
	rec = e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	e := newAPIEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newAPIEnv(t)
	e.do(http.MethodGet, "/api/v1/patients", domain.RoleNurse, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RequestsTotal.WithLabelValues("GET", "/api/v1/patients", "200")))

	rec := e.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodGet, "/api/v1/patients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	rec = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "nurse", "password": "password-nurse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := data(t, rec)["tokens"].(map[string]any)
	assert.Equal(t, "Bearer", tokens["token_type"])

	rec = e.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": tokens["refresh_token"].(string)})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "nurse", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/auth/me", domain.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doctor", data(t, rec)["username"])
}

func TestRoleGuards(t *testing.T) {
	e := newAPIEnv(t)

	cases := []struct {
		method, path string
		role         domain.Role
		want         int
	}{
		{http.MethodGet, "/api/v1/bills", domain.RoleNurse, http.StatusForbidden},
		{http.MethodGet, "/api/v1/bills", domain.RoleBilling, http.StatusOK},
		{http.MethodGet, "/api/v1/medical-records", domain.RoleBilling, http.StatusForbidden},
		{http.MethodGet, "/api/v1/medical-records", domain.RoleDoctor, http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/admin", domain.RoleDoctor, http.StatusForbidden},
		{http.MethodGet, "/api/v1/dashboard/admin", domain.RoleAdmin, http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/doctor/me", domain.RoleAdmin, http.StatusForbidden},
		{http.MethodGet, "/api/v1/dashboard/doctor/me", domain.RoleDoctor, http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/billing", domain.RoleBilling, http.StatusOK},
		{http.MethodPost, "/api/v1/staff", domain.RoleNurse, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %s as %s", tc.method, tc.path, tc.role), func(t *testing.T) {
			rec := e.do(tc.method, tc.path, tc.role, nil)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPatientEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	id := e.createPatient("Ann", "555-0001")

	rec := e.do(http.MethodGet, "/api/v1/patients/"+id, domain.RoleDoctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "P000001", data(t, rec)["patient_number"])

	rec = e.do(http.MethodGet, "/api/v1/patients/by-number/P000001", domain.RoleBilling, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/patients", domain.RoleNurse, map[string]any{
		"first_name": "Dup", "last_name": "Doe", "date_of_birth": "1990-05-01", "gender": "MALE", "phone": "555-0001",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate phone")

	rec = e.do(http.MethodPost, "/api/v1/patients", domain.RoleNurse, map[string]any{
		"first_name": "Bad", "last_name": "Date", "date_of_birth": "01/05/1990", "gender": "MALE", "phone": "555-0002",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/patients/not-a-uuid", domain.RoleNurse, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/patients/00000000-0000-0000-0000-000000000001", domain.RoleNurse, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodDelete, "/api/v1/patients/"+id, domain.RoleNurse, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = e.do(http.MethodDelete, "/api/v1/patients/"+id, domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	patientID := e.createPatient("Ann", "555-0001")
	doctorID := e.users[domain.RoleDoctor].ID.String()

	rec := e.do(http.MethodPost, "/api/v1/appointments", domain.RoleNurse, map[string]any{
		"patient_id": patientID, "doctor_id": doctorID, "scheduled_at": testNow.Add(-time.Hour), "reason": "checkup",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "past appointment")

	rec = e.do(http.MethodPost, "/api/v1/appointments", domain.RoleNurse, map[string]any{
		"patient_id": patientID, "doctor_id": e.users[domain.RoleNurse].ID.String(), "scheduled_at": testNow.Add(time.Hour), "reason": "checkup",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "doctor must hold the DOCTOR role")

	rec = e.do(http.MethodPost, "/api/v1/appointments", domain.RoleNurse, map[string]any{
		"patient_id": patientID, "doctor_id": doctorID, "scheduled_at": testNow.Add(time.Hour), "reason": "checkup",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	apptID := data(t, rec)["id"].(string)
	assert.Equal(t, "SCHEDULED", data(t, rec)["status"])

	record := map[string]any{
		"patient_id": patientID, "doctor_id": doctorID, "appointment_id": apptID, "diagnosis": "flu",
	}
	rec = e.do(http.MethodPost, "/api/v1/medical-records", domain.RoleDoctor, record)
	assert.Equal(t, http.StatusConflict, rec.Code, "appointment not completed yet")

	rec = e.do(http.MethodPut, "/api/v1/appointments/"+apptID+"/status", domain.RoleDoctor, map[string]any{"status": "COMPLETED", "notes": "seen"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPut, "/api/v1/appointments/"+apptID+"/status", domain.RoleDoctor, map[string]any{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/medical-records", domain.RoleDoctor, record)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/v1/medical-records/patient/"+patientID, domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/appointments/today", domain.RoleNurse, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodGet, "/api/v1/appointments/by-date?date=2024-03-15", domain.RoleNurse, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, data(t, rec)["total_count"])
	rec = e.do(http.MethodGet, "/api/v1/appointments/by-status/bogus", domain.RoleNurse, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	patientID := e.createPatient("Ann", "555-0001")

	rec := e.do(http.MethodPost, "/api/v1/bills", domain.RoleBilling, map[string]any{
		"patient_id": "00000000-0000-0000-0000-000000000001",
		"items":      []map[string]any{{"description": "consult", "amount": "10.00"}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown patient")

	rec = e.do(http.MethodPost, "/api/v1/bills", domain.RoleBilling, map[string]any{"patient_id": patientID, "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no items")

	rec = e.do(http.MethodPost, "/api/v1/bills", domain.RoleBilling, map[string]any{
		"patient_id": patientID,
		"items": []map[string]any{
			{"description": "consult", "amount": "100.00"},
			{"description": "lab", "amount": "50.00"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bill := data(t, rec)
	billID := bill["id"].(string)
	assert.Equal(t, "B000001", bill["bill_number"])
	assert.Equal(t, "PENDING", bill["payment_status"])

	rec = e.do(http.MethodPost, "/api/v1/bills/"+billID+"/payment", domain.RoleBilling, map[string]any{"amount": "60.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PARTIAL", data(t, rec)["payment_status"])

	rec = e.do(http.MethodPost, "/api/v1/bills/"+billID+"/payment", domain.RoleBilling, map[string]any{"amount": "100.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "overpayment")

	rec = e.do(http.MethodPost, "/api/v1/bills/"+billID+"/payment", domain.RoleBilling, map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/bills/"+billID+"/payment", domain.RoleBilling, map[string]any{"amount": "90.00"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PAID", data(t, rec)["payment_status"])

	rec = e.do(http.MethodGet, "/api/v1/bills/revenue/stats", domain.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150.00", data(t, rec)["total_revenue"])

	rec = e.do(http.MethodGet, "/api/v1/bills/revenue/daily?year=2024&month=13", domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/bills/by-number/b000001", domain.RoleBilling, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCalendarDatesUseClinicTimezone(t *testing.T) {
	ny := time.FixedZone("UTC-5", -5*60*60)
	e := newAPIEnvAt(t, time.Date(2024, time.March, 15, 9, 0, 0, 0, ny))
	patientID := e.createPatient("Ann", "555-0001")
	doctorID := e.users[domain.RoleDoctor].ID.String()

	for _, at := range []time.Time{
		time.Date(2024, time.March, 15, 14, 0, 0, 0, ny),
		time.Date(2024, time.March, 15, 22, 0, 0, 0, ny),
		time.Date(2024, time.March, 16, 0, 30, 0, 0, ny),
	} {
		rec := e.do(http.MethodPost, "/api/v1/appointments", domain.RoleNurse, map[string]any{
			"patient_id": patientID, "doctor_id": doctorID, "scheduled_at": at, "reason": "checkup",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := e.do(http.MethodGet, "/api/v1/appointments/by-date?date=2024-03-15", domain.RoleNurse, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, data(t, rec)["total_count"])

	rec = e.do(http.MethodPost, "/api/v1/bills", domain.RoleBilling, map[string]any{
		"patient_id": patientID,
		"bill_date":  "2024-03-15",
		"items":      []map[string]any{{"description": "consult", "amount": "40.00"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	billID := data(t, rec)["id"].(string)

	rec = e.do(http.MethodPost, "/api/v1/bills/"+billID+"/payment", domain.RoleBilling, map[string]any{"amount": "40.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/v1/dashboard/billing", domain.RoleBilling, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "40.00", data(t, rec)["revenue_today"])
}

func TestBillForAnotherPatientsAppointment(t *testing.T) {
	e := newAPIEnv(t)
	ann := e.createPatient("Ann", "555-0001")
	bob := e.createPatient("Bob", "555-0002")

	rec := e.do(http.MethodPost, "/api/v1/appointments", domain.RoleNurse, map[string]any{
		"patient_id": ann, "doctor_id": e.users[domain.RoleDoctor].ID.String(),
		"scheduled_at": testNow.Add(time.Hour), "reason": "checkup",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	apptID := data(t, rec)["id"].(string)

	rec = e.do(http.MethodPost, "/api/v1/bills", domain.RoleBilling, map[string]any{
		"patient_id":     bob,
		"appointment_id": apptID,
		"items":          []map[string]any{{"description": "consult", "amount": "10.00"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestCreateStaffOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	body := map[string]any{
		"username": "cashier", "email": "cashier@clinic.test", "password": "long-enough-pw",
		"full_name": "Cash Ier", "role": "BILLING",
	}

	rec := e.do(http.MethodPost, "/api/v1/staff", domain.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := data(t, rec)["id"].(string)

	rec = e.do(http.MethodPost, "/api/v1/staff", domain.RoleAdmin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "username taken")

	rec = e.do(http.MethodGet, "/api/v1/staff/"+id, domain.RoleNurse, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BILLING", data(t, rec)["role"])
}
