package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/config"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Services struct {
	Auth         *service.AuthService
	Patients     *service.PatientService
	Appointments *service.AppointmentService
	Bills        *service.BillingService
	Records      *service.MedicalRecordService
	Reports      *service.ReportingService
}

type RouterConfig struct {
	Services Services
	JWT      *auth.JWTManager
	Clock    service.Clock
	Log      *zap.Logger

	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	MetricsPath string
	CORS        config.CORSConfig

	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	svc   Services
	clock service.Clock
}

// NewRouter builds the gin engine with middleware and every /api/v1 route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	h := &Handler{svc: cfg.Services, clock: cfg.Clock}

	r := gin.New()
	r.Use(
		RequestID(cfg.Log),
		Recovery(),
		RequestLogger(),
		Metrics(cfg.Metrics),
		CORS(cfg.CORS),
	)

	r.GET("/healthz", healthz(cfg.Ready))
	if cfg.Gatherer != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(metrics.Handler(cfg.Gatherer)))
	}

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)

	protected := api.Group("")
	protected.Use(AuthRequired(cfg.JWT))
	protected.GET("/auth/me", h.me)

	var (
		admin      = RequireRoles(domain.RoleAdmin)
		registrars = RequireRoles(domain.RoleNurse, domain.RoleAdmin)
		schedulers = RequireRoles(domain.RoleNurse, domain.RoleDoctor, domain.RoleAdmin)
		clinicians = RequireRoles(domain.RoleDoctor, domain.RoleAdmin)
		billers    = RequireRoles(domain.RoleBilling, domain.RoleAdmin)
	)

	staff := protected.Group("/staff")
	staff.POST("", admin, h.createStaff)
	staff.GET("/:id", h.getStaff)

	patients := protected.Group("/patients")
	patients.POST("", registrars, h.registerPatient)
	patients.GET("", h.listPatients)
	patients.GET("/by-number/:number", h.getPatientByNumber)
	patients.GET("/:id", h.getPatient)
	patients.PUT("/:id", registrars, h.updatePatient)
	patients.DELETE("/:id", admin, h.deletePatient)

	appointments := protected.Group("/appointments")
	appointments.POST("", schedulers, h.scheduleAppointment)
	appointments.GET("", h.listAppointments)
	appointments.GET("/by-date", h.listAppointmentsByDate)
	appointments.GET("/today", h.listTodayAppointments)
	appointments.GET("/today/by-doctor/:id", h.listTodayAppointmentsByDoctor)
	appointments.GET("/by-doctor/:id", h.listAppointmentsByDoctor)
	appointments.GET("/by-patient/:id", h.listAppointmentsByPatient)
	appointments.GET("/by-status/:status", h.listAppointmentsByStatus)
	appointments.GET("/:id", h.getAppointment)
	appointments.PUT("/:id/status", schedulers, h.updateAppointmentStatus)

	bills := protected.Group("/bills", billers)
	bills.POST("", h.generateBill)
	bills.GET("", h.listBills)
	bills.GET("/unpaid", h.listUnpaidBills)
	bills.GET("/revenue/stats", h.revenueStats)
	bills.GET("/revenue/daily", h.dailyRevenue)
	bills.GET("/by-number/:number", h.getBillByNumber)
	bills.GET("/by-patient/:id", h.listBillsByPatient)
	bills.GET("/by-status/:status", h.listBillsByStatus)
	bills.GET("/:id", h.getBill)
	bills.POST("/:id/payment", h.processPayment)

	records := protected.Group("/medical-records", clinicians)
	records.POST("", h.addMedicalRecord)
	records.GET("", h.listMedicalRecords)
	records.GET("/patient/:id", h.patientHistory)
	records.GET("/by-doctor/:id", h.listMedicalRecordsByDoctor)
	records.GET("/:id", h.getMedicalRecord)
	records.PUT("/:id", h.updateMedicalRecord)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("/admin", admin, h.adminDashboard)
	dashboard.GET("/doctor/me", RequireRoles(domain.RoleDoctor), h.myDoctorDashboard)
	dashboard.GET("/doctor/:id", clinicians, h.doctorDashboard)
	dashboard.GET("/billing", billers, h.billingDashboard)

	return r
}

func healthz(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				loggerFrom(c).Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
