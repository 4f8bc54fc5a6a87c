package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type lineItemRequest struct {
	Description string          `json:"description" binding:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
}

type generateBillRequest struct {
	PatientID     string            `json:"patient_id" binding:"required,uuid"`
	AppointmentID *string           `json:"appointment_id" binding:"omitempty,uuid"`
	Items         []lineItemRequest `json:"items" binding:"required,min=1,dive"`
	BillDate      string            `json:"bill_date"`
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
}

// optionalDate parses a YYYY-MM-DD body field; empty leaves it to the service.
func optionalDate(c *gin.Context, loc *time.Location, field, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	return parseDate(c, loc, field, raw)
}

func (h *Handler) generateBill(c *gin.Context) {
	var req generateBillRequest
	if !bindJSON(c, &req) {
		return
	}
	appointmentID, ok := optionalUUID(c, "appointment_id", req.AppointmentID)
	if !ok {
		return
	}
	billDate, ok := optionalDate(c, h.location(), "bill_date", req.BillDate)
	if !ok {
		return
	}

	items := make([]billing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if !it.Amount.IsPositive() {
			respondError(c, http.StatusBadRequest, "item amounts must be positive")
			return
		}
		items = append(items, billing.LineItem{Description: it.Description, Amount: it.Amount})
	}

	b, err := h.svc.Bills.GenerateBill(c.Request.Context(), actorFrom(c), &billing.GenerateBillCommand{
		PatientID:     uuid.MustParse(req.PatientID),
		AppointmentID: appointmentID,
		Items:         items,
		BillDate:      billDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, b)
}

func (h *Handler) processPayment(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		respondError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	paidAt, ok := optionalDate(c, h.location(), "payment_date", req.PaymentDate)
	if !ok {
		return
	}

	b, err := h.svc.Bills.ProcessPayment(c.Request.Context(), actorFrom(c), id, &billing.PaymentCommand{
		Amount:      req.Amount,
		PaymentDate: paidAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) getBill(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	b, err := h.svc.Bills.GetBill(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) getBillByNumber(c *gin.Context) {
	b, err := h.svc.Bills.GetBillByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, b)
}

func (h *Handler) listBills(c *gin.Context) {
	res, err := h.svc.Bills.ListBills(c.Request.Context(), pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listBillsByPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Bills.ListBillsByPatient(c.Request.Context(), id, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listBillsByStatus(c *gin.Context) {
	status := billing.PaymentStatus(strings.ToUpper(c.Param("status")))

	res, err := h.svc.Bills.ListBillsByStatus(c.Request.Context(), status, pageParams(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) listUnpaidBills(c *gin.Context) {
	res, err := h.svc.Bills.ListUnpaid(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) revenueStats(c *gin.Context) {
	stats, err := h.svc.Bills.RevenueStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

// dailyRevenue defaults to the current month in the clinic's timezone.
func (h *Handler) dailyRevenue(c *gin.Context) {
	now := h.clock.Now()
	year, month := now.Year(), int(now.Month())
	if raw := c.Query("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			respondError(c, http.StatusBadRequest, "invalid year")
			return
		}
		year = v
	}
	if raw := c.Query("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			respondError(c, http.StatusBadRequest, "invalid month: expected 1-12")
			return
		}
		month = v
	}

	res, err := h.svc.Bills.DailyRevenue(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}
