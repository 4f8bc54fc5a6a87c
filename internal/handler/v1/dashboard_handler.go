package v1

import "github.com/gin-gonic/gin"

func (h *Handler) adminDashboard(c *gin.Context) {
	d, err := h.svc.Reports.AdminDashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *Handler) doctorDashboard(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.Reports.DoctorDashboard(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *Handler) myDoctorDashboard(c *gin.Context) {
	d, err := h.svc.Reports.MyDoctorDashboard(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *Handler) billingDashboard(c *gin.Context) {
	d, err := h.svc.Reports.BillingDashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}
