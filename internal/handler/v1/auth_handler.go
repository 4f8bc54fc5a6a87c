package v1

import (
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/service"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type createStaffRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"max=20"`
	Role     string `json:"role" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Auth.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Auth.GetUser(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, u)
}

func (h *Handler) createStaff(c *gin.Context) {
	var req createStaffRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.svc.Auth.CreateStaff(c.Request.Context(), actorFrom(c), &service.CreateStaffCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, u)
}

func (h *Handler) getStaff(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	u, err := h.svc.Auth.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, u)
}
