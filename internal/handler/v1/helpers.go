package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicops/internal/store"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicops/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps an error from the service layer onto a status
// code by its kind. Unclassified errors are logged and hidden behind a 500.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})

	case errors.Is(err, domain.ErrInvalidReference):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INVALID_REFERENCE"})

	case errors.Is(err, domain.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "INVALID_STATE"})

	case errors.Is(err, domain.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_INPUT"})

	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "resource was modified concurrently, retry", Code: "CONFLICT"})

	case errors.Is(err, service.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountInactive):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "ACCOUNT_INACTIVE"})

	case errors.Is(err, auth.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "TOKEN_EXPIRED"})

	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenTypeMismatch):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})

	default:
		loggerFrom(c).Error("unhandled service error", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// location is the clinic's local zone; calendar dates in requests are read in it.
func (h *Handler) location() *time.Location {
	return h.clock.Now().Location()
}

// parseDate reads a YYYY-MM-DD value as midnight in loc.
func parseDate(c *gin.Context, loc *time.Location, field, raw string) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+field+": expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

// optionalUUID parses a possibly empty id from a request body.
func optionalUUID(c *gin.Context, field string, raw *string) (*uuid.UUID, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+field+": must be a valid UUID")
		return nil, false
	}
	return &id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultVal
}

// pageParams reads zero-based ?page= and ?page_size= query parameters.
func pageParams(c *gin.Context) pagination.Params {
	return pagination.Params{
		Page:     parseQueryInt(c, "page", 0),
		PageSize: parseQueryInt(c, "page_size", pagination.DefaultPageSize),
	}.Normalize()
}
