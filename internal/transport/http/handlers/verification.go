package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/usecase"
)

// VerificationHandler exposes verification-code endpoints.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// RegisterRoutes binds verification routes.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/request", h.request)
	r.POST("/confirm", h.confirm)
}

func (h *VerificationHandler) request(c *gin.Context) {
	if h.verification == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "verification service unavailable"))
		return
	}

	var req VerificationRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	var (
		result domain.VerificationRequestResult
		err    error
	)
	switch {
	case req.Email != "" && req.Phone != "":
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "provide either email or phone, not both"))
		return
	case req.Email != "":
		result, err = h.verification.RequestEmailVerificationCode(c.Request.Context(), req.Tenant, req.Email)
	case req.Phone != "" && req.SignIn:
		result, err = h.verification.RequestSmsLoginCode(c.Request.Context(), req.Tenant, req.Phone)
	case req.Phone != "":
		result, err = h.verification.RequestSmsVerificationCode(c.Request.Context(), req.Tenant, req.Phone)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email or phone is required"))
		return
	}
	if err != nil {
		respondVerificationError(c, err)
		return
	}

	status := http.StatusAccepted
	if !result.Successful() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, VerificationRequestResponse{Result: result.Result, Message: result.Message})
}

func (h *VerificationHandler) confirm(c *gin.Context) {
	if h.verification == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "verification service unavailable"))
		return
	}

	var req VerificationConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	result, err := h.verification.VerifyLoginWithCode(c.Request.Context(), req.Tenant, req.Code)
	if err != nil {
		respondVerificationError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Successful() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, VerificationConfirmResponse{Result: result.Result, Message: result.Message})
}

func respondVerificationError(c *gin.Context, err error) {
	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		if limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
		}
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many verification attempts"))
		return
	}

	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrVerificationUnavailable, Status: http.StatusServiceUnavailable, Message: "verification service unavailable"},
	}, http.StatusInternalServerError, "verification failed")
}
