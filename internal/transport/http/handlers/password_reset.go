package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/usecase"
)

// PasswordResetHandler exposes the two halves of the password-reset flow.
type PasswordResetHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordResetHandler constructs PasswordResetHandler.
func NewPasswordResetHandler(resets *usecase.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{resets: resets}
}

// RegisterRoutes binds password-reset routes, applying optional middleware
// ahead of handlers.
func (h *PasswordResetHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares ...gin.HandlerFunc) {
	requestChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
	requestChain = append(requestChain, h.request)
	r.POST("/request", requestChain...)

	confirmChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
	confirmChain = append(confirmChain, h.confirm)
	r.POST("/confirm", confirmChain...)
}

func (h *PasswordResetHandler) request(c *gin.Context) {
	if h.resets == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password reset service unavailable"))
		return
	}

	var req PasswordResetRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	var err error
	switch {
	case req.Email != "" && req.Username != "":
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "provide either email or username, not both"))
		return
	case req.Email != "":
		_, err = h.resets.RequestResetByEmail(c.Request.Context(), req.Tenant, req.Email)
	case req.Username != "":
		_, err = h.resets.RequestResetByUsername(c.Request.Context(), req.Tenant, req.Username)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email or username is required"))
		return
	}
	if err != nil && !errors.Is(err, usecase.ErrResetDeliveryFailed) {
		respondResetError(c, err)
		return
	}

	// The response is identical whether or not a login exists, so the endpoint
	// cannot be used to probe for registered addresses.
	c.JSON(http.StatusAccepted, MessageResponse{
		Message: "if the login exists, a reset code has been sent",
	})
}

func (h *PasswordResetHandler) confirm(c *gin.Context) {
	if h.resets == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "password reset service unavailable"))
		return
	}

	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	result, err := h.resets.FinishResetWithCode(c.Request.Context(), req.Tenant, req.Code, req.NewPassword)
	if err != nil {
		respondResetError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Successful() {
		status = http.StatusUnprocessableEntity
	}
	response := PasswordResetConfirmResponse{Result: result.Result, Message: result.Message}
	if result.Result == domain.PasswordResetFinishInvalidPassword {
		response.SetPasswordResult = result.SetPassword.Result
	}
	c.JSON(status, response)
}

func respondResetError(c *gin.Context, err error) {
	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		if limited.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
		}
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many reset attempts"))
		return
	}

	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrPasswordResetUnavailable, Status: http.StatusServiceUnavailable, Message: "password reset service unavailable"},
	}, http.StatusInternalServerError, "password reset failed")
}
