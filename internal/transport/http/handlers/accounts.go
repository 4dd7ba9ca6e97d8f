package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/repository"
	"github.com/arklim/social-platform-membership/internal/usecase"
)

// AccountHandler exposes account management endpoints.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds account routes.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.PUT("/email", h.setEmail)
}

func (h *AccountHandler) create(c *gin.Context) {
	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "account service unavailable"))
		return
	}

	var req AccountCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	var (
		result domain.AccountCreationResult
		err    error
	)
	switch {
	case req.Email != "" && req.Username != "":
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "provide either email or username, not both"))
		return
	case req.Email != "":
		result, err = h.accounts.CreateEmailAccount(c.Request.Context(), req.Tenant, req.Email, req.Password, req.DisplayName)
	case req.Username != "":
		result, err = h.accounts.CreateUsernameAccount(c.Request.Context(), req.Tenant, req.Username, req.Password, req.DisplayName)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email or username is required"))
		return
	}
	if err != nil {
		respondAccountError(c, err)
		return
	}

	status := http.StatusCreated
	if !result.Successful() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, AccountCreateResponse{
		Result:    result.Result,
		AccountID: result.AccountID,
		LoginID:   result.LoginID,
		Message:   result.Message,
	})
}

func (h *AccountHandler) setEmail(c *gin.Context) {
	if h.accounts == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "account service unavailable"))
		return
	}

	var req SetEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid email payload"))
		return
	}

	result, err := h.accounts.SetEmailAddress(c.Request.Context(), req.Tenant, req.CurrentEmail, req.NewEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "login not found"))
			return
		}
		respondAccountError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Successful() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, SetEmailResponse{Result: result.Result, Message: result.Message})
}

func respondAccountError(c *gin.Context, err error) {
	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrAccountUnavailable, Status: http.StatusServiceUnavailable, Message: "account service unavailable"},
	}, http.StatusInternalServerError, "account operation failed")
}
