package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/usecase"
)

// AuthHandler exposes the authentication endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)
}

func (h *AuthHandler) login(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "authentication service unavailable"))
		return
	}

	var req AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	var (
		result domain.AuthenticationResult
		err    error
	)
	switch req.Kind {
	case "email":
		result, err = h.auth.AuthenticateWithEmail(c.Request.Context(), req.Tenant, req.Identifier, req.Password)
	case "username":
		result, err = h.auth.AuthenticateWithUsername(c.Request.Context(), req.Tenant, req.Identifier, req.Password)
	case "phone":
		result, err = h.auth.AuthenticateWithPhoneCode(c.Request.Context(), req.Tenant, req.Identifier, req.Code)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown login kind"))
		return
	}
	if err != nil {
		var limited *usecase.RateLimitExceededError
		if errors.As(err, &limited) {
			if limited.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
			}
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many login attempts"))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAuthUnavailable, Status: http.StatusServiceUnavailable, Message: "authentication service unavailable"},
		}, http.StatusInternalServerError, "authentication failed")
		return
	}

	c.JSON(loginStatus(result), AuthLoginResponse{
		Result:     result.Result,
		Successful: result.Successful(),
		Message:    result.Message,
	})
}

// loginStatus maps the closed-world authentication outcomes onto HTTP codes.
func loginStatus(result domain.AuthenticationResult) int {
	switch result.Result {
	case domain.AuthValidCredentials, domain.AuthGoodButRequiresTwoFactor:
		return http.StatusOK
	case domain.AuthAccountLockedOut:
		return http.StatusLocked
	case domain.AuthLoginNotVerified, domain.AuthAccountNotActive:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}
