package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountCreateRequest defines the account creation payload. Exactly one of
// email or username selects the login kind.
type AccountCreateRequest struct {
	Tenant      string `json:"tenant" binding:"required"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password" binding:"required"`
}

// AccountCreateResponse reports the creation outcome.
type AccountCreateResponse struct {
	Result    domain.AccountCreationResultType `json:"result"`
	AccountID int64                            `json:"account_id,omitempty"`
	LoginID   int64                            `json:"login_id,omitempty"`
	Message   string                           `json:"message,omitempty"`
}

// SetEmailRequest changes the address of an existing email login.
type SetEmailRequest struct {
	Tenant       string `json:"tenant" binding:"required"`
	CurrentEmail string `json:"current_email" binding:"required"`
	NewEmail     string `json:"new_email" binding:"required"`
}

// SetEmailResponse reports the outcome of an address change.
type SetEmailResponse struct {
	Result  domain.SetEmailResultType `json:"result"`
	Message string                    `json:"message,omitempty"`
}

// AuthLoginRequest defines the payload for the login endpoint. Password logins
// send a password; code logins send a one-time code.
type AuthLoginRequest struct {
	Tenant     string `json:"tenant" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
	Kind       string `json:"kind" binding:"required,oneof=email username phone"`
	Password   string `json:"password"`
	Code       string `json:"code"`
}

// AuthLoginResponse reports the authentication outcome.
type AuthLoginResponse struct {
	Result     domain.AuthenticationResultType `json:"result"`
	Successful bool                            `json:"successful"`
	Message    string                          `json:"message,omitempty"`
}

// VerificationRequestPayload asks for a fresh verification or sign-in code.
type VerificationRequestPayload struct {
	Tenant  string `json:"tenant" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	SignIn  bool   `json:"sign_in"`
	Purpose string `json:"purpose"`
}

// VerificationRequestResponse reports the request-half outcome.
type VerificationRequestResponse struct {
	Result  domain.VerificationRequestResultType `json:"result"`
	Message string                               `json:"message,omitempty"`
}

// VerificationConfirmRequest redeems a verification code.
type VerificationConfirmRequest struct {
	Tenant string `json:"tenant" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// VerificationConfirmResponse reports the finish-half outcome.
type VerificationConfirmResponse struct {
	Result  domain.VerificationResultType `json:"result"`
	Message string                        `json:"message,omitempty"`
}

// PasswordResetRequestPayload starts a password reset by email or username.
type PasswordResetRequestPayload struct {
	Tenant   string `json:"tenant" binding:"required"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PasswordResetConfirmRequest finishes a password reset with a code.
type PasswordResetConfirmRequest struct {
	Tenant      string `json:"tenant" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordResetConfirmResponse reports the finish-half outcome, carrying the
// violated policy rule when the new password was rejected.
type PasswordResetConfirmResponse struct {
	Result            domain.PasswordResetFinishType `json:"result"`
	SetPasswordResult domain.SetPasswordResultType   `json:"set_password_result,omitempty"`
	Message           string                         `json:"message,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
