package domain

import "time"

// AccountCreatedEvent represents the payload for membership.account.created messages.
type AccountCreatedEvent struct {
	EventID     string
	AccountID   int64
	LoginID     int64
	Tenant      string
	DisplayName string
	Email       *string
	CodeSent    bool
	CreatedAt   time.Time
	Metadata    map[string]any
}

// LoginVerifiedEvent represents the payload for membership.login.verified messages.
type LoginVerifiedEvent struct {
	EventID            string
	AccountID          int64
	LoginID            int64
	Tenant             string
	IdentificationType string
	VerifiedAt         time.Time
	Metadata           map[string]any
}

// PasswordChangedEvent represents the payload for membership.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID int64
	LoginID   int64
	Tenant    string
	ChangedAt time.Time
	Reason    string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for membership.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	AccountID         int64
	LoginID           int64
	Tenant            string
	RequestedAt       time.Time
	DeliveryMethod    string
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// AccountLockedEvent represents the payload for membership.account.locked messages.
type AccountLockedEvent struct {
	EventID   string
	AccountID int64
	Tenant    string
	LockedAt  time.Time
	Until     time.Time
	Reason    string
	Metadata  map[string]any
}
