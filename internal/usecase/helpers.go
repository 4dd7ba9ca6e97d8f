package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/port"
)

const (
	loginRateLimitScope         = "login"
	verificationRateLimitScope  = "verification"
	passwordResetRateLimitScope = "password_reset"

	deliveryEmail = "email"
	deliveryPhone = "sms"
)

// RateLimitExceededError signals that a flow hit its sliding-window limit.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// normalizeIdentifierKey canonicalizes identifiers used as rate-limit keys.
func normalizeIdentifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// enforceRateLimit applies the sliding-window policy for one scope and
// identifier. Store failures are logged and treated as allowed.
func enforceRateLimit(ctx context.Context, store port.RateLimitStore, logger *zap.Logger, scope, identifier string, limit int, window time.Duration, now time.Time) error {
	if store == nil || limit <= 0 {
		return nil
	}

	if window <= 0 {
		window = time.Hour
	}

	identifierKey := normalizeIdentifierKey(identifier)
	if identifierKey == "" {
		return nil
	}

	storageKey := fmt.Sprintf("%s:%s", scope, identifierKey)

	if err := store.TrimWindow(ctx, storageKey, window, now); err != nil {
		logger.Warn("rate limit trim failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	count, err := store.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		logger.Warn("rate limit count failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := store.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			logger.Warn("rate limit oldest lookup failed", zap.String("scope", scope), zap.Error(err))
		}
		return &RateLimitExceededError{Scope: scope, RetryAfter: retryAfter}
	}

	if err := store.RecordAttempt(ctx, storageKey, now); err != nil {
		logger.Warn("rate limit record failed", zap.String("scope", scope), zap.Error(err))
	}

	return nil
}

func metadataCopy(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	return out
}

func stringPtr(value string) *string {
	return &value
}

func stringPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return stringPtr(trimmed)
}

func maskDestination(delivery, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	switch delivery {
	case deliveryEmail:
		if idx := strings.Index(trimmed, "@"); idx > 0 {
			local := trimmed[:idx]
			domainPart := trimmed[idx:]
			if len(local) <= 3 {
				return "***" + domainPart
			}
			return local[:3] + "***" + domainPart
		}
		if len(trimmed) <= 3 {
			return "***"
		}
		return trimmed[:3] + "***"
	case deliveryPhone:
		if len(trimmed) > 4 {
			prefix := trimmed[:len(trimmed)-4]
			suffix := trimmed[len(trimmed)-4:]
			if len(prefix) > 4 {
				prefix = prefix[:4]
			}
			return prefix + "***" + suffix
		}
		return "***"
	default:
		if len(trimmed) <= 3 {
			return "***"
		}
		return trimmed[:3] + "***"
	}
}
