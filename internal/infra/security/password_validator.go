package security

import (
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

// PasswordRule checks one policy rule, returning SetPasswordSetToNew when the
// password passes or the specific violation otherwise.
type PasswordRule interface {
	Validate(password string) domain.SetPasswordResultType
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) domain.SetPasswordResultType

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) domain.SetPasswordResultType {
	return f(password)
}

// PasswordValidator applies a sequence of password rules in order; the first
// violated rule decides the outcome.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) domain.SetPasswordResultType {
	if v == nil {
		return domain.SetPasswordOtherFailure
	}
	for _, rule := range v.rules {
		if outcome := rule.Validate(password); outcome != domain.SetPasswordSetToNew {
			return outcome
		}
	}
	return domain.SetPasswordSetToNew
}

// PasswordPolicy holds the configurable thresholds of the default validator.
type PasswordPolicy struct {
	MinLength        int
	MinUppercase     int
	MinLowercase     int
	MinDigits        int
	MinSymbols       int
	MinStrengthScore int
}

// DefaultPasswordPolicy requires 8 characters with one of each character class.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		MinUppercase: 1,
		MinLowercase: 1,
		MinDigits:    1,
		MinSymbols:   1,
	}
}

// DefaultPasswordValidator builds the standard rule chain for the policy.
// Rule order is part of the contract: emptiness, length, uppercase, lowercase,
// digits, symbols, then optional strength scoring.
func DefaultPasswordValidator(policy PasswordPolicy) *PasswordValidator {
	rules := []PasswordRule{
		NotBlankRule(),
		MinLengthRule(policy.MinLength),
		MinUppercaseRule(policy.MinUppercase),
		MinLowercaseRule(policy.MinLowercase),
		MinDigitsRule(policy.MinDigits),
		MinSymbolsRule(policy.MinSymbols),
	}
	if policy.MinStrengthScore > 0 {
		rules = append(rules, StrengthRule(policy.MinStrengthScore))
	}
	return NewPasswordValidator(rules...)
}

// NotBlankRule rejects empty or whitespace-only passwords.
func NotBlankRule() PasswordRule {
	return PasswordRuleFunc(func(password string) domain.SetPasswordResultType {
		if strings.TrimSpace(password) == "" {
			return domain.SetPasswordNullOrEmpty
		}
		return domain.SetPasswordSetToNew
	})
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) domain.SetPasswordResultType {
		if len([]rune(password)) < min {
			return domain.SetPasswordTooShort
		}
		return domain.SetPasswordSetToNew
	})
}

// MinUppercaseRule ensures the password contains at least min uppercase letters.
func MinUppercaseRule(min int) PasswordRule {
	return countRule(min, unicode.IsUpper, domain.SetPasswordNotEnoughUpperCase)
}

// MinLowercaseRule ensures the password contains at least min lowercase letters.
func MinLowercaseRule(min int) PasswordRule {
	return countRule(min, unicode.IsLower, domain.SetPasswordNotEnoughLowerCase)
}

// MinDigitsRule ensures the password contains at least min digits.
func MinDigitsRule(min int) PasswordRule {
	return countRule(min, unicode.IsDigit, domain.SetPasswordNotEnoughDigits)
}

// MinSymbolsRule ensures the password contains at least min non-alphanumeric characters.
func MinSymbolsRule(min int) PasswordRule {
	return countRule(min, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}, domain.SetPasswordNotEnoughSymbols)
}

// StrengthRule enforces a minimum zxcvbn score to reject guessable passwords.
func StrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) domain.SetPasswordResultType {
		score := minScore
		if score > 4 {
			score = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= score {
			return domain.SetPasswordSetToNew
		}
		return domain.SetPasswordOtherFailure
	})
}

func countRule(min int, match func(rune) bool, violation domain.SetPasswordResultType) PasswordRule {
	return PasswordRuleFunc(func(password string) domain.SetPasswordResultType {
		if min <= 0 {
			return domain.SetPasswordSetToNew
		}

		count := 0
		for _, r := range password {
			if match(r) {
				count++
				if count >= min {
					return domain.SetPasswordSetToNew
				}
			}
		}

		return violation
	})
}

var _ domain.PasswordValidator = (*PasswordValidator)(nil)
