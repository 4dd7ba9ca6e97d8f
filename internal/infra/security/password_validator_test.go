package security

import (
	"testing"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

func TestDefaultPasswordValidatorOutcomes(t *testing.T) {
	validator := DefaultPasswordValidator(DefaultPasswordPolicy())

	cases := []struct {
		name     string
		password string
		want     domain.SetPasswordResultType
	}{
		{"valid", "Abcdef1!", domain.SetPasswordSetToNew},
		{"empty", "", domain.SetPasswordNullOrEmpty},
		{"whitespace only", "   ", domain.SetPasswordNullOrEmpty},
		{"short", "short", domain.SetPasswordTooShort},
		{"no uppercase", "alllowercase1!", domain.SetPasswordNotEnoughUpperCase},
		{"no lowercase", "ALLUPPERCASE1!", domain.SetPasswordNotEnoughLowerCase},
		{"no digits", "Abcdefgh!", domain.SetPasswordNotEnoughDigits},
		{"no symbols", "Abcdefg1", domain.SetPasswordNotEnoughSymbols},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validator.Validate(tc.password); got != tc.want {
				t.Fatalf("Validate(%q) = %s, want %s", tc.password, got, tc.want)
			}
		})
	}
}

func TestValidatorReportsEarliestViolatedRule(t *testing.T) {
	validator := DefaultPasswordValidator(DefaultPasswordPolicy())

	// "abc" is too short and also lacks uppercase, digits, and symbols; the
	// earlier rule in the chain must win.
	if got := validator.Validate("abc"); got != domain.SetPasswordTooShort {
		t.Fatalf("expected too short to win, got %s", got)
	}

	// "abcdefgh" passes length but fails uppercase before digits and symbols.
	if got := validator.Validate("abcdefgh"); got != domain.SetPasswordNotEnoughUpperCase {
		t.Fatalf("expected uppercase to win, got %s", got)
	}
}

func TestMinSymbolsRuleCountsNonAlphanumerics(t *testing.T) {
	rule := MinSymbolsRule(2)

	if got := rule.Validate("Ab1!"); got != domain.SetPasswordNotEnoughSymbols {
		t.Fatalf("one symbol should not satisfy a minimum of two, got %s", got)
	}
	if got := rule.Validate("Ab1!?"); got != domain.SetPasswordSetToNew {
		t.Fatalf("two symbols should pass, got %s", got)
	}
}

func TestZeroThresholdsDisableRules(t *testing.T) {
	validator := DefaultPasswordValidator(PasswordPolicy{MinLength: 4})

	if got := validator.Validate("abcd"); got != domain.SetPasswordSetToNew {
		t.Fatalf("disabled class rules should accept, got %s", got)
	}
}

func TestStrengthRuleRejectsGuessablePasswords(t *testing.T) {
	rule := StrengthRule(3)

	if got := rule.Validate("password"); got != domain.SetPasswordOtherFailure {
		t.Fatalf("dictionary password should fail strength scoring, got %s", got)
	}
	if got := rule.Validate("correct-horse-battery-staple-99"); got != domain.SetPasswordSetToNew {
		t.Fatalf("long passphrase should pass strength scoring, got %s", got)
	}
}
