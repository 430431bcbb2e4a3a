package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCode(t *testing.T) {
	code := GenerateReferralCode("user-123")

	assert.Len(t, code, ReferralCodeLength)
	assert.Equal(t, strings.ToUpper(code), code)
	for _, r := range code {
		isUpperHex := (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')
		assert.True(t, isUpperHex, "unexpected character %q in referral code %s", r, code)
	}
}

func TestGenerateReferralCodeVariesPerCall(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode("user-123")
		assert.False(t, seen[code], "duplicate referral code %s", code)
		seen[code] = true
	}
}
