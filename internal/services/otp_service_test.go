package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPService_Generate(t *testing.T) {
	svc := NewOTPService()
	pattern := regexp.MustCompile(`^\d{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := svc.Generate()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestOTPService_Validate(t *testing.T) {
	svc := NewOTPService()

	assert.True(t, svc.Validate("012345", "012345"))
	assert.False(t, svc.Validate("012345", "12345"))
	assert.False(t, svc.Validate("012345", "012346"))
	assert.False(t, svc.Validate("", ""))
	assert.False(t, svc.Validate("", "012345"))
	assert.False(t, svc.Validate("012345", ""))
}
