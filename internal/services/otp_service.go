package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
)

const otpDigits = 6

// OTPService generates and checks numeric one-time codes.
type OTPService struct {
	random io.Reader
	max    *big.Int
}

func NewOTPService() *OTPService {
	return &OTPService{
		random: rand.Reader,
		max:    big.NewInt(1_000_000),
	}
}

// Generate returns a zero padded six digit code.
func (s *OTPService) Generate() (string, error) {
	n, err := rand.Int(s.random, s.max)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// Validate compares in constant time. An empty expected code never matches,
// so a cleared code cannot be replayed.
func (s *OTPService) Validate(expected, supplied string) bool {
	if expected == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
