// utils/qrcode.go
package utils

import (
	"crypto/rand"
	"fmt"
)

const qrAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// QRIDLength is the length of the short public experience code.
const QRIDLength = 10

// NewQRID derives a short alphanumeric code from random bytes. Codes
// are not guaranteed unique; callers retry a few times on collision and
// some flows intentionally share a code across experiences.
func NewQRID() (string, error) {
	buf := make([]byte, QRIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = qrAlphabet[int(b)%len(qrAlphabet)]
	}
	return string(buf), nil
}
