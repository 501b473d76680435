package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewQRToken returns a random 16 character hex token identifying a table.
func NewQRToken() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("qr token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
