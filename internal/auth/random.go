package auth

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// AlphanumericAlphabet is used for opaque token plaintexts
const AlphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

// RandomString draws length symbols from alphabet using crypto/rand
func RandomString(alphabet string, length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("length must not be negative, got %d", length)
	}
	if alphabet == "" {
		return "", fmt.Errorf("alphabet must not be empty")
	}

	out := make([]byte, length)
	for i := range out {
		idx, err := cryptoRandIntn(len(alphabet))
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = alphabet[idx]
	}
	return string(out), nil
}
