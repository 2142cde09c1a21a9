package auth

import "fmt"

const (
	// OpaqueTokenLength is the plaintext length of issued tokens (~357 bits)
	OpaqueTokenLength = 64
	// TokenPrefixLength is how much plaintext is kept as a non-secret lookup key
	TokenPrefixLength = 8
)

// GenerateOpaqueToken returns a random alphanumeric token and its lookup prefix
func GenerateOpaqueToken(length int) (plaintext, prefix string, err error) {
	if length <= TokenPrefixLength {
		return "", "", fmt.Errorf("token length must exceed %d, got %d", TokenPrefixLength, length)
	}

	plaintext, err = RandomString(AlphanumericAlphabet, length)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	return plaintext, plaintext[:TokenPrefixLength], nil
}

// TokenPrefix returns the lookup prefix of a presented token, or false when
// the token is too short to have been issued here.
func TokenPrefix(plaintext string) (string, bool) {
	if len(plaintext) <= TokenPrefixLength {
		return "", false
	}
	return plaintext[:TokenPrefixLength], true
}
