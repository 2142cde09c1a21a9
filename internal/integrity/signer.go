// Package integrity computes tamper-evident row signatures.
//
// A signature is HMAC-SHA512 over the JSON encoding of the table name
// followed by the row's canonical field values. Rows altered outside the
// application fail verification.
package integrity

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MinKeyLength is the shortest signing key accepted
const MinKeyLength = 32

type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("signature key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}
	return &Signer{key: append([]byte(nil), key...)}, nil
}

// Sign returns the hex signature of a row
func (s *Signer) Sign(table string, fields []any) (string, error) {
	payload, err := canonical(table, fields)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether signature matches the row
func (s *Signer) Verify(table string, fields []any, signature string) bool {
	expected, err := s.Sign(table, fields)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

func canonical(table string, fields []any) ([]byte, error) {
	values := make([]any, 0, len(fields)+1)
	values = append(values, table)
	values = append(values, fields...)
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize row: %w", err)
	}
	return payload, nil
}
