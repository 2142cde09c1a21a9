package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/BradenHooton/autentica/internal/models"
)

// DeviceFingerprint derives a stable device id from request headers.
// Both the trusted device registry and the session registry use this one
// algorithm so a session's device id always matches its trusted device.
func DeviceFingerprint(req models.RequestContext) string {
	parts := []string{
		req.UserAgent,
		req.Header("Accept-Language"),
		req.Header("Accept-Encoding"),
		req.Header("Accept"),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
