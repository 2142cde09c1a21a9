package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/autentica/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateClaims binds an OAuth anti-CSRF state to a provider
type StateClaims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

// StateManager issues and validates signed OAuth state values.
// The caller still persists the state to compare on callback; the
// signature only guarantees it was minted here and has not expired.
type StateManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateManager creates a new StateManager
func NewStateManager(secret []byte, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateManager{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a fresh state for provider
func (sm *StateManager) Issue(provider models.Provider) (string, error) {
	now := sm.now()
	claims := &StateClaims{
		Provider: string(provider),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	state, err := token.SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nil
}

// Validate checks the state signature, expiry and provider binding
func (sm *StateManager) Validate(state string, provider models.Provider) error {
	claims := &StateClaims{}

	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sm.secret, nil
	}, jwt.WithTimeFunc(sm.now))
	if err != nil {
		return errors.Join(models.ErrInvalidOAuthState, err)
	}

	if claims.Provider != string(provider) {
		return fmt.Errorf("%w: issued for %q", models.ErrInvalidOAuthState, claims.Provider)
	}
	return nil
}
