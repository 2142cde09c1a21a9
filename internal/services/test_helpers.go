package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/autentica/internal/auth"
	"github.com/BradenHooton/autentica/internal/models"
	"github.com/BradenHooton/autentica/internal/repositories"
	pkgauth "github.com/BradenHooton/autentica/pkg/auth"
)

// ============================================================================
// Shared fixtures
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() pkgauth.Hasher {
	return pkgauth.NewBcryptHasher(bcrypt.MinCost)
}

func testCipher(t *testing.T) *auth.Cipher {
	t.Helper()
	c, err := auth.NewCipher([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)
	return c
}

// testClock is a settable clock shared by a service and its fakes
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var idSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	idSeq.Lock()
	defer idSeq.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s_%d", prefix, idSeq.n)
}

// ============================================================================
// MockTransactor
// ============================================================================

// MockTransactor runs fn inline and records lock acquisitions
type MockTransactor struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	Locked []string
	TxErr  error
}

func (m *MockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.TxErr != nil {
		return m.TxErr
	}
	held := &[]*sync.Mutex{}
	err := fn(context.WithValue(ctx, heldLocksKey{}, held))
	for _, l := range *held {
		l.Unlock()
	}
	return err
}

type heldLocksKey struct{}

// LockUser serializes callers on the same key until their transaction ends
func (m *MockTransactor) LockUser(ctx context.Context, scope, userID string) error {
	held, ok := ctx.Value(heldLocksKey{}).(*[]*sync.Mutex)
	if !ok {
		return fmt.Errorf("lock requires a transaction")
	}

	key := scope + ":" + userID
	m.mu.Lock()
	if m.locks == nil {
		m.locks = map[string]*sync.Mutex{}
	}
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.Locked = append(m.Locked, key)
	m.mu.Unlock()

	l.Lock()
	*held = append(*held, l)
	return nil
}

// ============================================================================
// MockAuthMethodRepository
// ============================================================================

type MockAuthMethodRepository struct {
	mu       sync.Mutex
	rows     map[string]*models.AuthMethod
	Tampered []string
}

func NewMockAuthMethodRepository() *MockAuthMethodRepository {
	return &MockAuthMethodRepository{rows: map[string]*models.AuthMethod{}}
}

func (m *MockAuthMethodRepository) key(userID string, method models.AuthMethodType) string {
	return userID + "|" + string(method)
}

func (m *MockAuthMethodRepository) Upsert(ctx context.Context, method *models.AuthMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[m.key(method.UserID, method.Method)]; ok {
		method.ID = existing.ID
	} else {
		method.ID = nextID("am")
	}
	cp := *method
	m.rows[m.key(method.UserID, method.Method)] = &cp
	return nil
}

func (m *MockAuthMethodRepository) FindByUserAndMethod(ctx context.Context, userID string, method models.AuthMethodType) (*models.AuthMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[m.key(userID, method)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockAuthMethodRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuthMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuthMethod
	for _, row := range m.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out, nil
}

func (m *MockAuthMethodRepository) Update(ctx context.Context, method *models.AuthMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(method.UserID, method.Method)]; !ok {
		return models.ErrNotFound
	}
	cp := *method
	m.rows[m.key(method.UserID, method.Method)] = &cp
	return nil
}

func (m *MockAuthMethodRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return m.Tampered, nil
}

// ============================================================================
// MockTokenRepository
// ============================================================================

type MockTokenRepository struct {
	mu        sync.Mutex
	rows      map[string]*models.AuthToken
	now       func() time.Time
	CreateErr error
}

func NewMockTokenRepository(now func() time.Time) *MockTokenRepository {
	return &MockTokenRepository{rows: map[string]*models.AuthToken{}, now: now}
}

func (m *MockTokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = nextID("tok")
	token.CreatedAt = m.now()
	cp := *token
	m.rows[token.ID] = &cp
	return nil
}

func (m *MockTokenRepository) FindByID(ctx context.Context, id string) (*models.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.DeletedAt != nil {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockTokenRepository) FindActive(ctx context.Context, filter repositories.TokenFilter) ([]*models.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuthToken
	for _, row := range m.rows {
		if row.DeletedAt != nil || row.TokenPrefix != filter.Prefix || row.IsExpired(filter.Now) {
			continue
		}
		if filter.Type != nil && row.Type != *filter.Type {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockTokenRepository) ListByUser(ctx context.Context, userID string, tokenType *models.TokenType) ([]*models.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuthToken
	for _, row := range m.rows {
		if row.DeletedAt != nil || row.UserID != userID {
			continue
		}
		if tokenType != nil && row.Type != *tokenType {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockTokenRepository) Update(ctx context.Context, token *models.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[token.ID]; !ok || row.DeletedAt != nil {
		return models.ErrNotFound
	}
	cp := *token
	m.rows[token.ID] = &cp
	return nil
}

func (m *MockTokenRepository) SoftDeleteForUser(ctx context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.DeletedAt != nil || row.UserID != userID {
		return false, nil
	}
	row.DeletedAt = ptrTime(m.now())
	return true, nil
}

func (m *MockTokenRepository) DeleteByUser(ctx context.Context, userID string, tokenType *models.TokenType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.DeletedAt != nil || row.UserID != userID {
			continue
		}
		if tokenType != nil && row.Type != *tokenType {
			continue
		}
		row.DeletedAt = ptrTime(m.now())
		n++
	}
	return n, nil
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.IsExpired(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// ============================================================================
// MockMfaConfigRepository
// ============================================================================

type MockMfaConfigRepository struct {
	mu   sync.Mutex
	rows map[string]*models.MfaConfig

	FindErr error
}

func NewMockMfaConfigRepository() *MockMfaConfigRepository {
	return &MockMfaConfigRepository{rows: map[string]*models.MfaConfig{}}
}

func (m *MockMfaConfigRepository) key(userID string, method models.MfaMethod) string {
	return userID + "|" + string(method)
}

func (m *MockMfaConfigRepository) Upsert(ctx context.Context, cfg *models.MfaConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.ID = nextID("mfa")
	cp := *cfg
	m.rows[m.key(cfg.UserID, cfg.Method)] = &cp
	return nil
}

func (m *MockMfaConfigRepository) FindByUserAndMethod(ctx context.Context, userID string, method models.MfaMethod) (*models.MfaConfig, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[m.key(userID, method)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockMfaConfigRepository) Update(ctx context.Context, cfg *models.MfaConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(cfg.UserID, cfg.Method)]; !ok {
		return models.ErrNotFound
	}
	cp := *cfg
	m.rows[m.key(cfg.UserID, cfg.Method)] = &cp
	return nil
}

func (m *MockMfaConfigRepository) Delete(ctx context.Context, userID string, method models.MfaMethod) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(userID, method)]; !ok {
		return false, nil
	}
	delete(m.rows, m.key(userID, method))
	return true, nil
}

func (m *MockMfaConfigRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// ============================================================================
// MockBackupCodeRepository
// ============================================================================

type MockBackupCodeRepository struct {
	mu   sync.Mutex
	rows []*models.MfaBackupCode

	CreateBatchErr error
}

func NewMockBackupCodeRepository() *MockBackupCodeRepository {
	return &MockBackupCodeRepository{}
}

func (m *MockBackupCodeRepository) SoftDeleteByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.UserID == userID && row.DeletedAt == nil {
			row.DeletedAt = ptrTime(time.Now())
			n++
		}
	}
	return n, nil
}

func (m *MockBackupCodeRepository) CreateBatch(ctx context.Context, codes []*models.MfaBackupCode) error {
	if m.CreateBatchErr != nil {
		return m.CreateBatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range codes {
		c.ID = nextID("bc")
		cp := *c
		m.rows = append(m.rows, &cp)
	}
	return nil
}

func (m *MockBackupCodeRepository) ListUnused(ctx context.Context, userID string) ([]*models.MfaBackupCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MfaBackupCode
	for _, row := range m.rows {
		if row.UserID == userID && row.DeletedAt == nil && row.UsedAt == nil {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockBackupCodeRepository) CountByUser(ctx context.Context, userID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, used int
	for _, row := range m.rows {
		if row.UserID == userID && row.DeletedAt == nil {
			total++
			if row.UsedAt != nil {
				used++
			}
		}
	}
	return total, used, nil
}

// MarkUsed mirrors the conditional update: only an unused row is consumed
func (m *MockBackupCodeRepository) MarkUsed(ctx context.Context, code *models.MfaBackupCode, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == code.ID && row.DeletedAt == nil && row.UsedAt == nil {
			row.UsedAt = &usedAt
			code.UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBackupCodeRepository) DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.UsedAt != nil && row.UsedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return n, nil
}

func (m *MockBackupCodeRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// ============================================================================
// MockTrustedDeviceRepository
// ============================================================================

type MockTrustedDeviceRepository struct {
	mu   sync.Mutex
	rows map[string]*models.TrustedDevice

	UpsertErr error
}

func NewMockTrustedDeviceRepository() *MockTrustedDeviceRepository {
	return &MockTrustedDeviceRepository{rows: map[string]*models.TrustedDevice{}}
}

func (m *MockTrustedDeviceRepository) key(userID, deviceID string) string {
	return userID + "|" + deviceID
}

func (m *MockTrustedDeviceRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[m.key(device.UserID, device.DeviceID)]; ok {
		device.ID = existing.ID
	} else {
		device.ID = nextID("dev")
	}
	cp := *device
	m.rows[m.key(device.UserID, device.DeviceID)] = &cp
	return nil
}

func (m *MockTrustedDeviceRepository) FindByUserAndDevice(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[m.key(userID, deviceID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockTrustedDeviceRepository) ListByUser(ctx context.Context, userID string) ([]*models.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(userID), nil
}

func (m *MockTrustedDeviceRepository) listLocked(userID string) []*models.TrustedDevice {
	var out []*models.TrustedDevice
	for _, row := range m.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out
}

func (m *MockTrustedDeviceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listLocked(userID)), nil
}

func (m *MockTrustedDeviceRepository) Update(ctx context.Context, device *models.TrustedDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(device.UserID, device.DeviceID)]; !ok {
		return models.ErrNotFound
	}
	cp := *device
	m.rows[m.key(device.UserID, device.DeviceID)] = &cp
	return nil
}

func (m *MockTrustedDeviceRepository) DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.listLocked(userID)
	var deleted int64
	for i := len(list) - 1; i >= 0 && int(deleted) < n; i-- {
		delete(m.rows, m.key(userID, list[i].DeviceID))
		deleted++
	}
	return deleted, nil
}

func (m *MockTrustedDeviceRepository) DeleteForUser(ctx context.Context, userID, deviceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(userID, deviceID)]; !ok {
		return false, nil
	}
	delete(m.rows, m.key(userID, deviceID))
	return true, nil
}

func (m *MockTrustedDeviceRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, row := range m.rows {
		if row.UserID == userID {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MockTrustedDeviceRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, row := range m.rows {
		if row.LastUsedAt.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MockTrustedDeviceRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// ============================================================================
// MockSessionRepository
// ============================================================================

type MockSessionRepository struct {
	mu   sync.Mutex
	rows map[string]*models.Session
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{rows: map[string]*models.Session{}}
}

func (m *MockSessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[session.SessionID]; ok {
		if existing.UserID != session.UserID {
			return models.ErrConflict
		}
		session.ID = existing.ID
	} else {
		session.ID = nextID("sess")
	}
	cp := *session
	m.rows[session.SessionID] = &cp
	return nil
}

func (m *MockSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(userID), nil
}

func (m *MockSessionRepository) listLocked(userID string) []*models.Session {
	var out []*models.Session
	for _, row := range m.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out
}

func (m *MockSessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listLocked(userID)), nil
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[session.SessionID]; !ok {
		return models.ErrNotFound
	}
	cp := *session
	m.rows[session.SessionID] = &cp
	return nil
}

func (m *MockSessionRepository) DeleteOldestByUser(ctx context.Context, userID string, n int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.listLocked(userID)
	var deleted int64
	for i := len(list) - 1; i >= 0 && int(deleted) < n; i-- {
		delete(m.rows, list[i].SessionID)
		deleted++
	}
	return deleted, nil
}

func (m *MockSessionRepository) DeleteForUser(ctx context.Context, userID, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok || row.UserID != userID {
		return false, nil
	}
	delete(m.rows, sessionID)
	return true, nil
}

func (m *MockSessionRepository) DeleteAllForUserExcept(ctx context.Context, userID, keepSessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.UserID == userID && id != keepSessionID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MockSessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.LastActivity.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MockSessionRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// ============================================================================
// MockSocialAccountRepository
// ============================================================================

type MockSocialAccountRepository struct {
	mu   sync.Mutex
	rows map[string]*models.SocialAccount
}

func NewMockSocialAccountRepository() *MockSocialAccountRepository {
	return &MockSocialAccountRepository{rows: map[string]*models.SocialAccount{}}
}

func (m *MockSocialAccountRepository) key(userID string, provider models.Provider) string {
	return userID + "|" + string(provider)
}

func (m *MockSocialAccountRepository) Upsert(ctx context.Context, account *models.SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[m.key(account.UserID, account.Provider)]; ok {
		account.ID = existing.ID
	} else {
		account.ID = nextID("soc")
	}
	cp := *account
	m.rows[m.key(account.UserID, account.Provider)] = &cp
	return nil
}

func (m *MockSocialAccountRepository) FindByUserAndProvider(ctx context.Context, userID string, provider models.Provider) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[m.key(userID, provider)]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *MockSocialAccountRepository) ListByUser(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for _, row := range m.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (m *MockSocialAccountRepository) Update(ctx context.Context, account *models.SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(account.UserID, account.Provider)]; !ok {
		return models.ErrNotFound
	}
	cp := *account
	m.rows[m.key(account.UserID, account.Provider)] = &cp
	return nil
}

func (m *MockSocialAccountRepository) Delete(ctx context.Context, userID string, provider models.Provider) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[m.key(userID, provider)]; !ok {
		return false, nil
	}
	delete(m.rows, m.key(userID, provider))
	return true, nil
}

func (m *MockSocialAccountRepository) VerifySignatures(ctx context.Context) ([]string, error) {
	return nil, nil
}

// Compile-time interface checks
var (
	_ repositories.AuthMethodRepository    = (*MockAuthMethodRepository)(nil)
	_ repositories.TokenRepository         = (*MockTokenRepository)(nil)
	_ repositories.MfaConfigRepository     = (*MockMfaConfigRepository)(nil)
	_ repositories.BackupCodeRepository    = (*MockBackupCodeRepository)(nil)
	_ repositories.TrustedDeviceRepository = (*MockTrustedDeviceRepository)(nil)
	_ repositories.SessionRepository       = (*MockSessionRepository)(nil)
	_ repositories.SocialAccountRepository = (*MockSocialAccountRepository)(nil)
	_ Transactor                           = (*MockTransactor)(nil)
)
