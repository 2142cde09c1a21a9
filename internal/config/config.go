package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	MFA      MFAConfig
	Tokens   TokenConfig
	Devices  DeviceConfig
	Sessions SessionConfig
	Geo      GeoConfig
	Redis    RedisConfig
	OAuth    OAuthConfig
	Email    EmailConfig
	Cleanup  CleanupConfig
}

type DatabaseConfig struct {
	Host              string `validate:"required"`
	Port              int    `validate:"gt=0,lt=65536"`
	User              string `validate:"required"`
	Password          string `validate:"required"`
	Name              string `validate:"required"`
	SSLMode           string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int32  `validate:"gt=0"`
	MinConns          int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string `validate:"required"`
	Env            string `validate:"oneof=development test staging production"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

// SecurityConfig holds process-wide key material
type SecurityConfig struct {
	EncryptionKey []byte `validate:"len=32"`
	SignatureKey  []byte `validate:"min=32"`
	OAuthStateKey []byte `validate:"min=32"`
	HashDriver    string `validate:"oneof=bcrypt argon2id"`
	BcryptCost    int    `validate:"gte=4,lte=31"`
	FailureDelay  time.Duration
	FailureJitter time.Duration
}

type MFAConfig struct {
	Issuer                 string        `validate:"required"`
	Digits                 int           `validate:"oneof=6 8"`
	Period                 time.Duration `validate:"gt=0"`
	Window                 int           `validate:"gte=0,lte=10"`
	Algorithm              string        `validate:"oneof=SHA1 SHA256 SHA512"`
	SecretLength           int           `validate:"gte=16"`
	BackupCodeCount        int           `validate:"gt=0"`
	BackupCodeLength       int           `validate:"gte=4"`
	BackupCodeLowWaterMark int           `validate:"gte=0"`
	BackupCodeRetention    time.Duration
	ChannelCodePeriod      time.Duration `validate:"gt=0"`
}

// TokenConfig holds default lifetimes per token type. Zero APITTL means api tokens never expire.
type TokenConfig struct {
	RememberTTL time.Duration
	SessionTTL  time.Duration
	APITTL      time.Duration
}

type DeviceConfig struct {
	MaxDevices    int `validate:"gt=0"`
	InactiveAfter time.Duration
}

type SessionConfig struct {
	MaxConcurrent int `validate:"gt=0"`
	InactiveAfter time.Duration
	ActiveWithin  time.Duration
	IdleWithin    time.Duration
}

type GeoConfig struct {
	Enabled  bool
	URL      string `validate:"omitempty,url"`
	Timeout  time.Duration
	CacheTTL time.Duration
}

// RedisConfig is optional. An empty URL disables the geolocation cache.
type RedisConfig struct {
	URL      string `validate:"omitempty,url"`
	PoolSize int
}

type OAuthConfig struct {
	Google      OAuthCredentials
	Microsoft   OAuthCredentials
	GitHub      OAuthCredentials
	Facebook    OAuthCredentials
	HTTPTimeout time.Duration
	StateTTL    time.Duration
}

// OAuthCredentials may be left empty; using an unconfigured provider fails at call time.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

// EmailConfig enables the SES code sender when FromAddress is set
type EmailConfig struct {
	AWSRegion   string `validate:"required_with=FromAddress"`
	FromAddress string `validate:"omitempty,email"`
}

type CleanupConfig struct {
	Interval time.Duration `validate:"gt=0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	encryptionKey, err := getEnvAsKey("ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}
	if len(encryptionKey) == 0 {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	signatureKey := []byte(getEnv("SIGNATURE_KEY", ""))
	if len(signatureKey) == 0 {
		return nil, fmt.Errorf("SIGNATURE_KEY is required")
	}

	stateKey := []byte(getEnv("OAUTH_STATE_SECRET", ""))
	if len(stateKey) == 0 {
		stateKey = signatureKey
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "autentica"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "9090"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Security: SecurityConfig{
			EncryptionKey: encryptionKey,
			SignatureKey:  signatureKey,
			OAuthStateKey: stateKey,
			HashDriver:    strings.ToLower(getEnv("HASH_DRIVER", "bcrypt")),
			BcryptCost:    getEnvAsInt("BCRYPT_COST", 12),
			FailureDelay:  getEnvAsDuration("MFA_FAILURE_DELAY", 0),
			FailureJitter: getEnvAsDuration("MFA_FAILURE_JITTER", 0),
		},
		MFA: MFAConfig{
			Issuer:                 getEnv("MFA_ISSUER", "Autentica"),
			Digits:                 getEnvAsInt("MFA_TOTP_DIGITS", 6),
			Period:                 getEnvAsDuration("MFA_TOTP_PERIOD", 30*time.Second),
			Window:                 getEnvAsInt("MFA_TOTP_WINDOW", 1),
			Algorithm:              strings.ToUpper(getEnv("MFA_TOTP_ALGORITHM", "SHA1")),
			SecretLength:           getEnvAsInt("MFA_SECRET_LENGTH", 32),
			BackupCodeCount:        getEnvAsInt("MFA_BACKUP_CODE_COUNT", 10),
			BackupCodeLength:       getEnvAsInt("MFA_BACKUP_CODE_LENGTH", 8),
			BackupCodeLowWaterMark: getEnvAsInt("MFA_BACKUP_CODE_LOW_WATER_MARK", 2),
			BackupCodeRetention:    getEnvAsDuration("MFA_BACKUP_CODE_RETENTION", 90*24*time.Hour),
			ChannelCodePeriod:      getEnvAsDuration("MFA_CHANNEL_CODE_PERIOD", 5*time.Minute),
		},
		Tokens: TokenConfig{
			RememberTTL: getEnvAsDuration("TOKEN_REMEMBER_TTL", 30*24*time.Hour),
			SessionTTL:  getEnvAsDuration("TOKEN_SESSION_TTL", 2*time.Hour),
			APITTL:      getEnvAsDuration("TOKEN_API_TTL", 0),
		},
		Devices: DeviceConfig{
			MaxDevices:    getEnvAsInt("DEVICE_MAX_PER_USER", 10),
			InactiveAfter: getEnvAsDuration("DEVICE_INACTIVE_AFTER", 90*24*time.Hour),
		},
		Sessions: SessionConfig{
			MaxConcurrent: getEnvAsInt("SESSION_MAX_CONCURRENT", 5),
			InactiveAfter: getEnvAsDuration("SESSION_INACTIVE_AFTER", 24*time.Hour),
			ActiveWithin:  getEnvAsDuration("SESSION_ACTIVE_WITHIN", 1*time.Hour),
			IdleWithin:    getEnvAsDuration("SESSION_IDLE_WITHIN", 24*time.Hour),
		},
		Geo: GeoConfig{
			Enabled:  getEnvAsBool("GEO_ENABLED", true),
			URL:      getEnv("GEO_URL", "http://ip-api.com/json"),
			Timeout:  getEnvAsDuration("GEO_TIMEOUT", 2*time.Second),
			CacheTTL: getEnvAsDuration("GEO_CACHE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		OAuth: OAuthConfig{
			Google:      credentials("GOOGLE"),
			Microsoft:   credentials("MICROSOFT"),
			GitHub:      credentials("GITHUB"),
			Facebook:    credentials("FACEBOOK"),
			HTTPTimeout: getEnvAsDuration("OAUTH_HTTP_TIMEOUT", 10*time.Second),
			StateTTL:    getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", ""),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section against its struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func credentials(provider string) OAuthCredentials {
	return OAuthCredentials{
		ClientID:     getEnv("OAUTH_"+provider+"_CLIENT_ID", ""),
		ClientSecret: getEnv("OAUTH_"+provider+"_CLIENT_SECRET", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvAsKey decodes a base64 key, with or without a "base64:" prefix
func getEnvAsKey(key string) ([]byte, error) {
	raw := strings.TrimPrefix(getEnv(key, ""), "base64:")
	if raw == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be base64 encoded: %w", key, err)
	}
	return decoded, nil
}
