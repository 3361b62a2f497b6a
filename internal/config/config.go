package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Log           LogConfig           `mapstructure:"log"`
	Security      SecurityConfig      `mapstructure:"security"`
	Session       SessionConfig       `mapstructure:"session"`
	Cookie        CookieConfig        `mapstructure:"cookie"`
	TwoFactor     TwoFactorConfig     `mapstructure:"two_factor"`
	Email         EmailConfig         `mapstructure:"email"`
	Verification  VerificationConfig  `mapstructure:"verification"`
	PasswordReset PasswordResetConfig `mapstructure:"password_reset"`
	Geo           GeoConfig           `mapstructure:"geo"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AllowedOrigins is the CORS allow-list for browser clients
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TLS            struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password     PasswordConfig     `mapstructure:"password"`
	Tokens       TokenConfig        `mapstructure:"tokens"`
	Lockout      LockoutConfig      `mapstructure:"lockout"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// TokenConfig holds token signing configuration
type TokenConfig struct {
	AccessTokenSecret string        `mapstructure:"access_token_secret"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer            string        `mapstructure:"issuer"`
}

// LockoutConfig holds the failed-login lockout policy
type LockoutConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	LockDuration      time.Duration `mapstructure:"lock_duration"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DefaultLimit  int    `mapstructure:"default_limit"`
	DefaultWindow string `mapstructure:"default_window"`
}

// SessionConfig holds server session store configuration
type SessionConfig struct {
	// CookieName is the session identifier cookie name
	CookieName string `mapstructure:"cookie_name"`
	// IdleTTL is how long a session survives without activity
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	// AbsoluteTTL caps total session lifetime regardless of activity
	AbsoluteTTL time.Duration `mapstructure:"absolute_ttl"`
}

// CookieConfig holds cookie attribute configuration
type CookieConfig struct {
	Domain string `mapstructure:"domain"`
	// Secure sets the Secure flag on cookies (true in production with HTTPS)
	Secure bool `mapstructure:"secure"`
	// SameSite controls the SameSite attribute: "lax", "strict", or "none"
	SameSite string `mapstructure:"same_site"`
}

// TwoFactorConfig holds emailed one-time login code configuration
type TwoFactorConfig struct {
	CodeLength   int           `mapstructure:"code_length"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	// TempTokenSecret signs the opaque challenge token returned to the client
	TempTokenSecret string `mapstructure:"temp_token_secret"`
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is the email provider to use: "gmail" or "smtp"
	Provider string `mapstructure:"provider"`
	// AppName is the application name shown in emails
	AppName string `mapstructure:"app_name"`
	// AdminAddress receives suspicious-login alerts
	AdminAddress string           `mapstructure:"admin_address"`
	Gmail        GmailEmailConfig `mapstructure:"gmail"`
	SMTP         SMTPEmailConfig  `mapstructure:"smtp"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	CredentialsJSON string `mapstructure:"credentials_json"`
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	RefreshToken    string `mapstructure:"refresh_token"`
	SenderAddress   string `mapstructure:"sender_address"`
	SenderName      string `mapstructure:"sender_name"`
}

// SMTPEmailConfig holds SMTP relay configuration
type SMTPEmailConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SenderAddress string `mapstructure:"sender_address"`
	SenderName    string `mapstructure:"sender_name"`
}

// VerificationConfig holds email verification settings
type VerificationConfig struct {
	OTPLength      int           `mapstructure:"otp_length"`
	OTPTTL         time.Duration `mapstructure:"otp_ttl"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

// PasswordResetConfig holds password reset settings
type PasswordResetConfig struct {
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	MaxPerHour    int           `mapstructure:"max_per_hour"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
}

// GeoConfig holds GeoIP database configuration
type GeoConfig struct {
	// MMDBPath points at a GeoLite2-City database file; empty disables lookups
	MMDBPath string `mapstructure:"mmdb_path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/careerstack")

	setDefaults(v)

	// Config file is optional; defaults and env vars cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CAREERSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "careerstack")
	v.SetDefault("database.user", "careerstack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("security.password.min_length", 8)
	v.SetDefault("security.password.argon2_memory", 65536)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)

	v.SetDefault("security.tokens.access_token_secret", "")
	v.SetDefault("security.tokens.access_token_ttl", "15m")
	v.SetDefault("security.tokens.refresh_token_ttl", "720h")
	v.SetDefault("security.tokens.issuer", "careerstack")

	v.SetDefault("security.lockout.max_failed_attempts", 5)
	v.SetDefault("security.lockout.lock_duration", "15m")

	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.default_limit", 100)
	v.SetDefault("security.rate_limiting.default_window", "1m")

	v.SetDefault("session.cookie_name", "sid")
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.absolute_ttl", "12h")

	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.secure", false)
	v.SetDefault("cookie.same_site", "lax")

	v.SetDefault("two_factor.code_length", 6)
	v.SetDefault("two_factor.challenge_ttl", "5m")
	v.SetDefault("two_factor.temp_token_secret", "")

	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.app_name", "CareerStack")
	v.SetDefault("email.admin_address", "")
	v.SetDefault("email.gmail.sender_address", "")
	v.SetDefault("email.gmail.sender_name", "CareerStack")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.sender_name", "CareerStack")

	v.SetDefault("verification.otp_length", 6)
	v.SetDefault("verification.otp_ttl", "10m")
	v.SetDefault("verification.resend_cooldown", "60s")

	v.SetDefault("password_reset.token_ttl", "1h")
	v.SetDefault("password_reset.max_per_hour", 3)
	v.SetDefault("password_reset.public_base_url", "http://localhost:3000")

	v.SetDefault("geo.mmdb_path", "")
}
