package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when ENV=development and no JWT_SECRET is set.
const DevJWTSecret = "dev-only-insecure-secret"

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	APIBaseURL  string   `mapstructure:"API_BASE_URL"`

	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET"`
	AdminJWTSecret   string        `mapstructure:"ADMIN_JWT_SECRET"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL  time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	AdminTokenTTL    time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`

	// EnablePatientSignup is kept as the raw environment string; only "true"
	// enables the flag.
	EnablePatientSignup string `mapstructure:"ENABLE_PATIENT_SIGNUP"`

	OTPTTL            time.Duration `mapstructure:"OTP_TTL"`
	OTPLength         int           `mapstructure:"OTP_LENGTH"`
	OTPResendInterval time.Duration `mapstructure:"OTP_RESEND_INTERVAL"`
	OTPMaxAttempts    int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	LoginMaxFailures  int           `mapstructure:"LOGIN_MAX_FAILURES"`
	LoginLockout      time.Duration `mapstructure:"LOGIN_LOCKOUT"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	S3Endpoint   string        `mapstructure:"S3_ENDPOINT"`
	S3Region     string        `mapstructure:"S3_REGION"`
	S3Bucket     string        `mapstructure:"S3_BUCKET"`
	S3AccessKey  string        `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey  string        `mapstructure:"S3_SECRET_KEY"`
	S3PresignTTL time.Duration `mapstructure:"S3_PRESIGN_TTL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("ADMIN_TOKEN_TTL", "8h")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_RESEND_INTERVAL", "60s")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_MAX_FAILURES", 5)
	v.SetDefault("LOGIN_LOCKOUT", "15m")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("S3_REGION", "ap-south-1")
	v.SetDefault("S3_PRESIGN_TTL", "15m")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "API_BASE_URL",
		"JWT_SECRET", "JWT_REFRESH_SECRET", "ADMIN_JWT_SECRET",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "ADMIN_TOKEN_TTL",
		"ENABLE_PATIENT_SIGNUP",
		"OTP_TTL", "OTP_LENGTH", "OTP_RESEND_INTERVAL", "OTP_MAX_ATTEMPTS",
		"LOGIN_MAX_FAILURES", "LOGIN_LOCKOUT",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PRESIGN_TTL",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = splitList(cfg.CORSOrigins[0])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = DevJWTSecret
	}
	if cfg.JWTRefreshSecret == "" {
		cfg.JWTRefreshSecret = cfg.JWTSecret
	}
	if cfg.AdminJWTSecret == "" {
		cfg.AdminJWTSecret = cfg.JWTSecret
	}

	return cfg, nil
}

// UsingDevSecret reports whether any token family is signed with the
// built-in development secret.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret || c.JWTRefreshSecret == DevJWTSecret || c.AdminJWTSecret == DevJWTSecret
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// FeatureEnv returns the environment fallback values for the feature flags
// known to the server, keyed by setting key.
func (c *Config) FeatureEnv() map[string]string {
	return map[string]string{
		"ENABLE_PATIENT_SIGNUP": c.EnablePatientSignup,
	}
}

// S3Enabled reports whether object storage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.AdminTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.OTPLength < 4 || c.OTPLength > 8 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 8, got %d", c.OTPLength)
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.OTPMaxAttempts < 1 || c.LoginMaxFailures < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS and LOGIN_MAX_FAILURES must be at least 1")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.S3Enabled() && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_BUCKET is set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
