package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr          string `yaml:"addr"`
		PublicBaseURL string `yaml:"public_base_url"` // base para armar links de verificación
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Password string `yaml:"password"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Tokens struct {
		// TTL del token de verificación de email (ej: "48h").
		VerifyTTL string `yaml:"verify_ttl"`
		// TTL del token de reset de password (ej: "1h").
		ResetTTL string `yaml:"reset_ttl"`
	} `yaml:"tokens"`

	Throttle struct {
		// Límite de resends por ventana, por clave (email o IP).
		Limit  int    `yaml:"limit"`
		Window string `yaml:"window"`
	} `yaml:"throttle"`

	Notify struct {
		// memory | redis
		QueueDriver string `yaml:"queue_driver"`
		QueueName   string `yaml:"queue_name"`
		Workers     int    `yaml:"workers"`
		MaxRetries  int    `yaml:"max_retries"`
		RetryDelay  string `yaml:"retry_delay"`
	} `yaml:"notify"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from_email"`
		TLSMode   string `yaml:"tls_mode"` // "auto" | "starttls" | "ssl" | "none"
	} `yaml:"smtp"`

	JWT struct {
		// Secret HS256 compartido con el servicio de cuentas.
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`

	Register struct {
		// Habilita el resend de verificación para callers no autenticados.
		SelfService bool `yaml:"self_service"`
	} `yaml:"register"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Storage.Postgres.ConnMaxLifetime == "" {
		c.Storage.Postgres.ConnMaxLifetime = "30m"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "shopjohn:"
	}
	if c.Tokens.VerifyTTL == "" {
		c.Tokens.VerifyTTL = "48h"
	}
	if c.Tokens.ResetTTL == "" {
		c.Tokens.ResetTTL = "1h"
	}
	if c.Throttle.Limit == 0 {
		c.Throttle.Limit = 3
	}
	if c.Throttle.Window == "" {
		c.Throttle.Window = "10m"
	}
	if c.Notify.QueueDriver == "" {
		c.Notify.QueueDriver = "memory"
	}
	if c.Notify.QueueName == "" {
		c.Notify.QueueName = "notify:jobs"
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 4
	}
	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 3
	}
	if c.Notify.RetryDelay == "" {
		c.Notify.RetryDelay = "30s"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLSMode == "" {
		c.SMTP.TLSMode = "auto"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "shopjohn"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Storage.DSN = v
	}

	// REDIS
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}

	// TOKENS
	if v, ok := getEnvStr("VERIFY_TTL"); ok {
		c.Tokens.VerifyTTL = v
	}
	if v, ok := getEnvStr("RESET_TTL"); ok {
		c.Tokens.ResetTTL = v
	}

	// THROTTLE
	if v, ok := getEnvInt("THROTTLE_LIMIT"); ok {
		c.Throttle.Limit = v
	}
	if v, ok := getEnvStr("THROTTLE_WINDOW"); ok {
		c.Throttle.Window = v
	}

	// NOTIFY
	if v, ok := getEnvStr("NOTIFY_QUEUE_DRIVER"); ok {
		c.Notify.QueueDriver = v
	}
	if v, ok := getEnvInt("NOTIFY_WORKERS"); ok {
		c.Notify.Workers = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM_EMAIL"); ok {
		c.SMTP.FromEmail = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}

	// REGISTER
	if v, ok := getEnvBool("REGISTER_SELF_SERVICE"); ok {
		c.Register.SelfService = v
	}
}

// Validate chequea valores que romperían en runtime si quedan mal.
func (c *Config) Validate() error {
	if _, err := c.VerifyTTL(); err != nil {
		return fmt.Errorf("tokens.verify_ttl: %w", err)
	}
	if _, err := c.ResetTTL(); err != nil {
		return fmt.Errorf("tokens.reset_ttl: %w", err)
	}
	if _, err := c.ThrottleWindow(); err != nil {
		return fmt.Errorf("throttle.window: %w", err)
	}
	if _, err := c.RetryDelay(); err != nil {
		return fmt.Errorf("notify.retry_delay: %w", err)
	}
	if c.Throttle.Limit < 1 {
		return fmt.Errorf("throttle.limit must be >= 1")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn required for postgres driver")
	}
	if c.Notify.QueueDriver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required for redis queue driver")
	}
	return nil
}

// ─── Accessors tipados para duraciones ───

func (c *Config) VerifyTTL() (time.Duration, error) {
	return time.ParseDuration(c.Tokens.VerifyTTL)
}

func (c *Config) ResetTTL() (time.Duration, error) {
	return time.ParseDuration(c.Tokens.ResetTTL)
}

func (c *Config) ThrottleWindow() (time.Duration, error) {
	return time.ParseDuration(c.Throttle.Window)
}

func (c *Config) RetryDelay() (time.Duration, error) {
	return time.ParseDuration(c.Notify.RetryDelay)
}

// TTLFor retorna el TTL configurado para un purpose de token.
func (c *Config) TTLFor(purpose string) (time.Duration, error) {
	switch purpose {
	case "password_reset":
		return c.ResetTTL()
	default:
		return c.VerifyTTL()
	}
}
