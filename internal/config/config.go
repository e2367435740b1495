// Package config carga la configuración del broker desde YAML, con
// defaults sanos y overrides por variables de entorno (los overrides
// ganan siempre: son lo que setea el deployment).
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
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// postgres | redis | memory
		Driver   string `yaml:"driver"`
		Postgres struct {
			DSN      string `yaml:"dsn"`
			MaxConns int    `yaml:"max_conns"`
			MinConns int    `yaml:"min_conns"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// KV respalda códigos/credenciales/state del motor embebido, el store
	// redis/memory y el rate limiter.
	KV struct {
		// memory | redis
		Driver   string `yaml:"driver"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"kv"`

	Tenant struct {
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"tenant"`

	Engine struct {
		Issuer    string        `yaml:"issuer"`
		Secret    string        `yaml:"secret"`
		AccessTTL time.Duration `yaml:"access_ttl"`
		CodeTTL   time.Duration `yaml:"code_ttl"`
		StateTTL  time.Duration `yaml:"state_ttl"`

		// Password hygiene del signup embebido. MinLength 0 desactiva la
		// policy; BlacklistFile vacío desactiva el wordlist.
		PasswordMinLength int    `yaml:"password_min_length"`
		PasswordBlacklist string `yaml:"password_blacklist"`
	} `yaml:"engine"`

	Delivery struct {
		Email struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			FromEmail          string `yaml:"from_email"`
			TLSMode            string `yaml:"tls_mode"`
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		} `yaml:"email"`
		SMS struct {
			VendorURL string `yaml:"vendor_url"`
			APIKey    string `yaml:"api_key"`
			From      string `yaml:"from"`
		} `yaml:"sms"`
	} `yaml:"delivery"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		MaxRequests int    `yaml:"max_requests"`
		Window      string `yaml:"window"`
	} `yaml:"rate"`

	// AdminEmails es el allowlist del tenant público: solo estos emails
	// pueden loguearse como admin. Comparación case-insensitive.
	AdminEmails []string `yaml:"admin_emails"`
}

// Load lee el YAML (si path existe), aplica defaults y overrides de env.
// path vacío o inexistente no es error: todo puede venir por env.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Version == "" {
		c.App.Version = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Storage.Postgres.MinConns == 0 {
		c.Storage.Postgres.MinConns = 2
	}
	if c.KV.Driver == "" {
		c.KV.Driver = "memory"
	}
	if c.Tenant.CacheTTL == 0 {
		c.Tenant.CacheTTL = 2 * time.Minute
	}
	if c.Engine.Issuer == "" {
		c.Engine.Issuer = "http://localhost:8080"
	}
	if c.Engine.AccessTTL == 0 {
		c.Engine.AccessTTL = time.Hour
	}
	if c.Engine.CodeTTL == 0 {
		c.Engine.CodeTTL = 10 * time.Minute
	}
	if c.Engine.StateTTL == 0 {
		c.Engine.StateTTL = 10 * time.Minute
	}
	if c.Delivery.Email.TLSMode == "" {
		c.Delivery.Email.TLSMode = "auto"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ─────────────── Env helpers ───────────────

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func getEnvInt(key string) (int, bool) {
	if v, ok := getEnvStr(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if v, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if v, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	if v, ok := getEnvStr(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("APP_VERSION"); ok {
		c.App.Version = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("KV_DRIVER"); ok {
		c.KV.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.KV.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.KV.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.KV.DB = v
	}
	if v, ok := getEnvDur("TENANT_CACHE_TTL"); ok {
		c.Tenant.CacheTTL = v
	}
	if v, ok := getEnvStr("ENGINE_ISSUER"); ok {
		c.Engine.Issuer = v
	}
	if v, ok := getEnvStr("ENGINE_SECRET"); ok {
		c.Engine.Secret = v
	}
	if v, ok := getEnvDur("ENGINE_ACCESS_TTL"); ok {
		c.Engine.AccessTTL = v
	}
	if v, ok := getEnvDur("ENGINE_CODE_TTL"); ok {
		c.Engine.CodeTTL = v
	}
	if v, ok := getEnvInt("ENGINE_PASSWORD_MIN_LENGTH"); ok {
		c.Engine.PasswordMinLength = v
	}
	if v, ok := getEnvStr("ENGINE_PASSWORD_BLACKLIST"); ok {
		c.Engine.PasswordBlacklist = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Delivery.Email.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Delivery.Email.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.Delivery.Email.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.Delivery.Email.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.Delivery.Email.FromEmail = v
	}
	if v, ok := getEnvStr("SMS_VENDOR_URL"); ok {
		c.Delivery.SMS.VendorURL = v
	}
	if v, ok := getEnvStr("SMS_API_KEY"); ok {
		c.Delivery.SMS.APIKey = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvCSV("ADMIN_EMAILS"); ok {
		c.AdminEmails = v
	}
}

// Validate chequea lo mínimo para no arrancar roto.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("config: storage.driver=postgres requiere postgres.dsn")
		}
	case "redis":
		if c.KV.Addr == "" {
			return fmt.Errorf("config: storage.driver=redis requiere kv.addr")
		}
	case "memory":
	default:
		return fmt.Errorf("config: storage.driver %q desconocido", c.Storage.Driver)
	}

	if c.KV.Driver == "redis" && c.KV.Addr == "" {
		return fmt.Errorf("config: kv.driver=redis requiere kv.addr")
	}
	if c.Engine.Secret == "" {
		return fmt.Errorf("config: engine.secret requerido (ENGINE_SECRET)")
	}
	if _, err := time.ParseDuration(c.Rate.Window); err != nil {
		return fmt.Errorf("config: rate.window inválido: %w", err)
	}
	return nil
}

// RateWindow devuelve la ventana parseada (Validate ya garantizó formato).
func (c *Config) RateWindow() time.Duration {
	d, _ := time.ParseDuration(c.Rate.Window)
	return d
}
