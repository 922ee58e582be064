package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		DSN         string `yaml:"dsn"`
		Schema      string `yaml:"schema"`
		TablePrefix string `yaml:"table_prefix"`
		MaxConns    int    `yaml:"max_conns"`
		MinConns    int    `yaml:"min_conns"`
	} `yaml:"storage"`

	Keys struct {
		// HS256 | RS256 | ES256 | EdDSA
		Algorithm string `yaml:"algorithm"`
		// dynamic=true: una clave nueva por ventana de rotación; false: clave estática.
		Dynamic          *bool  `yaml:"dynamic"`
		RotationInterval string `yaml:"rotation_interval"`
		MaxAttempts      int    `yaml:"max_attempts"`
		CacheTTL         string `yaml:"cache_ttl"`
		// claim "iss" de los tokens emitidos; vacío = no se setea ni se valida
		Issuer string `yaml:"issuer"`
	} `yaml:"keys"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		JWKSTTL string `yaml:"jwks_ttl"`
	} `yaml:"cache"`
}

// Load lee el YAML (si path no es vacío), aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default devuelve una config sólo con defaults + env (sin archivo).
func Default() *Config {
	c := &Config{}
	c.applyEnvOverrides()
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Schema == "" {
		c.Storage.Schema = "public"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Storage.MinConns == 0 {
		c.Storage.MinConns = 2
	}
	if c.Keys.Algorithm == "" {
		c.Keys.Algorithm = "RS256"
	}
	if c.Keys.Dynamic == nil {
		t := true
		c.Keys.Dynamic = &t
	}
	if c.Keys.RotationInterval == "" {
		c.Keys.RotationInterval = "168h" // 7d
	}
	if c.Keys.MaxAttempts == 0 {
		c.Keys.MaxAttempts = 3
	}
	if c.Keys.CacheTTL == "" {
		c.Keys.CacheTTL = "30s"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.JWKSTTL == "" {
		c.Cache.JWKSTTL = "15s"
	}
}

var schemaIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var supportedAlgorithms = map[string]bool{
	"HS256": true,
	"RS256": true,
	"ES256": true,
	"EdDSA": true,
}

// Validate revisa valores críticos.
func (c *Config) Validate() error {
	if !supportedAlgorithms[c.Keys.Algorithm] {
		return fmt.Errorf("config: unsupported keys.algorithm %q", c.Keys.Algorithm)
	}
	d, err := time.ParseDuration(c.Keys.RotationInterval)
	if err != nil {
		return fmt.Errorf("config: keys.rotation_interval: %w", err)
	}
	if d <= 0 {
		return errors.New("config: keys.rotation_interval must be positive")
	}
	if c.Keys.MaxAttempts < 1 {
		return errors.New("config: keys.max_attempts must be >= 1")
	}
	if !schemaIdent.MatchString(c.Storage.Schema) {
		return fmt.Errorf("config: invalid storage.schema %q", c.Storage.Schema)
	}
	if c.Storage.TablePrefix != "" && !schemaIdent.MatchString(c.Storage.TablePrefix) {
		return fmt.Errorf("config: invalid storage.table_prefix %q", c.Storage.TablePrefix)
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.kind %q", c.Cache.Kind)
	}
	return nil
}

// ---- Nombres de tablas ----

// qualify aplica prefijo y esquema: [<schema>.][<prefix>_]<name>.
func (c *Config) qualify(name string) string {
	if c.Storage.TablePrefix != "" {
		name = c.Storage.TablePrefix + "_" + name
	}
	if c.Storage.Schema != "" && c.Storage.Schema != "public" {
		name = c.Storage.Schema + "." + name
	}
	return name
}

// TableSchema devuelve el esquema resuelto.
func (c *Config) TableSchema() string { return c.Storage.Schema }

// AppsTable es la tabla dueña (externa) referenciada por la FK.
func (c *Config) AppsTable() string { return c.qualify("apps") }

// JWTSigningKeysTable es la tabla de claves de firma.
func (c *Config) JWTSigningKeysTable() string { return c.qualify("jwt_signing_keys") }

// ---- Duraciones parseadas ----

func (c *Config) RotationInterval() time.Duration { return mustDur(c.Keys.RotationInterval, 168*time.Hour) }
func (c *Config) KeyCacheTTL() time.Duration      { return mustDur(c.Keys.CacheTTL, 30*time.Second) }
func (c *Config) JWKSTTL() time.Duration          { return mustDur(c.Cache.JWKSTTL, 15*time.Second) }

// DynamicKeys indica si las claves rotan por ventana.
func (c *Config) DynamicKeys() bool { return c.Keys.Dynamic == nil || *c.Keys.Dynamic }

func mustDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ---- Helpers env ----

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

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP / LOG
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_SCHEMA"); ok {
		c.Storage.Schema = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("STORAGE_TABLE_PREFIX"); ok {
		c.Storage.TablePrefix = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvInt("STORAGE_MAX_CONNS"); ok {
		c.Storage.MaxConns = v
	}

	// KEYS
	if v, ok := getEnvStr("KEYS_ALGORITHM"); ok {
		c.Keys.Algorithm = strings.TrimSpace(v)
	}
	if v, ok := getEnvBool("KEYS_DYNAMIC"); ok {
		c.Keys.Dynamic = &v
	}
	if v, ok := getEnvStr("KEYS_ROTATION_INTERVAL"); ok {
		c.Keys.RotationInterval = v
	}
	if v, ok := getEnvInt("KEYS_MAX_ATTEMPTS"); ok {
		c.Keys.MaxAttempts = v
	}
	if v, ok := getEnvStr("KEYS_ISSUER"); ok {
		c.Keys.Issuer = strings.TrimSpace(v)
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
}
