package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultEnvFile              = ".env"
	defaultAddr                 = ":8080"
	defaultEnvironment          = "local"
	defaultLogLevel             = "info"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultShutdownTimeout      = 10 * time.Second
	defaultRequestTimeout       = 30 * time.Second
	defaultCookieName           = "authdemo_visitor"
	defaultSessionIdleTimeout   = 30 * time.Minute
	defaultSessionLifetime      = 24 * time.Hour
	defaultSubmitLatency        = 2000 * time.Millisecond
	defaultVisitorIdleTimeout   = 30 * time.Minute
	defaultVisitorSweepInterval = time.Minute

	configFileKey = "AUTHDEMO_CONFIG_FILE"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Session     SessionConfig
	Forms       FormsConfig
	Visitors    VisitorConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// SessionConfig configures the visitor cookie.
type SessionConfig struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookieSecure bool
	IdleTimeout  time.Duration
	Lifetime     time.Duration
	// GeneratedKeys is set when no hash key was configured and a random one was created.
	GeneratedKeys bool
}

// FormsConfig configures the form engine.
type FormsConfig struct {
	SubmitLatency time.Duration
}

// VisitorConfig configures the in-memory visitor registry.
type VisitorConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// IsProduction reports whether the environment is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production") || strings.EqualFold(c.Environment, "prod")
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option configures Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. An empty path disables .env loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithConfigFile sets the YAML file consulted below .env and the environment.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles configuration from defaults, the YAML file, .env, the environment and explicit values,
// in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	configFile := options.configFile
	if configFile == "" {
		configFile, _ = lookup(configFileKey)
	}
	fileValues, err := loadFile(configFile)
	if err != nil {
		return Config{}, err
	}
	withFile := func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := fileValues[key]
		return value, ok
	}

	p := parser{lookup: withFile}
	cfg := Config{
		Environment: p.stringValue("AUTHDEMO_ENV", defaultEnvironment),
		LogLevel:    strings.ToLower(p.stringValue("AUTHDEMO_LOG_LEVEL", defaultLogLevel)),
		Server: ServerConfig{
			Addr:            p.stringValue("AUTHDEMO_HTTP_ADDR", defaultAddr),
			ReadTimeout:     p.durationValue("AUTHDEMO_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    p.durationValue("AUTHDEMO_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     p.durationValue("AUTHDEMO_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout:  p.durationValue("AUTHDEMO_HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout: p.durationValue("AUTHDEMO_HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Session: SessionConfig{
			CookieName:   p.stringValue("AUTHDEMO_SESSION_COOKIE", defaultCookieName),
			HashKey:      []byte(p.stringValue("AUTHDEMO_SESSION_HASH_KEY", "")),
			BlockKey:     []byte(p.stringValue("AUTHDEMO_SESSION_BLOCK_KEY", "")),
			CookieSecure: p.boolValue("AUTHDEMO_SESSION_COOKIE_SECURE", false),
			IdleTimeout:  p.durationValue("AUTHDEMO_SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
			Lifetime:     p.durationValue("AUTHDEMO_SESSION_LIFETIME", defaultSessionLifetime),
		},
		Forms: FormsConfig{
			SubmitLatency: p.durationValue("AUTHDEMO_SUBMIT_LATENCY", defaultSubmitLatency),
		},
		Visitors: VisitorConfig{
			IdleTimeout:   p.durationValue("AUTHDEMO_VISITOR_IDLE_TIMEOUT", defaultVisitorIdleTimeout),
			SweepInterval: p.durationValue("AUTHDEMO_VISITOR_SWEEP_INTERVAL", defaultVisitorSweepInterval),
		},
	}

	if len(cfg.Session.HashKey) == 0 && !cfg.IsProduction() {
		cfg.Session.HashKey = securecookie.GenerateRandomKey(32)
		cfg.Session.BlockKey = securecookie.GenerateRandomKey(32)
		cfg.Session.GeneratedKeys = true
	}

	if err := validateConfig(cfg, p.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		missing = append(missing, "Server.Addr")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		missing = append(missing, "LogLevel")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		missing = append(missing, "Session.CookieName")
	}
	if len(cfg.Session.HashKey) < 32 {
		missing = append(missing, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Session.IdleTimeout <= 0 {
		missing = append(missing, "Session.IdleTimeout")
	}
	if cfg.Forms.SubmitLatency < 0 {
		missing = append(missing, "Forms.SubmitLatency")
	}
	if cfg.Visitors.IdleTimeout <= 0 {
		missing = append(missing, "Visitors.IdleTimeout")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

type fileConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTP     struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		RequestTimeout  string `yaml:"request_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"http"`
	Session struct {
		Cookie       string `yaml:"cookie"`
		CookieSecure string `yaml:"cookie_secure"`
		HashKey      string `yaml:"hash_key"`
		BlockKey     string `yaml:"block_key"`
		IdleTimeout  string `yaml:"idle_timeout"`
		Lifetime     string `yaml:"lifetime"`
	} `yaml:"session"`
	Forms struct {
		SubmitLatency string `yaml:"submit_latency"`
	} `yaml:"forms"`
	Visitors struct {
		IdleTimeout   string `yaml:"idle_timeout"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"visitors"`
}

func loadFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	values := map[string]string{
		"AUTHDEMO_ENV":                    fc.Env,
		"AUTHDEMO_LOG_LEVEL":              fc.LogLevel,
		"AUTHDEMO_HTTP_ADDR":              fc.HTTP.Addr,
		"AUTHDEMO_HTTP_READ_TIMEOUT":      fc.HTTP.ReadTimeout,
		"AUTHDEMO_HTTP_WRITE_TIMEOUT":     fc.HTTP.WriteTimeout,
		"AUTHDEMO_HTTP_IDLE_TIMEOUT":      fc.HTTP.IdleTimeout,
		"AUTHDEMO_HTTP_REQUEST_TIMEOUT":   fc.HTTP.RequestTimeout,
		"AUTHDEMO_HTTP_SHUTDOWN_TIMEOUT":  fc.HTTP.ShutdownTimeout,
		"AUTHDEMO_SESSION_COOKIE":         fc.Session.Cookie,
		"AUTHDEMO_SESSION_COOKIE_SECURE":  fc.Session.CookieSecure,
		"AUTHDEMO_SESSION_HASH_KEY":       fc.Session.HashKey,
		"AUTHDEMO_SESSION_BLOCK_KEY":      fc.Session.BlockKey,
		"AUTHDEMO_SESSION_IDLE_TIMEOUT":   fc.Session.IdleTimeout,
		"AUTHDEMO_SESSION_LIFETIME":       fc.Session.Lifetime,
		"AUTHDEMO_SUBMIT_LATENCY":         fc.Forms.SubmitLatency,
		"AUTHDEMO_VISITOR_IDLE_TIMEOUT":   fc.Visitors.IdleTimeout,
		"AUTHDEMO_VISITOR_SWEEP_INTERVAL": fc.Visitors.SweepInterval,
	}
	for key, value := range values {
		if value == "" {
			delete(values, key)
		}
	}
	return values, nil
}

// parser reads typed values and remembers keys that failed to parse.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) stringValue(key, fallback string) string {
	if value, ok := p.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (p *parser) durationValue(key string, fallback time.Duration) time.Duration {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) boolValue(key string, fallback bool) bool {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return parsed
}
