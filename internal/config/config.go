package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	// minProdSecretLen is the shortest session secret accepted when Env is "prod".
	minProdSecretLen = 32
)

type Config struct {
	Port string

	// Env is "dev" (default) or "prod". When "prod", SECRET_KEY must be at least 32 bytes.
	Env string

	// SecretKey signs session cookies and bearer tokens. Required.
	SecretKey string

	// DBDriver is "sqlite3" (default) or "postgres"; DBDSN is passed to sql.Open as-is.
	DBDriver string
	DBDSN    string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// StaticDir is the public static root; uploads live under StaticDir/uploads.
	StaticDir string

	// MaxUploadMB caps the multipart body of /api/analyze (default 10).
	MaxUploadMB int

	// AnalysisProvider selects the external model vendor: "gemini" (default) or "openai".
	AnalysisProvider string
	// AnalysisModel overrides the provider's default model name.
	AnalysisModel string
	// AnalysisTimeout bounds one external call. Zero waits until the API answers.
	AnalysisTimeout time.Duration

	GeminiAPIKey string
	OpenAIAPIKey string

	// SessionMaxAgeHours is the session cookie lifetime (default 24).
	SessionMaxAgeHours int

	// JWTExpireHours is the CLI bearer token lifetime in hours (default 24).
	JWTExpireHours int

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the server listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string
	// LogLevel is debug, info (default), warn or error.
	LogLevel string

	// CORSAllowedOrigins is a list of origins allowed for CORS.
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
// Environment variables always win over values from the file.
type fileConfig struct {
	Port             string `yaml:"port"`
	Env              string `yaml:"env"`
	DBDriver         string `yaml:"db_driver"`
	DBDSN            string `yaml:"db_dsn"`
	StaticDir        string `yaml:"static_dir"`
	MaxUploadMB      int    `yaml:"max_upload_mb"`
	AnalysisProvider string `yaml:"analysis_provider"`
	AnalysisModel    string `yaml:"analysis_model"`
	AnalysisTimeout  string `yaml:"analysis_timeout"`
	LogFormat        string `yaml:"log_format"`
	LogLevel         string `yaml:"log_level"`
}

// Load reads .env (if present), the optional CONFIG_FILE, and the environment,
// then validates the result. All problems are reported together.
func Load() (Config, error) {
	cfg, errs := read()
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// LoadDatabase reads the same sources as Load but only checks the database
// settings, so maintenance commands run without secrets or API keys.
func LoadDatabase() (Config, error) {
	cfg, errs := read()
	if err := cfg.validateDatabase(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

func read() (Config, []error) {
	_ = godotenv.Load()

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		fc, err = readFile(path)
		if err != nil {
			return Config{}, []error{err}
		}
	}

	var errs []error

	cfg := Config{
		Port: getEnv("PORT", or(fc.Port, "8080")),
		Env:  getEnv("ENV", or(fc.Env, "dev")),

		SecretKey: getEnv("SECRET_KEY", os.Getenv("FLASK_SECRET_KEY")),

		DBDriver: getEnv("DB_DRIVER", or(fc.DBDriver, "sqlite3")),
		DBDSN:    getEnv("DB_DSN", or(fc.DBDSN, "app.db")),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		StaticDir:   getEnv("STATIC_DIR", or(fc.StaticDir, "static")),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", orInt(fc.MaxUploadMB, 10)),

		AnalysisProvider: strings.ToLower(getEnv("ANALYSIS_PROVIDER", or(fc.AnalysisProvider, ProviderGemini))),
		AnalysisModel:    getEnv("ANALYSIS_MODEL", fc.AnalysisModel),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		SessionMaxAgeHours: getEnvInt("SESSION_MAX_AGE_HOURS", 24),
		JWTExpireHours:     getEnvInt("JWT_EXPIRE_HOURS", 24),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", or(fc.LogFormat, "text")),
		LogLevel:  getEnv("LOG_LEVEL", or(fc.LogLevel, "info")),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}

	timeout, err := parseDuration(getEnv("ANALYSIS_TIMEOUT", fc.AnalysisTimeout))
	if err != nil {
		errs = append(errs, fmt.Errorf("ANALYSIS_TIMEOUT: %w", err))
	}
	cfg.AnalysisTimeout = timeout

	return cfg, errs
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("missing required environment variable: SECRET_KEY"))
	} else if c.Env == "prod" && len(c.SecretKey) < minProdSecretLen {
		errs = append(errs, fmt.Errorf("SECRET_KEY must be at least %d bytes when ENV=prod", minProdSecretLen))
	}

	switch c.AnalysisProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("missing required environment variable: GEMINI_API_KEY"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("missing required environment variable: OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ANALYSIS_PROVIDER %q (want gemini or openai)", c.AnalysisProvider))
	}

	if err := c.validateDatabase(); err != nil {
		errs = append(errs, err)
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	return errors.Join(errs...)
}

func (c Config) validateDatabase() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or postgres)", c.DBDriver)
	}
}

// TLSEnabled reports whether both TLS files are configured.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// parseDuration accepts Go durations ("30s", "2m") and plain seconds ("45").
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
