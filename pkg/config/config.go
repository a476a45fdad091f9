package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported store backends.
const (
	StoreAPI      = "api"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store    StoreConfig
	Remote   RemoteAPIConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Blob     BlobConfig
	JWT      JWTConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Log      LogConfig
	Courses  CoursesConfig
	Reports  ReportsConfig
}

// StoreConfig selects where course, enrollment and attendance data lives.
type StoreConfig struct {
	Backend string
}

// RemoteAPIConfig addresses the remote data API backend.
type RemoteAPIConfig struct {
	URL     string
	Key     string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BlobConfig locates the tabular and configuration blobs of the blob backends.
type BlobConfig struct {
	Dir              string
	KeyPrefix        string
	RecordsPath      string
	AttendancePath   string
	ConfigPath       string
	EncryptionSecret string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig holds the shared administrator secret.
type AdminConfig struct {
	Password     string
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CoursesConfig tunes ledger rules.
type CoursesConfig struct {
	Timezone                  string
	DefaultMaxSeats           int
	ApprovalThreshold         float64
	EnforceRegistrationWindow bool
}

// ReportsConfig configures report caching and asynchronous exports.
type ReportsConfig struct {
	CacheEnabled      bool
	CacheTTL          time.Duration
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Development secrets shipped as defaults; production must override them.
const (
	devJWTSecret     = "dev_secret"
	devSigningSecret = "dev_reports_secret"
)

// Validate refuses production settings that would let anyone mint admin
// tokens or download links.
func (c *Config) Validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
		return errors.New("JWT_SECRET must be set to a non-default value in production")
	}
	if c.Reports.SignedURLSecret == "" || c.Reports.SignedURLSecret == devSigningSecret {
		return errors.New("REPORTS_SIGNED_URL_SECRET must be set to a non-default value in production")
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Backend: strings.ToLower(v.GetString("STORE_BACKEND"))}

	cfg.Remote = RemoteAPIConfig{
		URL:     v.GetString("REMOTE_API_URL"),
		Key:     v.GetString("REMOTE_API_KEY"),
		Timeout: parseDuration(v.GetString("REMOTE_API_TIMEOUT"), 15*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Blob = BlobConfig{
		Dir:              v.GetString("BLOB_DIR"),
		KeyPrefix:        v.GetString("BLOB_KEY_PREFIX"),
		RecordsPath:      v.GetString("BLOB_RECORDS_PATH"),
		AttendancePath:   v.GetString("BLOB_ATTENDANCE_PATH"),
		ConfigPath:       v.GetString("BLOB_CONFIG_PATH"),
		EncryptionSecret: v.GetString("FIELD_ENCRYPTION_SECRET"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*time.Minute),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Admin = AdminConfig{
		Password:     v.GetString("ADMIN_PASSWORD"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxSeats := v.GetInt("DEFAULT_MAX_SEATS")
	if maxSeats <= 0 {
		maxSeats = 30
	}
	threshold := v.GetFloat64("APPROVAL_THRESHOLD")
	if threshold <= 0 {
		threshold = 75
	}
	cfg.Courses = CoursesConfig{
		Timezone:                  v.GetString("TIMEZONE"),
		DefaultMaxSeats:           maxSeats,
		ApprovalThreshold:         threshold,
		EnforceRegistrationWindow: v.GetBool("ENFORCE_REGISTRATION_WINDOW"),
	}

	cfg.Reports = ReportsConfig{
		CacheEnabled:      v.GetBool("ENABLE_REPORT_CACHE"),
		CacheTTL:          parseDuration(v.GetString("REPORT_CACHE_TTL"), 30*time.Second),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreAPI)
	v.SetDefault("REMOTE_API_URL", "")
	v.SetDefault("REMOTE_API_KEY", "")
	v.SetDefault("REMOTE_API_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "curso_asistencia")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("BLOB_DIR", "./data")
	v.SetDefault("BLOB_KEY_PREFIX", "blob:")
	v.SetDefault("BLOB_RECORDS_PATH", "data/registros.csv")
	v.SetDefault("BLOB_ATTENDANCE_PATH", "data/asistencias.csv")
	v.SetDefault("BLOB_CONFIG_PATH", "data/config.json")
	v.SetDefault("FIELD_ENCRYPTION_SECRET", "")

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("JWT_ISSUER", "curso-asistencia-api")

	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMEZONE", "America/Santiago")
	v.SetDefault("DEFAULT_MAX_SEATS", 30)
	v.SetDefault("APPROVAL_THRESHOLD", 75)
	v.SetDefault("ENFORCE_REGISTRATION_WINDOW", false)

	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "30s")
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", devSigningSecret)
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
}

// isMissingFile reports whether viper failed because .env does not exist;
// SetConfigFile bypasses the ConfigFileNotFoundError path.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
