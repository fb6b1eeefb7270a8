package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Admin     AdminConfig
	Manager   ManagerConfig
	JWT       JWTConfig
	Session   SessionConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Images    ImageConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// BackendConfig points at the external product REST API
type BackendConfig struct {
	URL            string
	Timeout        time.Duration
	FetchLimit     int
	ReconcileDelay time.Duration
}

// AdminConfig holds the credentials posted to the backend's admin login
type AdminConfig struct {
	Username string
	Password string
}

// ManagerConfig gates the storefront's admin mode
type ManagerConfig struct {
	Username     string
	PasswordHash string // bcrypt
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // in minutes
}

type SessionConfig struct {
	Store      string // memory | redis | postgres | sqlite
	KeyPrefix  string
	SQLitePath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ImageConfig struct {
	LoadTimeout      time.Duration
	PlaceholderBase  string
	BrandPlaceholder string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	LoginRequests int
	LoginWindow   time.Duration
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	// Values from .env become plain environment variables so that both
	// viper.AutomaticEnv and child processes see them.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return fromViper()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("BACKEND_URL", "http://localhost:8001")
	viper.SetDefault("BACKEND_TIMEOUT", "30s")
	viper.SetDefault("BACKEND_FETCH_LIMIT", 1000)
	viper.SetDefault("RECONCILE_DELAY", "1s")
	viper.SetDefault("MANAGER_USERNAME", "manager")
	viper.SetDefault("JWT_ACCESS_EXPIRY", 480)
	viper.SetDefault("SESSION_STORE", "memory")
	viper.SetDefault("SESSION_KEY_PREFIX", "hannu")
	viper.SetDefault("SESSION_SQLITE_PATH", "hannu-state.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IMAGE_LOAD_TIMEOUT", "15s")
	viper.SetDefault("IMAGE_PLACEHOLDER_BASE", "https://via.placeholder.com/400x600/f5f5f5/666666")
	viper.SetDefault("IMAGE_BRAND_PLACEHOLDER", "https://via.placeholder.com/400x600/f5f5f5/666666?text=HANNU+CLOTHES")
	viper.SetDefault("CORS_ORIGINS", "")
	viper.SetDefault("LOGIN_RATE_LIMIT", 5)
	viper.SetDefault("LOGIN_RATE_WINDOW", "10m")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Backend: BackendConfig{
			URL:            strings.TrimRight(viper.GetString("BACKEND_URL"), "/"),
			Timeout:        viper.GetDuration("BACKEND_TIMEOUT"),
			FetchLimit:     viper.GetInt("BACKEND_FETCH_LIMIT"),
			ReconcileDelay: viper.GetDuration("RECONCILE_DELAY"),
		},
		Admin: AdminConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		Manager: ManagerConfig{
			Username:     viper.GetString("MANAGER_USERNAME"),
			PasswordHash: viper.GetString("MANAGER_PASSWORD_HASH"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(viper.GetString("SESSION_STORE")),
			KeyPrefix:  viper.GetString("SESSION_KEY_PREFIX"),
			SQLitePath: viper.GetString("SESSION_SQLITE_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Images: ImageConfig{
			LoadTimeout:      viper.GetDuration("IMAGE_LOAD_TIMEOUT"),
			PlaceholderBase:  viper.GetString("IMAGE_PLACEHOLDER_BASE"),
			BrandPlaceholder: viper.GetString("IMAGE_BRAND_PLACEHOLDER"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			LoginRequests: viper.GetInt("LOGIN_RATE_LIMIT"),
			LoginWindow:   viper.GetDuration("LOGIN_RATE_WINDOW"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RedisAddr returns host:port for the redis client
func (c RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

// DSN returns a pgx connection string for the configured database
func (c DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Database +
		"?sslmode=disable&search_path=" + c.Schema
}
