package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Events       EventsConfig
	GLPI         GLPIConfig
	Chatbot      ChatbotConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	EventsChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds SMTP settings used to e-mail ticket owners.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	DashboardURL string
}

// Enabled reports whether outgoing e-mail is configured.
func (n NotificationConfig) Enabled() bool {
	return n.SMTPHost != "" && n.EmailFrom != ""
}

// EventsConfig tunes domain event delivery.
type EventsConfig struct {
	HandlerTimeoutSeconds int
}

// HandlerTimeout bounds a single subscriber invocation.
func (e EventsConfig) HandlerTimeout() time.Duration {
	if e.HandlerTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.HandlerTimeoutSeconds) * time.Second
}

// GLPIConfig configures the external ticketing integration.
type GLPIConfig struct {
	Enabled        bool
	URL            string
	AppToken       string
	UserToken      string
	WebhookSecret  string
	TimeoutSeconds int
}

// ChatbotConfig configures the TI support chatbot backend.
type ChatbotConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	SystemPrompt   string
	MaxTurns       int
	MaxSessions    int
	SessionTTLMin  int
	TimeoutSeconds int
}

const defaultSystemPrompt = `Você é um assistente virtual especializado em Tecnologia da Informação (TI).
Sua única função é responder perguntas sobre hardware, software, redes, programação e problemas técnicos.
Se o usuário perguntar sobre qualquer outro assunto, recuse educadamente e reafirme sua especialidade.`

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "helpdesk:events"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:     getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUsername: os.Getenv("NOTIFY_SMTP_USERNAME"),
			SMTPPassword: os.Getenv("NOTIFY_SMTP_PASSWORD"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			DashboardURL: getEnv("NOTIFY_DASHBOARD_URL", "http://localhost:8080"),
		},
		Events: EventsConfig{
			HandlerTimeoutSeconds: getEnvAsInt("EVENTS_HANDLER_TIMEOUT_SECONDS", 10),
		},
		GLPI: GLPIConfig{
			Enabled:        getEnvAsBool("GLPI_ENABLED", false),
			URL:            os.Getenv("GLPI_URL"),
			AppToken:       os.Getenv("GLPI_APP_TOKEN"),
			UserToken:      os.Getenv("GLPI_USER_TOKEN"),
			WebhookSecret:  os.Getenv("GLPI_WEBHOOK_SECRET"),
			TimeoutSeconds: getEnvAsInt("GLPI_TIMEOUT_SECONDS", 15),
		},
		Chatbot: ChatbotConfig{
			BaseURL:        os.Getenv("CHATBOT_BASE_URL"),
			APIKey:         os.Getenv("CHATBOT_API_KEY"),
			Model:          getEnv("CHATBOT_MODEL", "gemini-1.5-flash-latest"),
			SystemPrompt:   getEnv("CHATBOT_SYSTEM_PROMPT", defaultSystemPrompt),
			MaxTurns:       getEnvAsInt("CHATBOT_MAX_TURNS", 5),
			MaxSessions:    getEnvAsInt("CHATBOT_MAX_SESSIONS", 1000),
			SessionTTLMin:  getEnvAsInt("CHATBOT_SESSION_TTL_MINUTES", 60),
			TimeoutSeconds: getEnvAsInt("CHATBOT_TIMEOUT_SECONDS", 30),
		},
	}

	if cfg.GLPI.Enabled && cfg.GLPI.URL == "" {
		return nil, fmt.Errorf("GLPI_ENABLED requires GLPI_URL")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
