package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// AI backend selection and tuning
	AIProvider      string // "ollama" (local), "groq" or "gemini" (hosted)
	OllamaBaseURL   string
	OllamaModel     string
	GroqAPIKey      string
	GroqBaseURL     string
	GroqModel       string
	GeminiAPIKey    string
	GeminiModel     string
	AITemperature   float64
	AIContextWindow int
	AIMaxTokens     int

	// Workflow engine webhook target
	WorkflowWebhookBaseURL string
	WorkflowWebhookTimeout time.Duration

	// Email delivery
	EmailProvider     string // "sendgrid", "ses" or "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AWSRegion         string

	// Identity
	JWTSecret string

	// Chat assistant
	ChatHistoryStore string // "file" or "redis"
	ChatMemoryPath   string
	AssistantDataDir string
	ChatRateLimit    int
	ChatRateWindow   time.Duration

	// Automation thresholds
	ChurnHighRisk      float64
	ChurnMediumRisk    float64
	ChurnLowRisk       float64
	MinPriceFloorRatio float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AIProvider:      strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "ollama"))),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.1:latest"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:     getEnv("GROQ_BASE_URL", "https://api.groq.com/openai"),
		GroqModel:       getEnv("GROQ_MODEL", "llama-3.1-70b-versatile"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITemperature:   getEnvAsFloat("AI_TEMPERATURE", 0.7),
		AIContextWindow: getEnvAsInt("AI_CONTEXT_WINDOW", 4096),
		AIMaxTokens:     getEnvAsInt("AI_MAX_TOKENS", 1024),

		WorkflowWebhookBaseURL: getEnv("WORKFLOW_WEBHOOK_BASE_URL", "http://localhost:5678/webhook-test/"),
		WorkflowWebhookTimeout: getEnvAsDuration("WORKFLOW_WEBHOOK_TIMEOUT", 5*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-reply@example.com"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		JWTSecret: getEnv("JWT_SECRET", "change_me"),

		ChatHistoryStore: strings.ToLower(strings.TrimSpace(getEnv("CHAT_HISTORY_STORE", "file"))),
		ChatMemoryPath:   getEnv("CHAT_MEMORY_PATH", "data/memory.json"),
		AssistantDataDir: getEnv("ASSISTANT_DATA_DIR", "data"),
		ChatRateLimit:    getEnvAsInt("CHAT_RATE_LIMIT", 500),
		ChatRateWindow:   getEnvAsDuration("CHAT_RATE_WINDOW", 24*time.Hour),

		ChurnHighRisk:      getEnvAsFloat("CHURN_HIGH_RISK", 0.7),
		ChurnMediumRisk:    getEnvAsFloat("CHURN_MEDIUM_RISK", 0.4),
		ChurnLowRisk:       getEnvAsFloat("CHURN_LOW_RISK", 0.2),
		MinPriceFloorRatio: getEnvAsFloat("MIN_PRICE_FLOOR_RATIO", 0.5),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
