package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	UploadDir string
	OutputDir string
	MailDir   string

	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMVisionModel  string
	LLMTimeoutMs    int
	LLMRateLimitRPS int
	LLMMaxRetries   int
	LLMBatchSize    int
	LLMMaxWorkers   int
	LLMCostPerKTok  float64

	StepTimeoutMs   int
	MinRows         int
	MinCompleteness float64
	MaxVisionPages  int

	MatchMinConfidence int

	ProcessWorkers    int
	StaleUploadMin    int
	FallbackSupplier  string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider    string
	MailListenerLabel       string
	MailListenerIntervalSec int
	MailListenerFetchMax    int
	MailListenerBatch       int
	MailListenerAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		UploadDir: getEnv("UPLOAD_DIR", filepath.Join(cwd, "data", "uploads")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		MailDir:   getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "mail")),

		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "openai/gpt-4o-mini"),
		LLMVisionModel:  getEnv("LLM_VISION_MODEL", "openai/gpt-4o-mini"),
		LLMTimeoutMs:    getEnvInt("LLM_TIMEOUT_MS", 90000),
		LLMRateLimitRPS: getEnvInt("LLM_RATE_LIMIT_RPS", 2),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 4),
		LLMBatchSize:    getEnvInt("LLM_BATCH_SIZE", 30),
		LLMMaxWorkers:   getEnvInt("LLM_MAX_WORKERS", 3),
		LLMCostPerKTok:  getEnvFloat("LLM_COST_PER_KTOKEN_USD", 0.0006),

		StepTimeoutMs:   getEnvInt("EXTRACT_STEP_TIMEOUT_MS", 120000),
		MinRows:         getEnvInt("EXTRACT_MIN_ROWS", 10),
		MinCompleteness: getEnvFloat("EXTRACT_MIN_COMPLETENESS", 0.7),
		MaxVisionPages:  getEnvInt("EXTRACT_MAX_VISION_PAGES", 20),

		MatchMinConfidence: getEnvInt("MATCH_MIN_CONFIDENCE", 60),

		ProcessWorkers:   getEnvInt("PROCESS_WORKERS", 2),
		StaleUploadMin:   getEnvInt("STALE_UPLOAD_MINUTES", 15),
		FallbackSupplier: getEnv("FALLBACK_SUPPLIER_NAME", "Unattributed Supplier"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:    getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:       getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec: getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:    getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerBatch:       getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 10),
		MailListenerAutoExport:  getEnvBool("MAIL_LISTENER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutMs) * time.Millisecond
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMs) * time.Millisecond
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
