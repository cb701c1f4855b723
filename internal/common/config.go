package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DemoOCRSpaceKey is the shared, rate-limited key from the OCR.Space docs.
const DemoOCRSpaceKey = "helloworld"

// Config holds all application configuration. It is built once at startup
// and passed by reference to the components that need it.
type Config struct {
	OCRSpace OCRSpaceConfig
	LLM      LLMConfig
	Prep     PrepConfig
	Server   ServerConfig
	LogLevel slog.Level
}

// OCRSpaceConfig holds settings of the classic OCR provider.
type OCRSpaceConfig struct {
	APIKey       string
	UsingDemoKey bool
	Endpoint     string
	Timeout      time.Duration
	// ForceClassic disables every OpenAI path except explicit provider requests.
	ForceClassic bool
}

// LLMConfig holds settings of the vision/proofreading language model.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// HasKey reports whether the language model can be called at all.
func (c LLMConfig) HasKey() bool { return c.APIKey != "" }

// PrepConfig holds image preparation settings.
type PrepConfig struct {
	ArtifactCacheDir string
}

// ServerConfig holds listener addresses of the daemon.
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration

	// background scan jobs
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	ResultTTL  time.Duration
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding the real environment. Missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("config.dotenv.load_failed", "file", f, "error", err)
		}
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	ocrKey := strings.TrimSpace(os.Getenv("OCR_SPACE_API_KEY"))
	usingDemo := ocrKey == ""
	if usingDemo {
		ocrKey = DemoOCRSpaceKey
	}

	return &Config{
		OCRSpace: OCRSpaceConfig{
			APIKey:       ocrKey,
			UsingDemoKey: usingDemo,
			Endpoint:     getEnv("OCR_SPACE_ENDPOINT", "https://api.ocr.space/parse/image"),
			Timeout:      getEnvAsDuration("OCR_TIMEOUT", 45*time.Second),
			ForceClassic: getEnvAsBool("FORCE_OCR_SPACE", false),
		},
		LLM: LLMConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Prep: PrepConfig{
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			Workers:         getEnvAsInt("SCAN_WORKERS", 2),
			QueueSize:       getEnvAsInt("SCAN_QUEUE_SIZE", 64),
			JobTimeout:      getEnvAsDuration("SCAN_JOB_TIMEOUT", 5*time.Minute),
			ResultTTL:       getEnvAsDuration("SCAN_RESULT_TTL", 15*time.Minute),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return defaultValue
	case "1", "true":
		return true
	default:
		return false
	}
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCRSpace.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OCR_SPACE_API_KEY resolved to an empty key", ErrInvalidInput)
	}
	if c.OCRSpace.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "OCR_SPACE_ENDPOINT is required", ErrInvalidInput)
	}
	if c.OCRSpace.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("OCR_TIMEOUT must be positive, got %s", c.OCRSpace.Timeout), ErrInvalidInput)
	}
	if c.Server.Workers <= 0 || c.Server.QueueSize <= 0 {
		return NewAppError("CONFIG_ERROR", "SCAN_WORKERS and SCAN_QUEUE_SIZE must be positive", ErrInvalidInput)
	}
	if c.LLM.HasKey() && c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_BASE_URL is required when OPENAI_API_KEY is set", ErrInvalidInput)
	}
	return nil
}
