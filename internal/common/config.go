package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Source   SourceConfig
	Output   OutputConfig
	Extract  ExtractConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Database DatabaseConfig
	Server   ServerConfig
	Broker   BrokerConfig
}

// SourceConfig describes where resumes are read from
type SourceConfig struct {
	Dir        string
	SkipHidden bool
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
	S3Access   string
	S3Secret   string
}

// OutputConfig holds the persisted output locations
type OutputConfig struct {
	Dir       string
	JSONName  string
	CSVName   string
	XLSXName  string
	WriteXLSX bool
}

// ExtractConfig holds text-extraction configuration
type ExtractConfig struct {
	Pdftotext     string
	MaxChars      int
	OCR           bool
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	OCRDPI        int
	OCRMaxPages   int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string // "openai" | "gemini"
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds batch collector tuning
type PipelineConfig struct {
	Workers         int
	DocumentTimeout time.Duration
	WatchDebounce   time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string // postgres DSN; when empty SQLitePath is used
	SQLitePath      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds dashboard server configuration
type ServerConfig struct {
	HTTPAddr   string
	GRPCAddr   string
	CORSOrigin string
}

// BrokerConfig holds AMQP refresh-event configuration
type BrokerConfig struct {
	URL      string
	Exchange string
}

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	apiKey, model := providerEnv(provider)

	return &Config{
		Source: SourceConfig{
			Dir:        getEnv("RESUME_DIR", "./data/resumes"),
			SkipHidden: getEnvAsBool("RESUME_SKIP_HIDDEN", true),
			S3Bucket:   getEnv("RESUME_S3_BUCKET", ""),
			S3Prefix:   getEnv("RESUME_S3_PREFIX", ""),
			S3Region:   getEnv("RESUME_S3_REGION", "auto"),
			S3Endpoint: getEnv("RESUME_S3_ENDPOINT", ""),
			S3Access:   getEnv("RESUME_S3_ACCESS_KEY", ""),
			S3Secret:   getEnv("RESUME_S3_SECRET_KEY", ""),
		},
		Output: OutputConfig{
			Dir:       getEnv("OUTPUT_DIR", "./data/parsed"),
			JSONName:  getEnv("OUTPUT_JSON_NAME", "resumes.json"),
			CSVName:   getEnv("OUTPUT_CSV_NAME", "resumes.csv"),
			XLSXName:  getEnv("OUTPUT_XLSX_NAME", "resumes.xlsx"),
			WriteXLSX: getEnvAsBool("OUTPUT_XLSX", false),
		},
		Extract: ExtractConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			MaxChars:  getEnvAsInt("EXTRACT_MAX_CHARS", 12000),

			OCR:           getEnvAsBool("EXTRACT_OCR", false),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_DIR", ""),
			OCRDPI:        getEnvAsInt("OCR_DPI", 300),
			OCRMaxPages:   getEnvAsInt("OCR_MAX_PAGES", 5),
		},
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			APIKey:      apiKey,
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			DocumentTimeout: getEnvAsDuration("PIPELINE_DOCUMENT_TIMEOUT", 2*time.Minute),
			WatchDebounce:   getEnvAsDuration("PIPELINE_WATCH_DEBOUNCE", 2*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:   getEnv("GRPC_ADDR", ":9090"),
			CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		Broker: BrokerConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "candidates"),
		},
	}
}

// SetProvider switches the LLM provider and re-reads its key and model from the environment
func (c *Config) SetProvider(provider string) {
	c.LLM.Provider = strings.ToLower(provider)
	c.LLM.APIKey, c.LLM.Model = providerEnv(c.LLM.Provider)
}

func providerEnv(provider string) (apiKey, model string) {
	if provider == "gemini" {
		return getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")), getEnv("GEMINI_MODEL", "gemini-2.5-flash")
	}
	return getEnv("OPENAI_API_KEY", ""), getEnv("OPENAI_MODEL", "gpt-4o-mini")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// ValidateBatch validates what the batch pipeline needs to run
func (c *Config) ValidateBatch() error {
	if c.Source.Dir == "" && c.Source.S3Bucket == "" {
		return NewAppError("CONFIG_ERROR", "RESUME_DIR or RESUME_S3_BUCKET is required", ErrInvalidInput)
	}
	if c.Output.Dir == "" {
		return NewAppError("CONFIG_ERROR", "OUTPUT_DIR is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "API key for "+c.LLM.Provider+" is required", ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateServer validates what the dashboard daemon needs to run
func (c *Config) ValidateServer() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
